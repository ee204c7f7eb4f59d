// Package httpapi serves the JSON API the dashboard frontend talks to.
//
// It is a thin layer over the stores: session, exercise log, saved
// exercises, and chat history. Two extra routes sit alongside the CRUD
// surface: POST /api/bridge, which feeds origin-tagged widget messages into
// the bridge dispatcher, and GET /api/events, which streams store change
// notifications as Server-Sent Events.
package httpapi
