// ABOUTME: Renders a saved chat session as an HTML transcript.
// ABOUTME: Assistant messages are markdown; goldmark renders them with raw HTML escaped.

package httpapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/repfit/repfit/internal/chat"
)

// mdRenderer is a goldmark instance configured for safe HTML output. Raw
// HTML in markdown input is escaped (WithUnsafe is NOT set), so widget
// content cannot inject markup into the transcript.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Timestamp}} &middot; {{.MessageCount}} messages</p>
{{range .Messages}}<div class="msg msg-{{.Role}}">
<strong>{{.Role}}</strong>
{{.Body}}
</div>
{{end}}</body>
</html>
`))

type transcriptMessage struct {
	Role string
	Body template.HTML
}

type transcriptData struct {
	Title        string
	Timestamp    string
	MessageCount int
	Messages     []transcriptMessage
}

// handleChatTranscript handles GET /api/chats/{id}/transcript. It renders
// the session's messages as a standalone HTML page.
func (a *API) handleChatTranscript(w http.ResponseWriter, r *http.Request) {
	session := a.chats.Get(r.PathValue("id"))
	if session == nil {
		a.sendJSONError(w, http.StatusNotFound, "no such session")
		return
	}

	data := transcriptData{
		Title:        session.Summary.Title,
		Timestamp:    session.Timestamp.Format("2006-01-02 15:04"),
		MessageCount: session.Summary.MessageCount,
		Messages:     make([]transcriptMessage, 0, len(session.Messages)),
	}
	if data.Title == "" {
		data.Title = "Chat session"
	}

	for _, m := range session.Messages {
		body, err := renderMessage(m)
		if err != nil {
			a.logger.Error("failed to render transcript message", "session_id", session.ID, "error", err)
			a.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		data.Messages = append(data.Messages, transcriptMessage{Role: string(m.Role), Body: body})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := transcriptTmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render transcript", "session_id", session.ID, "error", err)
	}
}

// renderMessage converts one message to HTML. Assistant messages run through
// the markdown renderer; user messages are escaped verbatim.
func renderMessage(m chat.Message) (template.HTML, error) {
	if m.Role != chat.RoleAssistant {
		return template.HTML("<p>" + template.HTMLEscapeString(m.Content) + "</p>"), nil
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(m.Content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
