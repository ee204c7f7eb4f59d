// ABOUTME: Exercise record types and the pure day+type grouping projection
// ABOUTME: Records are append-only; groups are recomputed on demand, never stored

package exercise

import (
	"errors"
	"sort"
	"time"
)

// Type identifies the kind of exercise the rep counter tracked.
type Type string

// Exercise types recognized by the rep-counter widget.
const (
	TypeBicepCurl       Type = "bicepCurl"
	TypeSquat           Type = "squat"
	TypePushup          Type = "pushup"
	TypeShoulderPress   Type = "shoulderPress"
	TypeTricepExtension Type = "tricepExtension"
	TypeLunge           Type = "lunge"
	TypeRussianTwist    Type = "russianTwist"
)

var validTypes = map[Type]bool{
	TypeBicepCurl:       true,
	TypeSquat:           true,
	TypePushup:          true,
	TypeShoulderPress:   true,
	TypeTricepExtension: true,
	TypeLunge:           true,
	TypeRussianTwist:    true,
}

// Valid reports whether t is a recognized exercise type.
func (t Type) Valid() bool { return validTypes[t] }

// Validation errors
var (
	ErrUnknownType  = errors.New("unknown exercise type")
	ErrInvalidCount = errors.New("rep count must be at least 1")
)

// Record is one completed set reported by the rep-counter widget.
type Record struct {
	ID        string    `json:"id"`
	Type      Type      `json:"exerciseType"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Group is a same-day, same-type aggregation of records. Derived, never
// persisted.
type Group struct {
	Type      Type      `json:"exerciseType"`
	Count     int       `json:"count"` // records merged into this group
	TotalReps int       `json:"totalReps"`
	Timestamp time.Time `json:"timestamp"` // latest timestamp among merged records
}

// GroupByDay merges records sharing a calendar day (in loc) and exercise
// type. Each group accumulates total reps, counts merged records, and keeps
// the latest timestamp seen. Groups come back sorted by that timestamp,
// newest first. The projection is pure: same input, same output, every run.
func GroupByDay(records []Record, loc *time.Location) []Group {
	if loc == nil {
		loc = time.UTC
	}

	type key struct {
		day string
		typ Type
	}
	groups := make(map[key]*Group)

	for _, r := range records {
		k := key{day: r.Timestamp.In(loc).Format("2006-01-02"), typ: r.Type}
		g, ok := groups[k]
		if !ok {
			g = &Group{Type: r.Type, Timestamp: r.Timestamp}
			groups[k] = g
		}
		g.Count++
		g.TotalReps += r.Count
		if r.Timestamp.After(g.Timestamp) {
			g.Timestamp = r.Timestamp
		}
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Type < out[j].Type // deterministic order for equal stamps
	})
	return out
}
