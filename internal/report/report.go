// Package report builds the upcoming-runs report: for every configured
// schedule, its description and next occurrences as of a point in time.
package report

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dev-tams/cronkit/internal/compression"
	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/encryption"
	"github.com/dev-tams/cronkit/internal/output"
	"github.com/dev-tams/cronkit/internal/schedule"
)

const (
	// Dir is the key prefix reports are written under.
	Dir = "reports"
	// TimeLayout names report objects; lexical order is chronological order.
	TimeLayout = "20060102_150405.000000000Z"
	BaseExt    = ".json"
	unknownExt = "<unknown>"

	// NoOccurrences is shown when a schedule has nothing in the search window.
	NoOccurrences = "No upcoming executions found"
)

type Entry struct {
	Name        string      `json:"name"`
	Expression  string      `json:"expression"`
	Description string      `json:"description"`
	Warnings    []string    `json:"warnings,omitempty"`
	Next        []time.Time `json:"next"`
	Paused      bool        `json:"paused,omitempty"`
}

type Document struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Schedules   []Entry   `json:"schedules"`
}

// Build evaluates every schedule as of now. Paused schedules are listed
// without occurrences.
func Build(schedules []config.ScheduleConfig, now time.Time, count int) Document {
	doc := Document{
		ID:          "rpt_" + uuid.NewString(),
		GeneratedAt: now,
		Count:       count,
		Schedules:   make([]Entry, 0, len(schedules)),
	}

	for _, s := range schedules {
		entry := Entry{
			Name:        s.Name,
			Expression:  s.Expression,
			Description: schedule.Describe(s.Expression),
			Next:        []time.Time{},
			Paused:      s.Paused,
		}

		expr, err := schedule.Parse(s.Expression)
		if err != nil {
			entry.Warnings = []string{err.Error()}
			doc.Schedules = append(doc.Schedules, entry)
			continue
		}
		for _, w := range expr.Warnings() {
			entry.Warnings = append(entry.Warnings, w.Error())
		}
		if !s.Paused {
			if next := expr.Next(now, count); next != nil {
				entry.Next = next
			}
		}
		doc.Schedules = append(doc.Schedules, entry)
	}
	return doc
}

// Ext returns the object suffix for the given pipeline settings.
func Ext(compressed, encrypted bool) string {
	ext := BaseExt
	if compressed {
		ext += compression.Ext
	}
	if encrypted {
		ext += encryption.Ext
	}
	return ext
}

// Key names the report generated at t.
func Key(t time.Time, compressed, encrypted bool) string {
	return path.Join(Dir, t.UTC().Format(TimeLayout)+Ext(compressed, encrypted))
}

// Suffix returns the pipeline suffix of a report object name.
func Suffix(name string) string {
	for _, ext := range []string{Ext(true, true), Ext(false, true), Ext(true, false), Ext(false, false)} {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return unknownExt
}

// TimeFromKey recovers the generation time from a report key.
func TimeFromKey(key string) (time.Time, bool) {
	base := path.Base(key)
	i := strings.Index(base, BaseExt)
	if i <= 0 {
		return time.Time{}, false
	}

	t, err := time.Parse(TimeLayout, base[:i])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Render writes doc as one table per schedule.
func Render(w io.Writer, doc Document) {
	fmt.Fprintf(w, "Report %s generated %s\n", doc.ID, doc.GeneratedAt.Format(time.RFC3339))

	for _, e := range doc.Schedules {
		fmt.Fprintf(w, "\n%s  %s\n%s\n", e.Name, e.Expression, e.Description)
		for _, warn := range e.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		switch {
		case e.Paused:
			fmt.Fprintln(w, "paused")
			continue
		case len(e.Next) == 0:
			fmt.Fprintln(w, NoOccurrences)
			continue
		}

		rows := make([][]interface{}, 0, len(e.Next))
		for i, t := range e.Next {
			rows = append(rows, []interface{}{i + 1, t.Format(time.RFC3339), t.Format("Mon Jan 2 15:04")})
		}
		output.RenderTable(w, []string{"#", "Time", "Local"}, rows)
	}
}
