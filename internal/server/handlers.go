package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dev-tams/cronkit/internal/schedule"
)

type describeResponse struct {
	Expression  string   `json:"expression"`
	Description string   `json:"description"`
	Warnings    []string `json:"warnings"`
}

type nextResponse struct {
	Expression  string   `json:"expression"`
	From        string   `json:"from"`
	Occurrences []string `json:"occurrences"`
}

type fieldResponse struct {
	Field  string `json:"field"`
	Raw    string `json:"raw"`
	Kind   string `json:"kind"`
	Spec   string `json:"spec"`
	Values []int  `json:"values"`
}

type parseResponse struct {
	Expression string          `json:"expression"`
	HasSeconds bool            `json:"has_seconds"`
	Fields     []fieldResponse `json:"fields"`
	Warnings   []string        `json:"warnings"`
}

type formatResponse struct {
	Spec string `json:"spec"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// JSONError sends {"error": message} with the given status.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func warningStrings(vs []schedule.DomainViolation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Error())
	}
	return out
}

// describe always answers 200; malformed input describes as invalid.
func (a *api) describe(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("expr")
	resp := describeResponse{
		Expression:  expr,
		Description: schedule.Describe(expr),
		Warnings:    []string{},
	}
	if e, err := schedule.Parse(expr); err == nil {
		resp.Warnings = warningStrings(e.Warnings())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) next(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expr := q.Get("expr")

	count := DefaultCount
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			JSONError(w, "count must be a non-negative integer", http.StatusBadRequest)
			return
		}
		count = min(n, a.maxCount)
	}

	from := a.now()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			JSONError(w, "from must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		from = t
	}

	resp := nextResponse{Expression: expr, From: from.Format(time.RFC3339), Occurrences: []string{}}
	for _, t := range schedule.NextOccurrences(expr, count, from) {
		resp.Occurrences = append(resp.Occurrences, t.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) parse(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("expr")
	e, err := schedule.Parse(expr)
	if err != nil {
		var syn *schedule.SyntaxError
		if errors.As(err, &syn) {
			JSONError(w, syn.Error(), http.StatusBadRequest)
			return
		}
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	fields := []schedule.Field{schedule.Minute, schedule.Hour, schedule.DayOfMonth, schedule.Month, schedule.DayOfWeek}
	if e.HasSeconds() {
		fields = append([]schedule.Field{schedule.Second}, fields...)
	}

	resp := parseResponse{
		Expression: e.String(),
		HasSeconds: e.HasSeconds(),
		Fields:     make([]fieldResponse, 0, len(fields)),
		Warnings:   warningStrings(e.Warnings()),
	}
	for _, f := range fields {
		pf := e.Field(f)
		resp.Fields = append(resp.Fields, fieldResponse{
			Field:  f.String(),
			Raw:    pf.Raw,
			Kind:   specKind(pf.Spec),
			Spec:   pf.Spec.String(),
			Values: pf.Values.Values(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func specKind(s schedule.FieldSpec) string {
	switch s.(type) {
	case schedule.Every:
		return "every"
	case schedule.List:
		return "list"
	case schedule.Range:
		return "range"
	case schedule.Step:
		return "step"
	default:
		return "unknown"
	}
}

func (a *api) fieldFormat(w http.ResponseWriter, r *http.Request) {
	var state schedule.EditableFieldState
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&state); err != nil {
		JSONError(w, "invalid field state: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, formatResponse{Spec: schedule.FieldToString(state)})
}

func (a *api) fieldParse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ok := schedule.FieldByName(q.Get("field"))
	if !ok {
		JSONError(w, "unknown field "+strconv.Quote(q.Get("field")), http.StatusBadRequest)
		return
	}

	spec := strings.TrimSpace(q.Get("spec"))
	if spec == "" {
		spec = "*"
	}
	writeJSON(w, http.StatusOK, schedule.ParseFieldState(spec, f.Domain()))
}
