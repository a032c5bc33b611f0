package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/cronkit/internal/config"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func TestParseOn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		on      []string
		want    route
		wantErr bool
	}{
		{on: []string{"fire"}, want: route{onFire: true}},
		{on: []string{"success"}, want: route{onSuccess: true}},
		{on: []string{" Failure "}, want: route{onFailure: true}},
		{on: []string{"both"}, want: route{onSuccess: true, onFailure: true}},
		{on: []string{"all"}, want: route{onFire: true, onSuccess: true, onFailure: true}},
		{on: []string{"fire", "failure"}, want: route{onFire: true, onFailure: true}},
		{on: nil, wantErr: true},
		{on: []string{"sometimes"}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseOn(tt.on)
		if tt.wantErr {
			assert.Error(t, err, tt.on)
			continue
		}
		require.NoError(t, err, tt.on)
		assert.Equal(t, tt.want, got, tt.on)
	}
}

func TestDispatcher_RoutesByStatus(t *testing.T) {
	t.Parallel()

	rec := &recordingNotifier{}
	d, err := NewDispatcherWith(rec, "fire", "failure")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Notify(ctx, Event{Kind: KindFire, Status: StatusFired, Schedule: "nightly"}))
	require.NoError(t, d.Notify(ctx, Event{Kind: KindReport, Status: StatusSuccess}))
	require.NoError(t, d.Notify(ctx, Event{Kind: KindReport, Status: StatusFailure, Error: "disk full"}))

	require.Len(t, rec.events, 2)
	assert.Equal(t, "nightly", rec.events[0].Schedule)
	assert.Equal(t, "disk full", rec.events[1].Error)
}

func TestDispatcher_JoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	d, err := NewDispatcherWith(&recordingNotifier{err: boom}, "all")
	require.NoError(t, err)

	err = d.Notify(context.Background(), Event{Status: StatusFired})
	assert.ErrorIs(t, err, boom)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	t.Parallel()

	var d *Dispatcher
	assert.NoError(t, d.Notify(context.Background(), Event{Status: StatusFired}))
}

func TestNewDispatcher_FromConfig(t *testing.T) {
	t.Parallel()

	_, err := NewDispatcher([]config.NotificationConfig{{Type: "pager", On: []string{"fire"}}})
	assert.ErrorContains(t, err, "unsupported notification type")

	_, err = NewDispatcher([]config.NotificationConfig{{Type: "webhook", On: []string{"fire"}}})
	assert.ErrorContains(t, err, "config.url is required")

	_, err = NewDispatcher([]config.NotificationConfig{{
		Type: "email",
		On:   []string{"both"},
		Config: config.NotificationDetails{
			SMTPHost: "smtp.example.com", SMTPPort: 587, From: "cron@example.com", To: "ops@example.com",
		},
	}})
	assert.NoError(t, err)
}

func TestWebhook_PostsEvent(t *testing.T) {
	t.Parallel()

	var got Event
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewWebhook(config.NotificationDetails{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t0k"}})
	require.NoError(t, err)

	event := Event{ID: "evt-1", Kind: KindFire, Status: StatusFired, Schedule: "nightly", Expression: "0 2 * * *"}
	require.NoError(t, n.Notify(context.Background(), event))

	assert.Equal(t, event, got)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Bearer t0k", headers.Get("Authorization"))
	assert.Equal(t, KindFire, headers.Get("X-Cronkit-Event"))
}

func TestWebhook_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhook(config.NotificationDetails{URL: srv.URL})
	require.NoError(t, err)

	err = n.Notify(context.Background(), Event{Kind: KindReport, Status: StatusFailure})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "nope")
}

func TestNewWebhook_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewWebhook(config.NotificationDetails{URL: "   "})
	assert.Error(t, err)
	_, err = NewWebhook(config.NotificationDetails{URL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = NewWebhook(config.NotificationDetails{URL: "https:///path-only"})
	assert.Error(t, err)
}

func TestNewEmail_Validation(t *testing.T) {
	t.Parallel()

	base := config.NotificationDetails{SMTPHost: "smtp", SMTPPort: 25, From: "a@b.example", To: "c@d.example"}

	for name, mutate := range map[string]func(*config.NotificationDetails){
		"no host":       func(d *config.NotificationDetails) { d.SMTPHost = "" },
		"bad port":      func(d *config.NotificationDetails) { d.SMTPPort = 70000 },
		"bad from":      func(d *config.NotificationDetails) { d.From = "not an address" },
		"no recipients": func(d *config.NotificationDetails) { d.To = " , " },
		"half auth":     func(d *config.NotificationDetails) { d.Username = "user" },
	} {
		d := base
		mutate(&d)
		_, err := NewEmail(d)
		assert.Error(t, err, name)
	}

	d := base
	d.To = "c@d.example, Ops <e@f.example>"
	n, err := NewEmail(d)
	require.NoError(t, err)
	e := n.(*emailNotifier)
	require.Len(t, e.to, 2)
	assert.Equal(t, "e@f.example", e.to[1].Address)
	assert.Equal(t, "smtp:25", e.addr)
}

func TestEmail_SendsMessage(t *testing.T) {
	t.Parallel()

	n, err := NewEmail(config.NotificationDetails{
		SMTPHost: "smtp.example.com", SMTPPort: 587,
		From: "cron@example.com", To: "ops@example.com, dev@example.com",
		Username: "cron", Password: "pw",
	})
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	e := n.(*emailNotifier)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), Event{ID: "evt-2", Kind: KindReport, Status: StatusFailure, Error: "disk full"}))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "cron@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "Subject: [cronkit] report failure\r\n")
	assert.Contains(t, msg, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.Contains(t, msg, "\r\n\r\nEvent evt-2\r\n")
	assert.Contains(t, msg, "error:")
	assert.Contains(t, msg, "disk full")

	e.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	err = n.Notify(context.Background(), Event{Kind: KindReport})
	assert.ErrorContains(t, err, "smtp.example.com:587")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, Event{}), context.Canceled)
}

func TestBuildEmailBody(t *testing.T) {
	t.Parallel()

	body := buildEmailBody(Event{
		ID:           "evt-9",
		Kind:         KindFire,
		Status:       StatusFired,
		Schedule:     "nightly",
		Expression:   "0 2 * * *",
		ScheduledFor: "2026-01-02T02:00:00Z",
	})

	assert.True(t, strings.HasPrefix(body, "Event evt-9\n"))
	assert.Regexp(t, `(?m)^schedule: +nightly$`, body)
	assert.Regexp(t, `(?m)^scheduled for: 2026-01-02T02:00:00Z$`, body)
	assert.NotContains(t, body, "error:")
	assert.NotContains(t, body, "bytes:")
	assert.Equal(t, "[cronkit] nightly fired", Event{Kind: KindFire, Schedule: "nightly"}.Subject())
}
