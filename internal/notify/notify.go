package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dev-tams/cronkit/internal/config"
)

const (
	StatusFired   = "fired"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const (
	KindFire   = "fire"
	KindReport = "report"
)

// Event is the notification payload shared by all notifier implementations.
// Fire events carry the schedule that matched; report events carry the
// destination and size of the written report.
type Event struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Schedule     string `json:"schedule,omitempty"`
	Expression   string `json:"expression,omitempty"`
	Description  string `json:"description,omitempty"`
	ScheduledFor string `json:"scheduled_for,omitempty"`
	Dest         string `json:"dest,omitempty"`
	Bytes        int64  `json:"bytes,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Subject is the one-line summary used by notifiers that need a title.
func (e Event) Subject() string {
	switch e.Kind {
	case KindFire:
		return fmt.Sprintf("[cronkit] %s fired", e.Schedule)
	default:
		return fmt.Sprintf("[cronkit] report %s", e.Status)
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type route struct {
	onFire    bool
	onSuccess bool
	onFailure bool
	notifier  Notifier
}

var factories = map[string]func(config.NotificationDetails) (Notifier, error){
	"webhook": NewWebhook,
	"email":   NewEmail,
}

type Dispatcher struct {
	routes []route
}

func NewDispatcher(cfgs []config.NotificationConfig) (*Dispatcher, error) {
	routes := make([]route, 0, len(cfgs))
	for i, n := range cfgs {
		r, err := parseOn(n.On)
		if err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}

		typ := strings.ToLower(strings.TrimSpace(n.Type))
		factory, ok := factories[typ]
		if !ok {
			return nil, fmt.Errorf("notifications[%d]: unsupported notification type %q", i, n.Type)
		}
		if r.notifier, err = factory(n.Config); err != nil {
			return nil, fmt.Errorf("notifications[%d] %s: %w", i, typ, err)
		}
		routes = append(routes, r)
	}
	return &Dispatcher{routes: routes}, nil
}

// NewDispatcherWith builds a dispatcher that sends every event status
// listed in on to n.
func NewDispatcherWith(n Notifier, on ...string) (*Dispatcher, error) {
	r, err := parseOn(on)
	if err != nil {
		return nil, err
	}
	r.notifier = n
	return &Dispatcher{routes: []route{r}}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil || len(d.routes) == 0 {
		return nil
	}

	var errs []error
	for i, r := range d.routes {
		if !r.wants(event.Status) {
			continue
		}
		if err := r.notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notification route %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (r route) wants(status string) bool {
	switch status {
	case StatusFired:
		return r.onFire
	case StatusSuccess:
		return r.onSuccess
	case StatusFailure:
		return r.onFailure
	default:
		return false
	}
}

func parseOn(raw []string) (route, error) {
	var r route
	if len(raw) == 0 {
		return r, fmt.Errorf("on must include fire, success, failure, both, or all")
	}

	for _, v := range raw {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "fire":
			r.onFire = true
		case "success":
			r.onSuccess = true
		case "failure":
			r.onFailure = true
		case "both":
			r.onSuccess = true
			r.onFailure = true
		case "all":
			r.onFire = true
			r.onSuccess = true
			r.onFailure = true
		default:
			return route{}, fmt.Errorf("on contains unsupported value %q", v)
		}
	}
	return r, nil
}
