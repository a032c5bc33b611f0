package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/history"
	"github.com/dev-tams/cronkit/internal/metrics"
	"github.com/dev-tams/cronkit/internal/notify"
	"github.com/dev-tams/cronkit/internal/schedule"
)

type daemonJob struct {
	cfg  config.ScheduleConfig
	expr schedule.Expression
}

// Daemon fires every schedule whose expression matches the current minute,
// at most once per schedule per minute.
type Daemon struct {
	jobs       []daemonJob
	history    *history.Store // nil disables recording
	dispatcher *notify.Dispatcher
	poll       time.Duration
	now        func() time.Time

	lastMinute  time.Time
	lastRunByID map[string]time.Time
}

// NewDaemon strictly parses every active schedule. hist may be nil.
func NewDaemon(ctx context.Context, cfg *config.Config, dispatcher *notify.Dispatcher, hist *history.Store) (*Daemon, error) {
	active := cfg.ActiveSchedules()
	jobs := make([]daemonJob, 0, len(active))
	for _, s := range active {
		expr, err := schedule.ParseStrict(s.Expression)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: invalid expression %q: %w", s.Name, s.Expression, err)
		}
		jobs = append(jobs, daemonJob{cfg: s, expr: expr})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("daemon: no active schedules configured")
	}

	d := &Daemon{
		jobs:        jobs,
		history:     hist,
		dispatcher:  dispatcher,
		poll:        cfg.Daemon.PollInterval,
		now:         time.Now,
		lastRunByID: make(map[string]time.Time, len(jobs)),
	}
	if d.poll <= 0 {
		d.poll = config.DefaultPollInterval
	}

	// resume without refiring a minute recorded before a restart
	if hist != nil {
		last, err := hist.LastFired(ctx)
		if err != nil {
			return nil, err
		}
		for name, t := range last {
			d.lastRunByID[name] = t
		}
	}
	return d, nil
}

// RunDaemon wires the history store and notifications from cfg and runs the
// daemon until ctx is canceled.
func RunDaemon(ctx context.Context, cfg *config.Config) error {
	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return err
	}

	var hist *history.Store
	if cfg.Daemon.History != "" {
		hist, err = history.Open(cfg.Daemon.History)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	d, err := NewDaemon(ctx, cfg, dispatcher, hist)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

func (d *Daemon) Run(ctx context.Context) error {
	metrics.SetSchedulesLoaded(len(d.jobs))
	log.Info().Int("schedules", len(d.jobs)).Dur("poll", d.poll).Msg("daemon started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("daemon: shutdown requested")
			return nil
		default:
		}

		if d.Tick(ctx, d.now()) == nil {
			sleepUntilNextPoll(ctx, d.poll)
		}
	}
}

// Tick evaluates the minute containing now and fires the due schedules.
// It returns nil when that minute was already evaluated.
func (d *Daemon) Tick(ctx context.Context, now time.Time) []history.Firing {
	minute := truncateMinute(now)
	if minute.Equal(d.lastMinute) {
		return nil
	}
	d.lastMinute = minute

	fired := []history.Firing{}
	for _, job := range d.dueJobs(minute) {
		f, ok := d.fire(ctx, job, minute)
		d.lastRunByID[job.cfg.Name] = minute
		if ok {
			fired = append(fired, f)
		}
	}
	return fired
}

func (d *Daemon) dueJobs(minute time.Time) []daemonJob {
	due := make([]daemonJob, 0, len(d.jobs))
	for _, job := range d.jobs {
		if !job.expr.Matches(minute) {
			continue
		}
		if last, ok := d.lastRunByID[job.cfg.Name]; ok && !minute.After(last) {
			continue
		}
		due = append(due, job)
	}
	return due
}

func (d *Daemon) fire(ctx context.Context, job daemonJob, minute time.Time) (history.Firing, bool) {
	f := history.Firing{
		ID:           "fir_" + uuid.NewString(),
		Schedule:     job.cfg.Name,
		Expression:   job.cfg.Expression,
		ScheduledFor: minute,
		FiredAt:      d.now(),
		Status:       history.StatusFired,
	}

	if d.history != nil {
		if _, err := d.history.Record(ctx, f); err != nil {
			if errors.Is(err, history.ErrDuplicate) {
				log.Debug().Str("schedule", f.Schedule).Time("minute", minute).Msg("already fired")
				return f, false
			}
			log.Error().Err(err).Str("schedule", f.Schedule).Msg("record firing")
		}
	}

	log.Info().
		Str("id", f.ID).
		Str("schedule", f.Schedule).
		Str("expression", f.Expression).
		Time("scheduled_for", minute).
		Msg("schedule fired")

	event := notify.Event{
		ID:           f.ID,
		Kind:         notify.KindFire,
		Status:       notify.StatusFired,
		Schedule:     f.Schedule,
		Expression:   f.Expression,
		Description:  job.expr.Describe(),
		ScheduledFor: minute.Format(time.RFC3339),
	}

	notifyCtx, cancel := notificationContext(ctx)
	err := d.dispatcher.Notify(notifyCtx, event)
	cancel()
	if err != nil {
		f.Status = history.StatusFailed
		f.Error = err.Error()
		log.Warn().Err(err).Str("id", f.ID).Str("schedule", f.Schedule).Msg("fire notification failed")
		if d.history != nil {
			if err := d.history.MarkFailed(ctx, f.ID, f.Error); err != nil {
				log.Error().Err(err).Str("id", f.ID).Msg("mark firing failed")
			}
		}
	}

	metrics.IncScheduleFires(f.Schedule, f.Status)
	return f, true
}

// truncateMinute drops seconds on t's own wall clock.
func truncateMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
