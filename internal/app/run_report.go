package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/metrics"
	"github.com/dev-tams/cronkit/internal/notify"
	"github.com/dev-tams/cronkit/internal/report"
	"github.com/dev-tams/cronkit/internal/storage"
)

const notificationTimeout = 5 * time.Second

type ReportResult struct {
	ID       string
	Status   string
	Key      string
	Bytes    int64
	Dest     string
	Duration time.Duration
	Err      error
}

// RunReport builds the upcoming-runs report for every configured schedule
// as of now and writes it to the report storage.
func RunReport(ctx context.Context, cfg *config.Config, now time.Time) (ReportResult, error) {
	if cfg.Report.Storage == "" {
		return ReportResult{}, fmt.Errorf("report.storage is required")
	}

	st, err := storage.Named(ctx, cfg, cfg.Report.Storage)
	if err != nil {
		return ReportResult{}, err
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return ReportResult{}, err
	}

	return writeReport(ctx, cfg.Report, cfg.Schedules, st, dispatcher, now)
}

func writeReport(ctx context.Context, rc config.ReportConfig, schedules []config.ScheduleConfig, st storage.Storage, dispatcher *notify.Dispatcher, now time.Time) (ReportResult, error) {
	started := time.Now()

	count := rc.Count
	if count <= 0 {
		count = config.DefaultReportCount
	}
	doc := report.Build(schedules, now, count)
	res := ReportResult{ID: doc.ID, Key: report.Key(now, rc.Compression, rc.Encryption.Enabled)}

	finish := func(err error) (ReportResult, error) {
		res.Duration = time.Since(started)
		res.Status = notify.StatusSuccess
		if err != nil {
			res.Status = notify.StatusFailure
			res.Err = err
			log.Error().Err(err).Str("report", res.ID).Str("key", res.Key).Msg("report failed")
		} else {
			log.Info().
				Str("report", res.ID).
				Str("dest", res.Dest).
				Int64("bytes", res.Bytes).
				Dur("duration", res.Duration).
				Msg("report written")
		}
		metrics.RecordReport(res.Status, res.Bytes)
		notifyResult(ctx, dispatcher, res)
		return res, err
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return finish(fmt.Errorf("encode report: %w", err))
	}

	password := ""
	if rc.Encryption.Enabled {
		password = rc.Encryption.Password
	}

	log.Debug().
		Str("report", doc.ID).
		Bool("compression", rc.Compression).
		Bool("encryption", rc.Encryption.Enabled).
		Str("storage", st.Name()).
		Int("schedules", len(doc.Schedules)).
		Msg("report pipeline")

	w, dest, err := st.OpenWriter(ctx, res.Key)
	if err != nil {
		return finish(fmt.Errorf("open storage writer: %w", err))
	}
	res.Dest = dest

	var cs closeStack
	stream := encodeStream(bytes.NewReader(body), rc.Compression, password, &cs)

	copyDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// unblock the copy when the context ends mid-write
			cs.closeAll()
		case <-copyDone:
		}
	}()

	_, copyErr := io.Copy(w, stream)
	close(copyDone)
	cs.closeAll()

	if copyErr != nil {
		_ = storage.Abort(w, copyErr)
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return finish(fmt.Errorf("report timed out: %w", ctx.Err()))
		case errors.Is(ctx.Err(), context.Canceled):
			return finish(fmt.Errorf("report canceled: %w", ctx.Err()))
		}
		return finish(fmt.Errorf("write report: %w", copyErr))
	}
	if err := w.Close(); err != nil {
		return finish(fmt.Errorf("finalize storage write: %w", err))
	}
	res.Bytes = int64(len(body))

	if err := ApplyRetention(ctx, rc.Retention, st); err != nil {
		return finish(fmt.Errorf("retention failed: %w", err))
	}
	return finish(nil)
}

func notifyResult(ctx context.Context, dispatcher *notify.Dispatcher, res ReportResult) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	event := notify.Event{
		ID:       res.ID,
		Kind:     notify.KindReport,
		Status:   res.Status,
		Bytes:    res.Bytes,
		Dest:     res.Dest,
		Duration: res.Duration.Round(time.Millisecond).String(),
		Error:    errMsg,
	}

	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil {
		log.Warn().Err(err).Str("report", res.ID).Str("status", res.Status).Msg("notification failed")
	}
}

// notificationContext outlives cancellation of ctx so failures caused by a
// canceled run are still reported.
func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
