package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/report"
	"github.com/dev-tams/cronkit/internal/storage/prunable"
)

type reportEntry struct {
	obj prunable.ObjectInfo
	t   time.Time
}

// ApplyRetention prunes reports under report.Dir, keeping the newest report
// in each of the most recent daily, weekly and monthly buckets.
func ApplyRetention(ctx context.Context, r config.RetentionConfig, pr prunable.Prunable) error {
	if r.KeepDaily <= 0 && r.KeepWeekly <= 0 && r.KeepMonthly <= 0 {
		return nil
	}

	objects, err := pr.List(ctx, report.Dir)
	if err != nil {
		return fmt.Errorf("retention list: %w", err)
	}
	if len(objects) == 0 {
		return nil
	}

	entries := make([]reportEntry, 0, len(objects))
	skipped := 0
	for _, o := range objects {
		t, ok := report.TimeFromKey(o.Key)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, reportEntry{obj: o, t: t})
	}

	// newest first
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].t.After(entries[j].t)
	})

	keep := selectKeep(entries, r.KeepDaily, r.KeepWeekly, r.KeepMonthly)

	deleted := 0
	for _, e := range entries {
		if keep[e.obj.Key] {
			continue
		}
		if err := pr.Delete(ctx, e.obj.Key); err != nil {
			return fmt.Errorf("retention delete: %w", err)
		}
		deleted++
	}

	log.Debug().
		Str("base", pr.BasePath()).
		Int("kept", len(keep)).
		Int("deleted", deleted).
		Int("skipped", skipped).
		Msg("retention applied")

	return nil
}

// bucket keeps the newest report for each of the first limit distinct keys.
type bucket struct {
	limit int
	key   func(time.Time) string
	seen  map[string]bool
}

func (b *bucket) full() bool { return len(b.seen) >= b.limit }

func isoWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// selectKeep expects entries newest first.
func selectKeep(entries []reportEntry, keepDaily, keepWeekly, keepMonthly int) map[string]bool {
	buckets := []*bucket{
		{limit: keepDaily, key: func(t time.Time) string { return t.Format("2006-01-02") }},
		{limit: keepWeekly, key: isoWeek},
		{limit: keepMonthly, key: func(t time.Time) string { return t.Format("2006-01") }},
	}
	for _, b := range buckets {
		b.seen = make(map[string]bool, max(b.limit, 0))
	}

	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		done := true
		for _, b := range buckets {
			if b.full() {
				continue
			}
			if k := b.key(e.t.UTC()); !b.seen[k] {
				b.seen[k] = true
				keep[e.obj.Key] = true
			}
			if !b.full() {
				done = false
			}
		}
		if done {
			break
		}
	}
	return keep
}
