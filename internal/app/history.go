package app

import (
	"context"
	"fmt"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/history"
)

// ListHistory returns the most recent firings recorded by the daemon.
func ListHistory(ctx context.Context, cfg *config.Config, scheduleName string, limit int) ([]history.Firing, error) {
	if cfg.Daemon.History == "" {
		return nil, fmt.Errorf("daemon.history is not configured")
	}

	store, err := history.Open(cfg.Daemon.History)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ListRecent(ctx, scheduleName, limit)
}
