package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dev-tams/cronkit/internal/config"
	"github.com/dev-tams/cronkit/internal/output"
	"github.com/dev-tams/cronkit/internal/report"
	"github.com/dev-tams/cronkit/internal/storage"
	"github.com/dev-tams/cronkit/internal/storage/prunable"
)

type ShowOptions struct {
	// File reads a report from the local filesystem instead of storage.
	File string
	// Key selects a report in the configured storage. Empty means the newest.
	Key  string
	JSON bool
}

// RunShow reads a report written by RunReport, reverses its pipeline and
// renders it to w.
func RunShow(ctx context.Context, cfg *config.Config, opts ShowOptions, w io.Writer) error {
	src, name, err := openReport(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	doc, err := readReport(src, name, cfg.Report)
	if err != nil {
		return err
	}

	if opts.JSON {
		return output.RenderJSON(w, doc)
	}
	report.Render(w, doc)
	return nil
}

func openReport(ctx context.Context, cfg *config.Config, opts ShowOptions) (io.ReadCloser, string, error) {
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return nil, "", fmt.Errorf("open report file: %w", err)
		}
		return f, filepath.Base(opts.File), nil
	}

	if cfg.Report.Storage == "" {
		return nil, "", fmt.Errorf("report.storage is required to show a stored report (or pass --file)")
	}
	st, err := storage.Named(ctx, cfg, cfg.Report.Storage)
	if err != nil {
		return nil, "", err
	}

	key := opts.Key
	if key == "" {
		key, err = latestReportKey(ctx, st)
		if err != nil {
			return nil, "", err
		}
	}

	r, err := st.OpenReader(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("open report %s: %w", key, err)
	}
	return r, path.Base(key), nil
}

func latestReportKey(ctx context.Context, pr prunable.Prunable) (string, error) {
	objects, err := pr.List(ctx, report.Dir)
	if err != nil {
		return "", fmt.Errorf("list reports: %w", err)
	}

	var latest string
	var latestAt time.Time
	for _, o := range objects {
		t, ok := report.TimeFromKey(o.Key)
		if !ok {
			continue
		}
		if latest == "" || t.After(latestAt) {
			latest, latestAt = o.Key, t
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no reports found in %s: %w", pr.BasePath(), storage.ErrNotFound)
	}
	return latest, nil
}

// readReport decodes a report using the pipeline the config describes.
// A suffix that disagrees with the config is logged, not fatal.
func readReport(src io.Reader, name string, rc config.ReportConfig) (report.Document, error) {
	expected := report.Ext(rc.Compression, rc.Encryption.Enabled)
	if got := report.Suffix(name); got != expected {
		log.Warn().
			Str("file", name).
			Str("expected", expected).
			Str("got", got).
			Msg("report suffix does not match config")
	}

	password := ""
	if rc.Encryption.Enabled {
		if rc.Encryption.Password == "" {
			return report.Document{}, fmt.Errorf("report.encryption.password is required to read encrypted reports")
		}
		password = rc.Encryption.Password
	}

	var cs closeStack
	stream := decodeStream(src, rc.Compression, password, &cs)
	defer cs.closeAll()

	var doc report.Document
	if err := json.NewDecoder(stream).Decode(&doc); err != nil {
		return report.Document{}, fmt.Errorf("decode report %s: %w", name, err)
	}
	return doc, nil
}
