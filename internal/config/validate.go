package config

import (
	"fmt"
	"strings"

	"github.com/dev-tams/cronkit/internal/schedule"
)

// simple range over values to validate needed variables

func (c *Config) Validate() error {
	if c.Version == 0 {
		return fmt.Errorf("config.version must be > 0")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format=%q must be console or json", c.Log.Format)
	}

	storageNames := map[string]struct{}{}
	for i, st := range c.Storage {
		if st.Name == "" {
			return fmt.Errorf("storage[%d].name is required", i)
		}
		if _, ok := storageNames[st.Name]; ok {
			return fmt.Errorf("storage[%d]: duplicate name %q", i, st.Name)
		}
		storageNames[st.Name] = struct{}{}

		switch st.Type {
		case "local", "s3":
		case "":
			return fmt.Errorf("storage[%d].type is required for storage %s", i, st.Name)
		default:
			return fmt.Errorf("storage[%d].type=%q is not local or s3", i, st.Type)
		}
	}

	scheduleNames := map[string]struct{}{}
	for i, s := range c.Schedules {
		if s.Name == "" {
			return fmt.Errorf("schedules[%d].name is required", i)
		}
		if _, ok := scheduleNames[s.Name]; ok {
			return fmt.Errorf("schedules[%d]: duplicate name %q", i, s.Name)
		}
		scheduleNames[s.Name] = struct{}{}

		if strings.TrimSpace(s.Expression) == "" {
			return fmt.Errorf("schedules[%d].expression is required", i)
		}
		if _, err := schedule.ParseStrict(s.Expression); err != nil {
			return fmt.Errorf("schedules[%d].expression %q: %w", i, s.Expression, err)
		}
	}

	r := c.Report
	if r.Storage != "" {
		if _, ok := storageNames[r.Storage]; !ok {
			return fmt.Errorf("report.storage=%q not found in storage list", r.Storage)
		}
	}
	if r.Count < 0 || r.Count > 1000 {
		return fmt.Errorf("report.count=%d must be between 1 and 1000", r.Count)
	}
	if r.Encryption.Enabled && r.Encryption.Password == "" {
		return fmt.Errorf("report.encryption.password is required when encryption is enabled")
	}
	if r.Retention.KeepDaily < 0 || r.Retention.KeepWeekly < 0 || r.Retention.KeepMonthly < 0 {
		return fmt.Errorf("report.retention values must be >= 0")
	}

	for i, n := range c.Notifications {
		if n.Type == "" {
			return fmt.Errorf("notifications[%d].type is required", i)
		}
	}

	if c.Daemon.PollInterval < 0 {
		return fmt.Errorf("daemon.poll_interval must be >= 0")
	}
	if c.Server.MaxCount < 0 {
		return fmt.Errorf("server.max_count must be >= 0")
	}
	return nil
}
