package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Version       int                  `mapstructure:"version"`
	Log           LogConfig            `mapstructure:"log"`
	Schedules     []ScheduleConfig     `mapstructure:"schedules"`
	Storage       []StorageConfig      `mapstructure:"storage"`
	Report        ReportConfig         `mapstructure:"report"`
	Notifications []NotificationConfig `mapstructure:"notifications"`
	Daemon        DaemonConfig         `mapstructure:"daemon"`
	Server        ServerConfig         `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// ScheduleConfig is one named cron expression.
type ScheduleConfig struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
	Notes      string `mapstructure:"notes"`
	Paused     bool   `mapstructure:"paused"`
}

type StorageConfig struct {
	Name  string       `mapstructure:"name"`
	Type  string       `mapstructure:"type"`
	Local *LocalConfig `mapstructure:"local"`
	S3    *S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ReportConfig controls the upcoming-runs report written by "cronkit report".
type ReportConfig struct {
	Storage     string           `mapstructure:"storage"`
	Count       int              `mapstructure:"count"`
	Compression bool             `mapstructure:"compression"`
	Encryption  EncryptionConfig `mapstructure:"encryption"`
	Retention   RetentionConfig  `mapstructure:"retention"`
}

type EncryptionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Password string `mapstructure:"password"`
}

type RetentionConfig struct {
	KeepDaily   int `mapstructure:"keep_daily"`
	KeepWeekly  int `mapstructure:"keep_weekly"`
	KeepMonthly int `mapstructure:"keep_monthly"`
}

type NotificationConfig struct {
	Type   string              `mapstructure:"type"`
	On     []string            `mapstructure:"on"`
	Config NotificationDetails `mapstructure:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port"`
	From     string            `mapstructure:"from"`
	To       string            `mapstructure:"to"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type DaemonConfig struct {
	// History is the SQLite file firings are recorded in. Empty disables it.
	History      string        `mapstructure:"history"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	MaxCount int    `mapstructure:"max_count"`
}

const (
	DefaultReportCount  = 5
	DefaultPollInterval = 500 * time.Millisecond
	DefaultServerAddr   = ":8080"
	DefaultMaxCount     = 100
)

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Version: 1,
		Log:     LogConfig{Level: "info", Format: "console"},
		Report:  ReportConfig{Count: DefaultReportCount},
		Daemon:  DaemonConfig{PollInterval: DefaultPollInterval},
		Server:  ServerConfig{Addr: DefaultServerAddr, MaxCount: DefaultMaxCount},
	}
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	def := Default()
	v.SetDefault("version", def.Version)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("report.count", def.Report.Count)
	v.SetDefault("daemon.poll_interval", def.Daemon.PollInterval)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.max_count", def.Server.MaxCount)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ExpandEnv(&cfg)

	return &cfg, nil
}

// ExpandEnv replaces ${VAR} references in every string setting.
func ExpandEnv(cfg *Config) {
	cfg.Log.Level = os.ExpandEnv(cfg.Log.Level)
	cfg.Log.Format = os.ExpandEnv(cfg.Log.Format)

	for i := range cfg.Schedules {
		s := &cfg.Schedules[i]
		s.Name = os.ExpandEnv(s.Name)
		s.Expression = os.ExpandEnv(s.Expression)
	}

	for i := range cfg.Storage {
		st := &cfg.Storage[i]
		st.Name = os.ExpandEnv(st.Name)
		st.Type = os.ExpandEnv(st.Type)
		if st.Local != nil {
			st.Local.Path = os.ExpandEnv(st.Local.Path)
		}
		if st.S3 != nil {
			st.S3.Bucket = os.ExpandEnv(st.S3.Bucket)
			st.S3.Region = os.ExpandEnv(st.S3.Region)
			st.S3.Prefix = os.ExpandEnv(st.S3.Prefix)
			st.S3.Endpoint = os.ExpandEnv(st.S3.Endpoint)
			st.S3.AccessKey = os.ExpandEnv(st.S3.AccessKey)
			st.S3.SecretKey = os.ExpandEnv(st.S3.SecretKey)
		}
	}

	cfg.Report.Storage = os.ExpandEnv(cfg.Report.Storage)
	cfg.Report.Encryption.Password = os.ExpandEnv(cfg.Report.Encryption.Password)

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}

	cfg.Daemon.History = os.ExpandEnv(cfg.Daemon.History)
	cfg.Server.Addr = os.ExpandEnv(cfg.Server.Addr)
}

// StorageByName returns the storage entry called name.
func (c *Config) StorageByName(name string) (StorageConfig, bool) {
	for _, st := range c.Storage {
		if st.Name == name {
			return st, true
		}
	}
	return StorageConfig{}, false
}

// ActiveSchedules returns the schedules that are not paused.
func (c *Config) ActiveSchedules() []ScheduleConfig {
	out := make([]ScheduleConfig, 0, len(c.Schedules))
	for _, s := range c.Schedules {
		if !s.Paused {
			out = append(out, s)
		}
	}
	return out
}
