// Package config loads taskngo settings from defaults, an optional YAML file
// and TASKNGO_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/taskngo/internal/model"
)

const (
	EnvPrefix         = "TASKNGO"
	FileName          = "taskngo"
	ProviderLog       = "log"
	ProviderOneSignal = "onesignal"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reset     ResetConfig     `mapstructure:"reset"`
	Push      PushConfig      `mapstructure:"push"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type SchedulerConfig struct {
	Tick                         time.Duration `mapstructure:"tick"`
	TickWindow                   time.Duration `mapstructure:"tick_window"`
	DecayWindow                  time.Duration `mapstructure:"decay_window"`
	AutoArchiveOverdueAtEndOfDay bool          `mapstructure:"auto_archive_overdue_at_end_of_day"`
}

type ResetConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	WeekStart string `mapstructure:"week_start"`
}

type PushConfig struct {
	Provider         string        `mapstructure:"provider"`
	AppID            string        `mapstructure:"app_id"`
	APIKey           string        `mapstructure:"api_key"`
	Recipient        string        `mapstructure:"recipient"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ScheduleOnCreate bool          `mapstructure:"schedule_on_create"`
	QueueSize        int           `mapstructure:"queue_size"`
}

type AlertsConfig struct {
	Bell    bool `mapstructure:"bell"`
	Desktop bool `mapstructure:"desktop"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func DefaultConfig() Config {
	return Config{
		Scheduler: SchedulerConfig{
			Tick:        time.Second,
			TickWindow:  3 * time.Second,
			DecayWindow: 10 * time.Second,
		},
		Reset: ResetConfig{
			Enabled:   true,
			WeekStart: "sunday",
		},
		Push: PushConfig{
			Provider:         ProviderLog,
			BaseURL:          "https://onesignal.com",
			Timeout:          10 * time.Second,
			ScheduleOnCreate: true,
			QueueSize:        256,
		},
		Alerts: AlertsConfig{
			Bell: true,
		},
		Storage: StorageConfig{
			Path: filepath.Join(Dir(), "tasks.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(Dir(), "taskngo.log"),
		},
	}
}

// Dir is the per-user taskngo directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskngo"
	}
	return filepath.Join(home, ".taskngo")
}

// DefaultPath is where `config init` writes the config file.
func DefaultPath() string {
	return filepath.Join(Dir(), FileName+".yaml")
}

// Load reads configuration. With an empty path the file is searched for in
// $TASKNGO_CONFIG_PATH, the working directory and ~/.taskngo; a missing file
// is not an error. An explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if override := os.Getenv(EnvPrefix + "_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	for key, value := range flatten("", cfg.settings()) {
		v.SetDefault(key, value)
	}
}

func flatten(prefix string, in map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func (c Config) Validate() error {
	var problems []string
	if c.Scheduler.Tick <= 0 {
		problems = append(problems, "scheduler.tick must be positive")
	}
	if c.Scheduler.TickWindow < c.Scheduler.Tick {
		problems = append(problems, "scheduler.tick_window must be at least scheduler.tick")
	}
	if c.Scheduler.DecayWindow <= 0 {
		problems = append(problems, "scheduler.decay_window must be positive")
	}
	if _, err := model.ParseWeekday(c.Reset.WeekStart); err != nil {
		problems = append(problems, fmt.Sprintf("reset.week_start: %v", err))
	}
	switch c.Push.Provider {
	case ProviderLog:
	case ProviderOneSignal:
		if c.Push.AppID == "" || c.Push.APIKey == "" || c.Push.Recipient == "" {
			problems = append(problems, "push.app_id, push.api_key and push.recipient are required for onesignal")
		}
	default:
		problems = append(problems, fmt.Sprintf("push.provider %q is not one of log, onesignal", c.Push.Provider))
	}
	if c.Push.QueueSize <= 0 {
		problems = append(problems, "push.queue_size must be positive")
	}
	if c.Push.Timeout <= 0 {
		problems = append(problems, "push.timeout must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// WeekStart returns the parsed reset.week_start.
func (c Config) WeekStart() time.Weekday {
	day, err := model.ParseWeekday(c.Reset.WeekStart)
	if err != nil {
		return time.Sunday
	}
	return day
}

// settings is the YAML document shape of the config. Durations are written
// as strings such as "10s".
func (c Config) settings() map[string]any {
	return map[string]any{
		"scheduler": map[string]any{
			"tick":                               c.Scheduler.Tick.String(),
			"tick_window":                        c.Scheduler.TickWindow.String(),
			"decay_window":                       c.Scheduler.DecayWindow.String(),
			"auto_archive_overdue_at_end_of_day": c.Scheduler.AutoArchiveOverdueAtEndOfDay,
		},
		"reset": map[string]any{
			"enabled":    c.Reset.Enabled,
			"week_start": c.Reset.WeekStart,
		},
		"push": map[string]any{
			"provider":           c.Push.Provider,
			"app_id":             c.Push.AppID,
			"api_key":            c.Push.APIKey,
			"recipient":          c.Push.Recipient,
			"base_url":           c.Push.BaseURL,
			"timeout":            c.Push.Timeout.String(),
			"schedule_on_create": c.Push.ScheduleOnCreate,
			"queue_size":         c.Push.QueueSize,
		},
		"alerts": map[string]any{
			"bell":    c.Alerts.Bell,
			"desktop": c.Alerts.Desktop,
		},
		"storage": map[string]any{
			"path": c.Storage.Path,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
			"file":   c.Log.File,
		},
	}
}

// YAML renders the config. The push API key is masked unless reveal is set.
func (c Config) YAML(reveal bool) ([]byte, error) {
	doc := c.settings()
	if !reveal && c.Push.APIKey != "" {
		doc["push"].(map[string]any)["api_key"] = "********"
	}
	return yaml.Marshal(doc)
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	body, err := DefaultConfig().YAML(true)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	content := append([]byte("# taskngo configuration\n"), body...)
	return os.WriteFile(path, content, 0o644)
}
