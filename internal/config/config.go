package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/waynehead99/SmartSchedular/internal/schedule"
)

type Config struct {
	Server        ServerConfig   `toml:"server"`
	Store         StoreConfig    `toml:"store"`
	Schedule      ScheduleConfig `toml:"schedule"`
	AI            AIConfig       `toml:"ai"`
	Notifications NotifyConfig   `toml:"notifications"`
	Calendar      CalendarConfig `toml:"calendar"`
	Logging       LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	ReadTimeoutSec  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSec int    `toml:"write_timeout_seconds"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type ScheduleConfig struct {
	WorkStart     string `toml:"work_start"`
	WorkEnd       string `toml:"work_end"`
	WorkDays      []int  `toml:"work_days"` // 1=Monday … 7=Sunday
	BufferMinutes int    `toml:"buffer_minutes"`
	HorizonDays   int    `toml:"horizon_days"`
	StepMinutes   int    `toml:"step_minutes"`
	SlotsPerTask  int    `toml:"slots_per_task"`
	Timezone      string `toml:"timezone"`
}

type AIConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout int    `toml:"timeout_seconds"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type CalendarConfig struct {
	Source string `toml:"source"` // ICS URL or file path for busy-interval import
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeoutSec:  10,
			WriteTimeoutSec: 30,
		},
		Schedule: ScheduleConfig{
			WorkStart:     "09:00",
			WorkEnd:       "17:00",
			WorkDays:      []int{1, 2, 3, 4, 5},
			BufferMinutes: 15,
			HorizonDays:   14,
			StepMinutes:   15,
			SlotsPerTask:  3,
		},
		AI: AIConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
			Timeout: 10,
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "smartsched"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("SMARTSCHED_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SMARTSCHED_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SMARTSCHED_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// BusinessCalendar converts the schedule section into engine configuration.
// Malformed values fall back to the defaults rather than failing startup.
func (c ScheduleConfig) BusinessCalendar() (schedule.BusinessCalendar, error) {
	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return schedule.BusinessCalendar{}, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}

	cal := schedule.DefaultCalendar(loc)
	if h, m, ok := parseClock(c.WorkStart); ok {
		cal.DayStartMin = h*60 + m
	}
	if h, m, ok := parseClock(c.WorkEnd); ok {
		cal.DayEndMin = h*60 + m
	}
	if cal.DayEndMin <= cal.DayStartMin {
		return schedule.BusinessCalendar{}, fmt.Errorf("work_end %q must be after work_start %q", c.WorkEnd, c.WorkStart)
	}
	if len(c.WorkDays) > 0 {
		cal.Weekdays = cal.Weekdays[:0]
		for _, d := range c.WorkDays {
			// Config uses 1=Monday … 7=Sunday; time.Weekday uses 0=Sunday.
			cal.Weekdays = append(cal.Weekdays, time.Weekday(d%7))
		}
	}
	if c.BufferMinutes > 0 {
		cal.BufferMinutes = c.BufferMinutes
	}
	if c.HorizonDays > 0 {
		cal.HorizonDays = c.HorizonDays
	}
	if c.StepMinutes > 0 {
		cal.StepMinutes = c.StepMinutes
	}
	if c.SlotsPerTask > 0 {
		cal.SlotsPerTask = c.SlotsPerTask
	}
	return cal, nil
}

func parseClock(s string) (int, int, bool) {
	if len(s) == 5 && s[2] == ':' {
		h, err1 := strconv.Atoi(s[:2])
		m, err2 := strconv.Atoi(s[3:])
		if err1 == nil && err2 == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return h, m, true
		}
	}
	return 0, 0, false
}
