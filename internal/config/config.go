package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Calendars is the list of ICS feed URLs to poll.
	Calendars []string `yaml:"calendars" json:"calendars"`

	// WebhookURL receives normal notification messages.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`

	// WebhookErrorURL receives error notifications. Falls back to
	// WebhookURL when empty.
	WebhookErrorURL string `yaml:"webhook_error_url" json:"webhook_error_url"`

	// PollMinutes is the poll interval. It doubles as the width of the
	// change-detection windows and of the digest trigger minute window.
	PollMinutes int `yaml:"poll_minutes" json:"poll_minutes"`

	// DigestWeekday is the weekday of the weekly digest ("monday".."sunday").
	// Every other weekday gets the daily digest.
	DigestWeekday string `yaml:"digest_weekday" json:"digest_weekday"`

	// WeekHour / DayHour are the UTC hours at which the weekly and daily
	// digests fire.
	WeekHour int `yaml:"week_hour" json:"week_hour"`
	DayHour  int `yaml:"day_hour" json:"day_hour"`

	// Timezone is the IANA timezone used for rendering event times
	// (e.g. "Europe/Berlin"). Storage and window arithmetic stay in UTC.
	Timezone string `yaml:"timezone" json:"timezone"`

	// CacheDir is the base directory for the per-feed HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Calendars:     []string{},
		PollMinutes:   2,
		DigestWeekday: "monday",
		WeekHour:      7,
		DayHour:       8,
		Timezone:      "Europe/Berlin",
		CacheDir:      "./var/ics-cache",
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Calendars == nil {
		c.Calendars = []string{}
	}
	if c.PollMinutes <= 0 {
		c.PollMinutes = 2
	}
	if _, ok := weekdays[strings.ToLower(c.DigestWeekday)]; !ok {
		c.DigestWeekday = "monday"
	}
	if c.WeekHour < 0 || c.WeekHour > 23 {
		c.WeekHour = 7
	}
	if c.DayHour < 0 || c.DayHour > 23 {
		c.DayHour = 8
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.WebhookErrorURL == "" {
		c.WebhookErrorURL = c.WebhookURL
	}
}

// Interval returns the poll interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.PollMinutes) * time.Minute
}

// Weekday returns the weekly digest weekday. Normalize guarantees the name
// is valid.
func (c *Config) Weekday() time.Weekday {
	return weekdays[strings.ToLower(c.DigestWeekday)]
}

// Location resolves the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks settings that Normalize cannot default away.
func (c *Config) Validate() error {
	if len(c.Calendars) == 0 {
		return errors.New("no calendar URLs configured")
	}
	if c.WebhookURL == "" {
		return errors.New("no webhook URL configured")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise the YAML is unmarshalled over the defaults and normalized.
//   - Environment variables CALENDAR_URLS (comma separated), WEBHOOK_URL and
//     WEBHOOK_ERROR_URL override their file counterparts.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// First run: create a default config file.
		if saveErr := Save(path, cfg); saveErr != nil {
			return cfg, saveErr
		}
	default:
		return nil, err
	}

	applyEnv(cfg)
	cfg.Normalize()

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CALENDAR_URLS"); v != "" {
		urls := make([]string, 0)
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		cfg.Calendars = urls
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("WEBHOOK_ERROR_URL"); v != "" {
		cfg.WebhookErrorURL = v
	}
}

// Save writes the given configuration to the specified path.
//
// Ensures the parent directory exists (0700), marshals to YAML and writes
// atomically via a temp file + rename with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calhook-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
