package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/imkarma/zedd/internal/report"
	"github.com/imkarma/zedd/internal/tracker"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// File names inside the data directory.
const (
	ConfigFile = "config.yaml"
	DBFile     = "zedd.db"
	LogFile    = "zedd.log"
)

// Config is the user configuration of the tracker.
type Config struct {
	Version         int       `yaml:"version"`
	MinIdleTimeMin  int       `yaml:"min_idle_time_min"`      // Away threshold in minutes
	TickIntervalSec int       `yaml:"tick_interval_sec"`      // Seconds between clock samples
	Workmask        []float64 `yaml:"workmask,flow"`          // Target hours Monday..Sunday
	StartHour       int       `yaml:"start_hour"`             // Start of placeholder days
	ErsatzTask      string    `yaml:"ersatz_task"`            // Task for placeholder days
	TimeFormat      string    `yaml:"time_format"`            // hhmm or bt
	KeepSnapshots   bool      `yaml:"keep_snapshots"`         // Keep a pruned save history
	IdleCommand     string    `yaml:"idle_command,omitempty"` // Overrides host idle detection
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version:         1,
		MinIdleTimeMin:  tracker.DefaultIdleThresholdMinutes,
		TickIntervalSec: 5,
		Workmask:        []float64{8, 8, 8, 8, 8, 0, 0},
		StartHour:       8,
		ErsatzTask:      "ERSATZ",
		TimeFormat:      report.FormatHHMM,
		KeepSnapshots:   true,
	}
}

// Load reads the config file at path. A missing file yields DefaultConfig;
// fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	if len(c.Workmask) != 7 {
		return fmt.Errorf("%w: workmask needs 7 entries (Monday to Sunday), got %d", ErrInvalid, len(c.Workmask))
	}
	for i, h := range c.Workmask {
		if h < 0 || h > 24 {
			return fmt.Errorf("%w: workmask[%d] = %v is not between 0 and 24", ErrInvalid, i, h)
		}
	}
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("%w: start_hour must be 0-23, got %d", ErrInvalid, c.StartHour)
	}
	if c.TimeFormat != report.FormatHHMM && c.TimeFormat != report.FormatBT {
		return fmt.Errorf("%w: time_format must be %q or %q, got %q", ErrInvalid, report.FormatHHMM, report.FormatBT, c.TimeFormat)
	}
	if c.TickIntervalSec < 0 {
		return fmt.Errorf("%w: tick_interval_sec must not be negative", ErrInvalid)
	}
	return nil
}

// IdleThresholdMinutes is the away threshold, at least one minute.
func (c *Config) IdleThresholdMinutes() int {
	if c.MinIdleTimeMin < 1 {
		return 1
	}
	return c.MinIdleTimeMin
}

// TickInterval returns the sampling interval, 5 seconds when unset.
func (c *Config) TickInterval() int {
	if c.TickIntervalSec <= 0 {
		return 5
	}
	return c.TickIntervalSec
}

// Calendar returns the working week for hour reports.
func (c *Config) Calendar() report.Calendar {
	return report.Calendar{Workmask: c.Workmask, StartHour: c.StartHour}
}

// DataDir returns $ZEDD_DIR, or the OS-appropriate default data directory.
//
//   - macOS:   ~/Library/Application Support/zedd
//   - Linux:   $XDG_DATA_HOME/zedd (fallback ~/.local/share/zedd)
//   - Windows: %LOCALAPPDATA%\zedd (fallback %APPDATA%\zedd)
func DataDir() string {
	if dir := os.Getenv("ZEDD_DIR"); dir != "" {
		return dir
	}
	return defaultDataDirForOS(runtime.GOOS)
}

func defaultDataDirForOS(goos string) string {
	home, _ := os.UserHomeDir()

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "zedd")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "zedd")
		}
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, "zedd")
		}
		return filepath.Join(home, "zedd")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "zedd")
		}
		return filepath.Join(home, ".local", "share", "zedd")
	}
}
