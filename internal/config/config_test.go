package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ConfigFile)
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ConfigFile))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinIdleTimeMin != 15 || cfg.StartHour != 8 || cfg.ErsatzTask != "ERSATZ" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Workmask) != 7 || cfg.Workmask[0] != 8 || cfg.Workmask[6] != 0 {
		t.Fatalf("unexpected default workmask: %v", cfg.Workmask)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := writeConfig(t, `version: 1
min_idle_time_min: 10
time_format: bt
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinIdleTimeMin != 10 {
		t.Errorf("expected 10, got %d", cfg.MinIdleTimeMin)
	}
	if cfg.TimeFormat != "bt" {
		t.Errorf("expected bt, got %q", cfg.TimeFormat)
	}
	if cfg.TickIntervalSec != 5 || !cfg.KeepSnapshots {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"short workmask":   "workmask: [8, 8, 8]\n",
		"negative hours":   "workmask: [8, 8, 8, 8, -1, 0, 0]\n",
		"start hour":       "start_hour: 24\n",
		"time format":      "time_format: decimal\n",
		"negative ticking": "tick_interval_sec: -1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, data))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "workmask: [\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIdleThresholdMinutes_ClampsToOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinIdleTimeMin = 0
	if got := cfg.IdleThresholdMinutes(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	cfg.MinIdleTimeMin = 20
	if got := cfg.IdleThresholdMinutes(); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}

func TestSave_And_Reload(t *testing.T) {
	p := filepath.Join(t.TempDir(), ConfigFile)

	cfg := DefaultConfig()
	cfg.Workmask = []float64{8, 8, 8, 8, 6, 0, 0}
	cfg.ErsatzTask = "Urlaub"

	if err := Save(p, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(p)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Workmask[4] != 6 {
		t.Fatalf("workmask lost after round-trip: %v", loaded.Workmask)
	}
	if loaded.ErsatzTask != "Urlaub" {
		t.Fatalf("ersatz task lost after round-trip: %q", loaded.ErsatzTask)
	}
	if cal := loaded.Calendar(); cal.StartHour != 8 || len(cal.Workmask) != 7 {
		t.Fatalf("unexpected calendar: %+v", cal)
	}
}

func TestDataDir_Env(t *testing.T) {
	t.Setenv("ZEDD_DIR", "/tmp/zedd-test")
	if got := DataDir(); got != "/tmp/zedd-test" {
		t.Fatalf("expected ZEDD_DIR, got %q", got)
	}
}

func TestDefaultDataDirForOS(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	if got := defaultDataDirForOS("linux"); got != filepath.Join("/xdg", "zedd") {
		t.Fatalf("linux: got %q", got)
	}
	t.Setenv("LOCALAPPDATA", `C:\Local`)
	if got := defaultDataDirForOS("windows"); got != filepath.Join(`C:\Local`, "zedd") {
		t.Fatalf("windows: got %q", got)
	}
	home, _ := os.UserHomeDir()
	if got := defaultDataDirForOS("darwin"); got != filepath.Join(home, "Library", "Application Support", "zedd") {
		t.Fatalf("darwin: got %q", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "min_idle_time_min: 15\n")
	changes := make(chan *Config, 4)
	stop, err := Watch(p, func(cfg *Config) { changes <- cfg })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(p, []byte("min_idle_time_min: 7\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.MinIdleTimeMin != 7 {
			t.Fatalf("expected reloaded threshold 7, got %d", cfg.MinIdleTimeMin)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}
