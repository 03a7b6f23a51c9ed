package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/imkarma/zedd/internal/config"
	"github.com/imkarma/zedd/internal/state"
	"github.com/imkarma/zedd/internal/store"
	"github.com/imkarma/zedd/internal/timeutil"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

const dayLayout = "2006-01-02"

// dataPath returns the path to a file inside the data directory.
func dataPath(parts ...string) string {
	elems := append([]string{dataDir}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if zedd is not initialized.
func mustStore() (*store.Store, error) {
	s, err := store.Open(dataPath(config.DBFile))
	if errors.Is(err, store.ErrNotInitialized) {
		return nil, fmt.Errorf("zedd not initialized. Run: zedd init")
	}
	return s, err
}

func loadConfig() (*config.Config, error) {
	return config.Load(dataPath(config.ConfigFile))
}

// loadState restores the newest usable snapshot, or an empty state when
// nothing has been saved yet.
func loadState(s *store.Store) (*state.State, error) {
	var st *state.State
	_, err := s.LoadNewest(func(snap state.Snapshot) error {
		restored, err := state.Restore(snap)
		if err != nil {
			return err
		}
		st = restored
		return nil
	})
	if errors.Is(err, store.ErrNoSnapshot) {
		return state.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

func saveState(s *store.Store, st *state.State) error {
	if _, err := s.Save(st.Snapshot(), time.Now()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// withState opens the store and the newest state, runs fn and saves the
// state again when fn succeeds.
func withState(fn func(st *state.State) error) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := loadState(s)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return saveState(s, st)
}

// parseRange reads --from/--to day flags. Empty values default to today.
func parseRange(from, to string) (time.Time, time.Time, error) {
	today := timeutil.StartOfDay(time.Now())
	start, end := today, today
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(dayLayout, from, time.Local); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(dayLayout, to, time.Local); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
		}
	} else if from != "" {
		end = start
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", end.Format(dayLayout), start.Format(dayLayout))
	}
	return start, end, nil
}
