package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Table file names looked up inside the configured directory.
const (
	RiskFile       = "risk.yaml"
	PreferenceFile = "preference.yaml"
	MerchantFile   = "merchant.yaml"
)

// Store holds the current table snapshot behind an atomic pointer. Readers
// take a snapshot once per request; Reload builds and validates a complete
// replacement before swapping it in, so a failed reload leaves the previous
// snapshot untouched.
type Store struct {
	dir     string
	tables  atomic.Pointer[Tables]
	logger  *slog.Logger
	reloads atomic.Int64
}

// NewStore loads the tables from dir and returns a ready store. An empty dir
// serves the built-in defaults. Load failures are returned, never papered
// over with a partial snapshot.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, logger: logger}

	t, err := s.load()
	if err != nil {
		return nil, err
	}
	s.tables.Store(t)

	logger.Info("scoring tables loaded",
		"source", t.Source,
		"merchants", len(t.Merchant.Merchants),
		"categories", len(t.Risk.CategoryWeights))
	return s, nil
}

// Snapshot returns the current immutable table snapshot. Callers resolve it
// once at request entry and pass it through the whole pipeline; never
// re-fetch mid-request.
func (s *Store) Snapshot() *Tables {
	return s.tables.Load()
}

// Reload rebuilds the snapshot from disk and swaps it in atomically.
// In-flight requests keep the snapshot they started with.
func (s *Store) Reload() (*Tables, error) {
	t, err := s.load()
	if err != nil {
		s.logger.Error("table reload failed, keeping previous snapshot", "error", err)
		return nil, err
	}
	s.tables.Store(t)
	n := s.reloads.Add(1)
	s.logger.Info("scoring tables reloaded", "source", t.Source, "reloads", n)
	return t, nil
}

// Reloads returns how many successful reloads have happened.
func (s *Store) Reloads() int64 {
	return s.reloads.Load()
}

// Dir returns the table directory, empty when running on defaults.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) load() (*Tables, error) {
	t := Defaults()
	t.LoadedAt = time.Now().UTC()

	if s.dir == "" {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("default tables: %w", err)
		}
		return t, nil
	}

	files := []struct {
		name string
		into interface{}
	}{
		{RiskFile, &t.Risk},
		{PreferenceFile, &t.Preference},
		{MerchantFile, &t.Merchant},
	}
	loaded := 0
	for _, f := range files {
		path := filepath.Join(s.dir, f.name)
		ok, err := loadFile(path, f.into)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f.name, err)
		}
		if ok {
			loaded++
		}
	}
	if loaded == 0 {
		s.logger.Warn("no table files found, using defaults", "dir", s.dir)
		t.Source = "defaults"
	} else {
		t.Source = s.dir
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// loadFile merges one YAML table file over the defaults already present in
// the target struct. Missing files are not an error.
func loadFile(path string, into interface{}) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return false, err
	}
	if err := v.Unmarshal(into); err != nil {
		return false, err
	}
	return true, nil
}
