package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// fileFormat is the on-disk JSON shape: {"processes": [...]}.
type fileFormat struct {
	Processes []Config `json:"processes"`
}

// Store persists a Catalog as a single JSON file, matching spec §4.1.
// It is only ever called by the supervisor, which holds the catalog
// lock across Save the same way the teacher holds catalog_mu across
// process.WritePIDFile.
type Store struct {
	path string
	log  *slog.Logger
}

// NewStore builds a Store rooted at path. Parent directories are
// created lazily on first Save.
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Path returns the on-disk location this Store reads and writes.
func (s *Store) Path() string { return s.path }

// DefaultPath returns the platform-appropriate catalog location
// described in spec §4.1.
func DefaultPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA is not set")
		}
		return filepath.Join(appData, "OpenListService", "process_configs.json"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "OpenListService", "process_configs.json"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "openlist-service", "process_configs.json"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "openlist-service", "process_configs.json"), nil
	}
}

// Load reads the catalog file. A missing file yields an empty Catalog
// and no error, so the service still boots. Malformed JSON logs a
// warning and also yields an empty Catalog rather than failing boot.
// Individual entries failing Validate are skipped with a warning.
func (s *Store) Load() *Catalog {
	cat := New()
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("catalog: failed to read file, starting empty", "path", s.path, "error", err)
		}
		return cat
	}
	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		s.log.Warn("catalog: malformed JSON, starting empty", "path", s.path, "error", err)
		return cat
	}
	for _, cfg := range ff.Processes {
		if err := cfg.Validate(); err != nil {
			s.log.Warn("catalog: skipping invalid entry", "id", cfg.ID, "error", err)
			continue
		}
		cat.Put(cfg)
	}
	return cat
}

// Save serializes cat as {"processes": [...]} and writes it atomically:
// write to a sibling temp file, fsync, then rename over the target.
// File mode is 0600 on POSIX.
func (s *Store) Save(cat *Catalog) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	ff := fileFormat{Processes: cat.List()}
	b, err := json.MarshalIndent(&ff, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp catalog file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp catalog file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod temp catalog file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename catalog file: %w", err)
	}
	return nil
}
