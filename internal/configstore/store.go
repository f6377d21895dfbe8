package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	perrors "printquote/pkg/errors"
)

// Store persists the catalog as a single JSON document. Writers serialize on
// a mutex; readers reload the canonical file on every call and rely on the
// atomic rename in Replace to never observe a torn snapshot.
type Store struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

// New creates a store rooted at the given canonical file path.
func New(path string) *Store {
	return &Store{path: path, log: zerolog.Nop()}
}

// WithLogger attaches a logger for best-effort failure reporting.
func (s *Store) WithLogger(log zerolog.Logger) *Store {
	s.log = log
	return s
}

// Path returns the canonical file location.
func (s *Store) Path() string {
	return s.path
}

// Read loads the current snapshot fresh from disk. There is no in-process
// caching: every request sees the latest committed generation.
func (s *Store) Read() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, perrors.Newf(perrors.ErrCodeConfigIO, "read config: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, perrors.Newf(perrors.ErrCodeConfigIO, "decode config: %v", err)
	}
	snap.Normalize()
	return &snap, nil
}

// Replace validates and durably installs a new snapshot generation. The
// canonical write is a temp-file write followed by an atomic rename; the
// pre-write backup and the audit append are best-effort and never block or
// roll back the canonical write.
func (s *Store) Replace(snap *Snapshot, actor string) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.backupCurrent(actor)
	if err := s.writeCanonical(snap); err != nil {
		return err
	}
	s.appendAudit(actor, "config.replace")
	return nil
}

// EnsureDefault installs snap only when no canonical file exists yet.
func (s *Store) EnsureDefault(snap *Snapshot) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeCanonical(snap); err != nil {
		return err
	}
	s.appendAudit("system", "config.seed")
	return nil
}

func (s *Store) writeCanonical(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return perrors.Newf(perrors.ErrCodeConfigIO, "encode config: %v", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perrors.Newf(perrors.ErrCodeConfigIO, "create config dir: %v", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return perrors.Newf(perrors.ErrCodeConfigIO, "create temp config: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return perrors.Newf(perrors.ErrCodeConfigIO, "write temp config: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return perrors.Newf(perrors.ErrCodeConfigIO, "sync temp config: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return perrors.Newf(perrors.ErrCodeConfigIO, "close temp config: %v", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return perrors.Newf(perrors.ErrCodeConfigIO, "install config: %v", err)
	}
	return nil
}

// backupCurrent copies the current canonical file into the backups directory,
// named by UTC timestamp and acting identity. Failures are logged and swallowed.
func (s *Store) backupCurrent(actor string) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("config backup: read canonical failed")
		}
		return
	}
	dir := filepath.Join(filepath.Dir(s.path), "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn().Err(err).Msg("config backup: create dir failed")
		return
	}
	name := fmt.Sprintf("config-%s-%s.json",
		time.Now().UTC().Format("20060102T150405Z"), sanitizeActor(actor))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		s.log.Warn().Err(err).Msg("config backup: write failed")
	}
}

func sanitizeActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range actor {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
