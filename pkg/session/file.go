package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReadFile loads a session file.
func ReadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	if sess.Graph == nil {
		return nil, fmt.Errorf("parse session %s: no graph", path)
	}
	return &sess, nil
}

// WriteFile stores a session file, replacing any previous content
// atomically.
func WriteFile(sess *Session, path string) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// FileStore keeps sessions as JSON files in a directory, one per session
// ID. It is safe for concurrent use within one process.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// DefaultDir returns ~/.config/topoedit/sessions, honouring
// XDG_CONFIG_HOME.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "topoedit", "sessions"), nil
}

// NewFileStore creates a file-based session store. An empty baseDir means
// DefaultDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sessionPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: invalid session id %q", ErrNotFound, id)
	}
	return filepath.Join(s.baseDir, id+".json"), nil
}

// Get loads a session. Returns ErrNotFound if it does not exist.
func (s *FileStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.sessionPath(id)
	if err != nil {
		return nil, err
	}
	return ReadFile(path)
}

// Set stores a session under its ID.
func (s *FileStore) Set(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sessionPath(sess.ID)
	if err != nil {
		return err
	}
	return WriteFile(sess, path)
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.sessionPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Summary describes a stored session without its graph.
type Summary struct {
	ID        string
	Name      string
	Nodes     int
	UpdatedAt time.Time
}

// List returns the stored sessions, most recently updated first. Files that
// cannot be parsed are skipped.
func (s *FileStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sess, err := ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ID:        sess.ID,
			Name:      sess.Meta.Name,
			Nodes:     sess.Graph.NodeCount(),
			UpdatedAt: sess.UpdatedAt,
		})
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Cleanup removes sessions not updated within maxAge and returns how many
// were removed.
func (s *FileStore) Cleanup(maxAge time.Duration) (int, error) {
	list, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, sum := range list {
		if sum.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(sum.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string { return s.baseDir }
