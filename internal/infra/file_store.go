package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

const grantFileName = "grants.json"

// grantFile is the on-disk JSON layout of a FileGrantStore.
type grantFile struct {
	Version   int                           `json:"version"`
	Grants    map[string]domain.GrantStatus `json:"grants"`
	Session   *domain.Session               `json:"session,omitempty"`
	UpdatedAt int64                         `json:"updated_at"`
}

// FileGrantStore implements domain.GrantStore and domain.SessionRegistry
// with a JSON file. Writes take an exclusive flock and replace the file
// atomically so concurrent CLI invocations do not lose updates.
type FileGrantStore struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewFileGrantStore creates a store in dataDir.
func NewFileGrantStore(dataDir string) (*FileGrantStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileGrantStore{path: filepath.Join(dataDir, grantFileName)}, nil
}

// NewFileGrantStoreWithPath creates a store at a specific file (for testing).
func NewFileGrantStoreWithPath(path string) *FileGrantStore {
	return &FileGrantStore{path: path}
}

// Path returns the JSON file path.
func (s *FileGrantStore) Path() string {
	return s.path
}

// Get returns the stored status; unknown identifiers are NotGranted.
func (s *FileGrantStore) Get(id string) (domain.GrantStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.NotGranted, domain.ErrStoreClosed
	}

	f, err := s.read()
	if err != nil {
		return domain.NotGranted, err
	}
	if status, ok := f.Grants[id]; ok {
		return status, nil
	}
	return domain.NotGranted, nil
}

// Set stores the status of one identifier.
func (s *FileGrantStore) Set(id string, status domain.GrantStatus) error {
	return s.update(func(f *grantFile) {
		f.Grants[id] = status
	})
}

// All returns a copy of every stored grant.
func (s *FileGrantStore) All() (map[string]domain.GrantStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.GrantStatus, len(f.Grants))
	for k, v := range f.Grants {
		out[k] = v
	}
	return out, nil
}

// Clear removes all grants. The session record is kept.
func (s *FileGrantStore) Clear() error {
	return s.update(func(f *grantFile) {
		f.Grants = make(map[string]domain.GrantStatus)
	})
}

// Close marks the store closed. There is no handle to release.
func (s *FileGrantStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RegisterSession saves the shell session, replacing any previous one.
func (s *FileGrantStore) RegisterSession(session domain.Session) error {
	return s.update(func(f *grantFile) {
		f.Session = &session
	})
}

// LastSession returns the recorded session or domain.ErrNotRegistered.
func (s *FileGrantStore) LastSession() (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	if f.Session == nil {
		return nil, domain.ErrNotRegistered
	}
	session := *f.Session
	return &session, nil
}

// update performs a locked read-modify-write of the grant file.
func (s *FileGrantStore) update(mutate func(f *grantFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	lockFile, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	f, err := s.read()
	if err != nil {
		return err
	}
	mutate(f)
	f.UpdatedAt = time.Now().Unix()
	return s.atomicWrite(f)
}

// read loads the grant file; a missing file is an empty store.
func (s *FileGrantStore) read() (*grantFile, error) {
	f := &grantFile{Version: 1, Grants: make(map[string]domain.GrantStatus)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if f.Grants == nil {
		f.Grants = make(map[string]domain.GrantStatus)
	}
	return f, nil
}

// atomicWrite writes the grant file (write temp + rename).
func (s *FileGrantStore) atomicWrite(f *grantFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileGrantStore implements both interfaces.
var _ domain.GrantStore = (*FileGrantStore)(nil)
var _ domain.SessionRegistry = (*FileGrantStore)(nil)
