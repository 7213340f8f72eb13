package infra

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

const (
	keyFileName = "grants.key"
	keySize     = 32 // SQLCipher raw key, 256 bits
)

// GrantKeyFile holds the SQLCipher key of the grant database in dataDir.
// A key is only provisioned together with a new database: once grants.db
// exists, losing the key file is reported instead of silently replaced.
type GrantKeyFile struct {
	keyPath string
	dbPath  string
}

// NewGrantKeyFile returns the key file that unlocks dataDir's grant database.
func NewGrantKeyFile(dataDir string) *GrantKeyFile {
	return &GrantKeyFile{
		keyPath: filepath.Join(dataDir, keyFileName),
		dbPath:  filepath.Join(dataDir, grantDBName),
	}
}

// Path returns the key file path.
func (k *GrantKeyFile) Path() string {
	return k.keyPath
}

// GetKey returns the database key, provisioning one for a database that
// does not exist yet.
func (k *GrantKeyFile) GetKey() ([]byte, error) {
	key, err := k.read()
	if !errors.Is(err, fs.ErrNotExist) {
		return key, err
	}

	if _, statErr := os.Stat(k.dbPath); statErr == nil {
		return nil, fmt.Errorf("%w: %s has no %s", domain.ErrGrantKeyMissing, k.dbPath, keyFileName)
	}
	return k.provision()
}

func (k *GrantKeyFile) read() ([]byte, error) {
	data, err := os.ReadFile(k.keyPath)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, fmt.Errorf("malformed key file %s: %w", k.keyPath, err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("key file %s holds %d bytes, want %d", k.keyPath, len(key), keySize)
	}
	return key, nil
}

// provision links a fully written key into place, so readers never see a
// partial file. A concurrent opener that won the link has its key used.
func (k *GrantKeyFile) provision() ([]byte, error) {
	dir := filepath.Dir(k.keyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	key, err := newGrantKey()
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, keyFileName+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, err = fmt.Fprintln(tmp, hex.EncodeToString(key))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	err = os.Link(tmp.Name(), k.keyPath)
	if errors.Is(err, fs.ErrExist) {
		return k.read()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to install key file: %w", err)
	}
	return key, nil
}

func newGrantKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate grant key: %w", err)
	}
	return key, nil
}

// Ensure GrantKeyFile implements domain.KeyProvider.
var _ domain.KeyProvider = (*GrantKeyFile)(nil)
