package infra

import (
	"fmt"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// StoreKind selects the grant store backend.
type StoreKind string

const (
	StoreFile      StoreKind = "file"
	StoreEncrypted StoreKind = "encrypted"
)

// Store is a grant store that also records shell sessions.
type Store interface {
	domain.GrantStore
	domain.SessionRegistry
}

// OpenStore opens the grant store of the given kind in dataDir.
// The encrypted store provisions its key file together with a new database.
func OpenStore(kind StoreKind, dataDir string) (Store, error) {
	switch kind {
	case StoreFile, "":
		store, err := NewFileGrantStore(dataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreEncrypted:
		key, err := NewGrantKeyFile(dataDir).GetKey()
		if err != nil {
			return nil, fmt.Errorf("failed to load grant store key: %w", err)
		}
		store, err := NewEncryptedGrantStore(dataDir, key)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
