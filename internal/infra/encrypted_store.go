package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/app_perm/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const grantDBName = "grants.db"

// EncryptedGrantStore implements domain.GrantStore and domain.SessionRegistry
// using a SQLCipher encrypted SQLite database.
type EncryptedGrantStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedGrantStore opens (or creates) the encrypted grant database.
// The key is used as the SQLCipher raw key.
func NewEncryptedGrantStore(dataDir string, key []byte) (*EncryptedGrantStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, grantDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &EncryptedGrantStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *EncryptedGrantStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shell_session (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		pid INTEGER NOT NULL,
		package_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		last_activation INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- domain.GrantStore implementation ---

// Get returns the stored status; unknown identifiers are NotGranted.
func (s *EncryptedGrantStore) Get(id string) (domain.GrantStatus, error) {
	if s.db == nil {
		return domain.NotGranted, domain.ErrStoreClosed
	}
	var status string
	err := s.db.QueryRow(`SELECT status FROM grants WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotGranted, nil
	}
	if err != nil {
		return domain.NotGranted, err
	}
	return domain.GrantStatus(status), nil
}

// Set stores the status of one identifier.
func (s *EncryptedGrantStore) Set(id string, status domain.GrantStatus) error {
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO grants (id, status, updated_at) VALUES (?, ?, ?)`,
		id, string(status), time.Now().Unix())
	return err
}

// All returns every stored grant.
func (s *EncryptedGrantStore) All() (map[string]domain.GrantStatus, error) {
	if s.db == nil {
		return nil, domain.ErrStoreClosed
	}
	rows, err := s.db.Query(`SELECT id, status FROM grants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := make(map[string]domain.GrantStatus)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		grants[id] = domain.GrantStatus(status)
	}
	return grants, rows.Err()
}

// Clear removes all grants. The session record is kept.
func (s *EncryptedGrantStore) Clear() error {
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	_, err := s.db.Exec(`DELETE FROM grants`)
	return err
}

// Path returns the database file path.
func (s *EncryptedGrantStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedGrantStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// --- domain.SessionRegistry implementation ---

// RegisterSession saves the shell session, replacing any previous one.
func (s *EncryptedGrantStore) RegisterSession(session domain.Session) error {
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO shell_session (slot, pid, package_id, level, started_at, last_activation)
		VALUES (1, ?, ?, ?, ?, ?)`,
		session.PID, session.PackageID, session.Level,
		session.StartedAt.Unix(), session.LastActivation.Unix(),
	)
	return err
}

// LastSession returns the recorded session or domain.ErrNotRegistered.
func (s *EncryptedGrantStore) LastSession() (*domain.Session, error) {
	if s.db == nil {
		return nil, domain.ErrStoreClosed
	}
	var (
		session        domain.Session
		started, lastA int64
	)
	err := s.db.QueryRow(`SELECT pid, package_id, level, started_at, last_activation FROM shell_session WHERE slot = 1`).
		Scan(&session.PID, &session.PackageID, &session.Level, &started, &lastA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	session.StartedAt = time.Unix(started, 0)
	session.LastActivation = time.Unix(lastA, 0)
	return &session, nil
}

// Ensure EncryptedGrantStore implements both interfaces.
var _ domain.GrantStore = (*EncryptedGrantStore)(nil)
var _ domain.SessionRegistry = (*EncryptedGrantStore)(nil)
