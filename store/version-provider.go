package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// InitialVersion is the version every resource starts at.
const InitialVersion = 1

// VersionProvider keeps track of resource versions for optimistic concurrency control.
//
// Implementations must be thread-safe!
type VersionProvider interface {
	// Current returns the current version of the resource.
	// Unknown resources are at InitialVersion.
	Current(resource string) (int, error)
	// CompareAndIncrement increments the version of the resource if it equals expected.
	// It returns whether the increment happened and the version after the call.
	CompareAndIncrement(resource string, expected int) (bool, int, error)
}

type MemVersions struct {
	mutex    *sync.Mutex
	versions map[string]int
}

func NewMemVersions() MemVersions {
	return MemVersions{
		mutex:    &sync.Mutex{},
		versions: make(map[string]int),
	}
}

func (m MemVersions) Current(resource string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.current(resource), nil
}

func (m MemVersions) CompareAndIncrement(resource string, expected int) (bool, int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	version := m.current(resource)
	if version != expected {
		return false, version, nil
	}
	version++
	m.versions[resource] = version
	return true, version, nil
}

func (m MemVersions) current(resource string) int {
	if version, ok := m.versions[resource]; ok {
		return version
	}
	return InitialVersion
}

type SQLiteVersions struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteVersions opens the version table in the given db file.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteVersions(filename string) (SQLiteVersions, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteVersions{}, fmt.Errorf("opening %s: %w", filename, err)
	}
	// a single connection keeps the shared in-memory db free of table locks
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS resource_version (
		resource TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return SQLiteVersions{}, fmt.Errorf("creating version table: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLiteVersions{}, fmt.Errorf("setting journal mode: %w", err)
	}
	return SQLiteVersions{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteVersions) Current(resource string) (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM resource_version WHERE resource = ?", resource).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return InitialVersion, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s SQLiteVersions) CompareAndIncrement(resource string, expected int) (bool, int, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR IGNORE INTO resource_version (resource, version) VALUES (?, ?)", resource, InitialVersion)
	if err != nil {
		return false, 0, err
	}
	result, err := s.db.Exec(
		"UPDATE resource_version SET version = version + 1 WHERE resource = ? AND version = ?",
		resource, expected,
	)
	if err != nil {
		return false, 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	version, err := s.Current(resource)
	return rows == 1, version, err
}

// Close closes the underlying db.
func (s SQLiteVersions) Close() error {
	return s.db.Close()
}
