// Package snapshot is an optional, host-side warm-start cache: it persists
// compiler-supplied TemplateMaps to SQLite so a restarted host doesn't have
// to wait for the compiler (or re-learn from scratch) before the component
// type registry (internal/registry) can be repopulated (§6.4 explicitly
// allows the host to avoid recomputing these on restart). The Core itself
// persists nothing; this package is never on the hot learn/predict path.
package snapshot

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Store is a SQLite-backed TemplateMap cache keyed by component type name.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// migrates it to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %q: %w", path, err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: set dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put persists tm under componentType, overwriting any prior snapshot for
// that type.
func (s *Store) Put(componentType string, tm *vnode.TemplateMap) error {
	payload, err := json.Marshal(tm)
	if err != nil {
		return fmt.Errorf("snapshot: marshal template map for %q: %w", componentType, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO template_maps (component_type, payload, version, generated_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(component_type) DO UPDATE SET
			payload = excluded.payload,
			version = excluded.version,
			generated_at = excluded.generated_at,
			updated_at = excluded.updated_at
	`, componentType, string(payload), tm.Version, tm.GeneratedAt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("snapshot: put %q: %w", componentType, err)
	}
	return nil
}

// Get loads the most recently stored TemplateMap for componentType.
func (s *Store) Get(componentType string) (*vnode.TemplateMap, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM template_maps WHERE component_type = ?`, componentType).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: get %q: %w", componentType, err)
	}

	var tm vnode.TemplateMap
	if err := json.Unmarshal([]byte(payload), &tm); err != nil {
		return nil, false, fmt.Errorf("snapshot: unmarshal template map for %q: %w", componentType, err)
	}
	return &tm, true, nil
}

// Delete removes any stored snapshot for componentType.
func (s *Store) Delete(componentType string) error {
	if _, err := s.db.Exec(`DELETE FROM template_maps WHERE component_type = ?`, componentType); err != nil {
		return fmt.Errorf("snapshot: delete %q: %w", componentType, err)
	}
	return nil
}

// ComponentTypes lists every component type with a stored snapshot, for the
// host to replay through internal/registry at startup.
func (s *Store) ComponentTypes() ([]string, error) {
	rows, err := s.db.Query(`SELECT component_type FROM template_maps ORDER BY component_type`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list component types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("snapshot: scan component type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
