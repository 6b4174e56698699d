package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/migrations"
	"github.com/cetmix/towered/internal/types"
)

// Store keeps variables and keys in SQLite
type Store struct {
	db *sql.DB
}

// ImportResult counts the records written by ImportManifest
type ImportResult struct {
	Variables int
	Keys      int
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// OpenStore opens (and migrates) the database at dbPath
func OpenStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to store database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertVariable inserts or updates a variable by reference
func (s *Store) UpsertVariable(ctx context.Context, v types.Variable) error {
	return upsertVariable(ctx, s.db, v)
}

// UpsertKey inserts or updates a key by reference
func (s *Store) UpsertKey(ctx context.Context, k types.Key) error {
	return upsertKey(ctx, s.db, k)
}

func upsertVariable(ctx context.Context, db execer, v types.Variable) error {
	if v.Name == "" {
		v.Name = v.Reference
	}
	if err := v.Candidate().Validate(); err != nil {
		return fmt.Errorf("invalid variable: %w", err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO variables (reference, name, note, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(reference) DO UPDATE SET
			name = excluded.name,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP
	`, v.Reference, v.Name, v.Note)
	if err != nil {
		return fmt.Errorf("failed to save variable %q: %w", v.Reference, err)
	}
	return nil
}

func upsertKey(ctx context.Context, db execer, k types.Key) error {
	if k.Name == "" {
		k.Name = k.Reference
	}
	if err := k.Candidate().Validate(); err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	if k.KeyType == "" {
		k.KeyType = types.DefaultSecretKeyType
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO keys (reference, name, key_type, note, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(reference) DO UPDATE SET
			name = excluded.name,
			key_type = excluded.key_type,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP
	`, k.Reference, k.Name, string(k.KeyType), k.Note)
	if err != nil {
		return fmt.Errorf("failed to save key %q: %w", k.Reference, err)
	}
	return nil
}

// DeleteVariable removes a variable. Returns false if it did not exist.
func (s *Store) DeleteVariable(ctx context.Context, reference string) (bool, error) {
	return s.delete(ctx, "DELETE FROM variables WHERE reference = ?", reference)
}

// DeleteKey removes a key. Returns false if it did not exist.
func (s *Store) DeleteKey(ctx context.Context, reference string) (bool, error) {
	return s.delete(ctx, "DELETE FROM keys WHERE reference = ?", reference)
}

func (s *Store) delete(ctx context.Context, query, reference string) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, reference)
	if err != nil {
		return false, fmt.Errorf("failed to delete %q: %w", reference, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListVariables returns all variables ordered by name
func (s *Store) ListVariables(ctx context.Context) ([]types.Variable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, reference, COALESCE(note, '')
		FROM variables
		ORDER BY name, reference
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer rows.Close()

	var variables []types.Variable
	for rows.Next() {
		var v types.Variable
		if err := rows.Scan(&v.Name, &v.Reference, &v.Note); err != nil {
			return nil, fmt.Errorf("failed to scan variable: %w", err)
		}
		variables = append(variables, v)
	}
	return variables, rows.Err()
}

// ListKeys returns keys of keyType ordered by name. An empty keyType lists all keys.
func (s *Store) ListKeys(ctx context.Context, keyType types.KeyType) ([]types.Key, error) {
	query := `
		SELECT name, reference, key_type, COALESCE(note, '')
		FROM keys
	`
	var args []any
	if keyType != "" {
		query += " WHERE key_type = ?"
		args = append(args, string(keyType))
	}
	query += " ORDER BY name, reference"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []types.Key
	for rows.Next() {
		var k types.Key
		var keyType string
		if err := rows.Scan(&k.Name, &k.Reference, &keyType, &k.Note); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		k.KeyType = types.KeyType(keyType)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Variables implements Source
func (s *Store) Variables(ctx context.Context) ([]types.Candidate, error) {
	variables, err := s.ListVariables(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]types.Candidate, 0, len(variables))
	for _, v := range variables {
		items = append(items, v.Candidate())
	}
	return items, nil
}

// Secrets implements Source
func (s *Store) Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error) {
	keys, err := s.ListKeys(ctx, keyType)
	if err != nil {
		return nil, err
	}
	items := make([]types.Candidate, 0, len(keys))
	for _, k := range keys {
		items = append(items, k.Candidate())
	}
	return items, nil
}

// ImportManifest writes every record of m in one transaction
func (s *Store) ImportManifest(ctx context.Context, m *Manifest) (ImportResult, error) {
	var result ImportResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	variables, keys := m.Records()
	for _, v := range variables {
		if err := upsertVariable(ctx, tx, v); err != nil {
			return ImportResult{}, err
		}
		result.Variables++
	}
	for _, k := range keys {
		if err := upsertKey(ctx, tx, k); err != nil {
			return ImportResult{}, err
		}
		result.Keys++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}
