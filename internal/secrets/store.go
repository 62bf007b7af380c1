package secrets

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

const saltSize = 16

// migration holds a versioned SQL migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{Version: 1, Name: "credentials_schema", SQL: `
		CREATE TABLE IF NOT EXISTS credentials (
			target TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			rotated_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS vault_meta (
			name TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`},
}

// CredsStore persists encrypted credential payloads in a libSQL database
// (embedded SQLite fork), one row per target, plus the key-derivation salt
// in a metadata table.
type CredsStore struct {
	db *sql.DB
}

// OpenStore opens (or initializes) the vault database at the given path
// and applies pending migrations. A bare filesystem path is accepted; a
// file URI passes through unchanged.
func OpenStore(ctx context.Context, path string) (*CredsStore, error) {
	dsn := path
	if !strings.Contains(dsn, ":") {
		dsn = "file:" + dsn
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "open vault db: %s", err.Error()).WithCause(err)
	}
	db.SetMaxOpenConns(1)

	// Connection-level PRAGMAs. Some return rows, so QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	s := &CredsStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, schema.NewErrorf(schema.ErrCodeVault,
			"vault db %s is unusable: %s", path, err.Error()).WithCause(err)
	}
	return s, nil
}

// Close closes the database.
func (s *CredsStore) Close() error { return s.db.Close() }

// migrate creates the schema_version table and applies pending migrations.
func (s *CredsStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		for _, stmt := range splitStatements(m.SQL) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var stmts []string
	for _, raw := range strings.Split(script, ";") {
		s := strings.TrimSpace(raw)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Salt returns the key-derivation salt, generating and persisting a fresh
// one on first use.
func (s *CredsStore) Salt(ctx context.Context) ([]byte, error) {
	var salt []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM vault_meta WHERE name = 'salt'`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if err != sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "read salt: %s", err.Error()).WithCause(err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "generate salt: %s", err.Error()).WithCause(err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO vault_meta (name, value) VALUES ('salt', ?)`, salt); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "persist salt: %s", err.Error()).WithCause(err)
	}
	return salt, nil
}

func (s *CredsStore) StoreSecret(ctx context.Context, target string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (target, payload, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(target) DO UPDATE SET payload=excluded.payload, rotated_at=CURRENT_TIMESTAMP`,
		target, value,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeVault, "store credential: %s", err.Error()).WithCause(err)
	}
	return nil
}

func (s *CredsStore) GetSecret(ctx context.Context, target string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM credentials WHERE target = ?`, target).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, storeNotFound(target)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "read credential: %s", err.Error()).WithCause(err)
	}
	return value, nil
}

func (s *CredsStore) DeleteSecret(ctx context.Context, target string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE target = ?`, target)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeVault, "delete credential: %s", err.Error()).WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(target)
	}
	return nil
}

func (s *CredsStore) ListSecrets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT target FROM credentials ORDER BY target`)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeVault, "list credentials: %s", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func storeNotFound(target string) *schema.PipelineError {
	return schema.NewErrorf(schema.ErrCodeVault, "credential %q not found", target)
}
