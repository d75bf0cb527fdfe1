// Package postgres provides the PostgreSQL implementation of the session store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
)

// Store implements storage.SessionStore using PostgreSQL as the backend.
//
// The full session document is stored as a JSONB column so the serialization
// surface is identical to the file backend.
type Store struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating a PostgreSQL session store.
type Config struct {
	// Host is the database host (default: "localhost").
	Host string

	// Port is the database port (default: 5432).
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// TableName is the name of the sessions table (default: "conversation_sessions").
	TableName string

	// SSLMode is the PostgreSQL SSL mode (default: "disable").
	SSLMode string
}

// NewStore creates a new PostgreSQL session store, creating the sessions
// table when missing.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.TableName == "" {
		cfg.TableName = "conversation_sessions"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{
		db:        db,
		tableName: cfg.TableName,
	}

	if err := store.initTable(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// initTable initializes the database table structure.
func (s *Store) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_key TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			document JSONB NOT NULL,
			created_at TEXT,
			updated_at TEXT
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Keys lists the keys of all stored sessions.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT session_key FROM %s", s.tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return keys, nil
}

// Load reads the session document stored under key.
func (s *Store) Load(ctx context.Context, key string) (*storage.SessionRecord, error) {
	query := fmt.Sprintf("SELECT document FROM %s WHERE session_key = $1", s.tableName)

	var document []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record storage.SessionRecord
	if err := json.Unmarshal(document, &record); err != nil {
		return nil, fmt.Errorf("failed to parse session document: %w", err)
	}
	return &record, nil
}

// Save upserts the session document under key.
func (s *Store) Save(ctx context.Context, key string, record *storage.SessionRecord) error {
	document, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (session_key, identifier, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_key) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		key, record.Identifier(), document, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session stored under key. Deleting a missing session is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE session_key = $1", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
