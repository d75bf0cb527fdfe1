// Package file provides the JSON file implementation of the session store.
//
// It keeps one indented-JSON document per user, named "session_<key>.json",
// matching the layout of the pre-existing conversation files so history
// written by earlier deployments keeps loading.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
)

const (
	filePrefix = "session_"
	fileSuffix = ".json"
)

// Store implements storage.SessionStore on a local directory.
type Store struct {
	dir string
}

// Config contains configuration for creating a file-backed session store.
type Config struct {
	// Dir is the directory holding the per-user session files.
	// It is created if it does not exist (default: "data/conversations").
	Dir string
}

// NewStore creates a new file-backed session store, creating the storage
// directory when missing.
func NewStore(cfg *Config) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join("data", "conversations")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Keys lists the sanitized keys of all session files in the directory.
// Files that do not match the session naming scheme are ignored.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan storage dir: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Load reads and parses the session file for key.
func (s *Store) Load(ctx context.Context, key string) (*storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var record storage.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &record, nil
}

// Save writes the session record for key, overwriting any existing file.
// The document is indented so the files stay hand-inspectable.
func (s *Store) Save(ctx context.Context, key string, record *storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Delete removes the session file for key. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store; it is retained for interface
// compatibility.
func (s *Store) Close() error {
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+fileSuffix)
}
