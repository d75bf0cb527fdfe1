// Package storage provides interfaces and types for conversation session
// persistence backends.
//
// It defines the SessionStore interface that all storage implementations must
// satisfy, along with the persisted record document types. The document layout
// (field names and nesting) is a compatibility surface shared with the
// pre-existing per-user JSON files, so every backend serializes the same
// SessionRecord structure.
package storage

import (
	"context"
	"errors"
)

// ErrRecordNotFound indicates that no record exists for the requested key.
var ErrRecordNotFound = errors.New("session record not found")

// SessionRecord is the durable document stored for one user.
//
// Top-level layout:
//   - user_profile: profile fields (identifier, name, preferred_currency, ...)
//   - messages: ordered conversation history
//   - session_summary: reserved free-text summary (currently never written)
//   - created_at / updated_at: session lifecycle timestamps
type SessionRecord struct {
	// UserProfile holds the per-user preference and counter fields.
	UserProfile ProfileRecord `json:"user_profile"`

	// Messages is the ordered message history, oldest first.
	Messages []MessageRecord `json:"messages"`

	// SessionSummary is a reserved free-text summary slot.
	SessionSummary string `json:"session_summary,omitempty"`

	// CreatedAt is when the session was first created (RFC 3339 text).
	CreatedAt string `json:"created_at"`

	// UpdatedAt is refreshed on every persisted write (RFC 3339 text).
	UpdatedAt string `json:"updated_at"`
}

// ProfileRecord is the persisted form of a user profile.
type ProfileRecord struct {
	// Identifier is the original, unsanitized user identifier and the
	// source of truth when rebuilding the in-memory map at startup.
	Identifier string `json:"identifier"`

	// LegacyPhoneNumber carries the identifier for records written by the
	// previous generation of the store, which used this field name.
	// Write-path code never sets it.
	LegacyPhoneNumber string `json:"phone_number,omitempty"`

	// Name is the user's display name, empty when unknown.
	Name string `json:"name,omitempty"`

	// PreferredCurrency is a 3-letter currency code.
	PreferredCurrency string `json:"preferred_currency"`

	// Interests is the insertion-ordered interest tag list.
	Interests []string `json:"interests"`

	// LastInteraction is the timestamp of the most recent message
	// (RFC 3339 text), empty when the user never messaged.
	LastInteraction string `json:"last_interaction,omitempty"`

	// TotalInteractions counts every appended message.
	TotalInteractions int `json:"total_interactions"`
}

// MessageRecord is the persisted form of a single conversation turn.
type MessageRecord struct {
	// ID is a unique message identifier (additive; absent in legacy records).
	ID int64 `json:"id,omitempty"`

	// Timestamp is when the message was appended (RFC 3339 text).
	Timestamp string `json:"timestamp"`

	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// MessageType is the classified message category (default "text").
	MessageType string `json:"message_type"`

	// Metadata is an open key/value map, possibly empty.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Identifier returns the original user identifier recorded in the document.
//
// It prefers the identifier field, falls back to the legacy phone_number field,
// and returns "" when the record carries neither (callers then derive a best
// effort identifier from the storage key).
func (r *SessionRecord) Identifier() string {
	if r.UserProfile.Identifier != "" {
		return r.UserProfile.Identifier
	}
	return r.UserProfile.LegacyPhoneNumber
}

// SessionStore defines the interface for session persistence backends.
//
// All storage implementations (file, SQLite, PostgreSQL, MySQL) must implement
// this interface. Records are keyed by the sanitized identifier key produced by
// SanitizeKey; exactly one record exists per key.
type SessionStore interface {
	// Keys lists the sanitized keys of all existing records.
	Keys(ctx context.Context) ([]string, error)

	// Load reads the record stored under key.
	//
	// Returns ErrRecordNotFound when no record exists for the key.
	Load(ctx context.Context, key string) (*SessionRecord, error)

	// Save writes the record under key, overwriting any existing record.
	Save(ctx context.Context, key string, record *SessionRecord) error

	// Delete removes the record stored under key. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources.
	Close() error
}
