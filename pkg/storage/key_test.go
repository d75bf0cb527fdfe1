package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		want       string
	}{
		{"international phone", "+1234567890", "1234567890"},
		{"formatted phone", "+1-234-567 8900", "12345678900"},
		{"bare digits", "1234567890", "1234567890"},
		{"email-like identifier", "user:alice@example.com", "useraliceexamplecom"},
		{"mixed case preserved", "Alice42", "Alice42"},
		{"path separators dropped", "../../etc/passwd", "etcpasswd"},
		{"empty input", "", "x"},
		{"symbols only", "+++", "x2b2b2b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.SanitizeKey(tt.identifier))
		})
	}
}

func TestSanitizeKey_Stable(t *testing.T) {
	// Same input always yields the same key.
	assert.Equal(t, storage.SanitizeKey("+49 170 1234567"), storage.SanitizeKey("+49 170 1234567"))

	// Formatting variants of one phone number collide on purpose.
	assert.Equal(t, storage.SanitizeKey("+1 (234) 567-8900"), storage.SanitizeKey("+12345678900"))
}

func TestSessionRecord_Identifier(t *testing.T) {
	withIdentifier := &storage.SessionRecord{}
	withIdentifier.UserProfile.Identifier = "+1234567890"
	assert.Equal(t, "+1234567890", withIdentifier.Identifier())

	legacy := &storage.SessionRecord{}
	legacy.UserProfile.LegacyPhoneNumber = "+1234567890"
	assert.Equal(t, "+1234567890", legacy.Identifier())

	both := &storage.SessionRecord{}
	both.UserProfile.Identifier = "user:alice"
	both.UserProfile.LegacyPhoneNumber = "+1234567890"
	assert.Equal(t, "user:alice", both.Identifier())

	assert.Empty(t, (&storage.SessionRecord{}).Identifier())
}
