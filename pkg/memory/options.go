package memory

import (
	"log/slog"
	"time"
)

// Defaults for the manager configuration.
const (
	// DefaultMaxMessages is the retention bound per session.
	DefaultMaxMessages = 50

	// DefaultSessionTimeout is the advisory per-session context horizon.
	// No automatic eviction path enforces it; only explicit Cleanup
	// removes sessions.
	DefaultSessionTimeout = 24 * time.Hour

	// DefaultContextMessages is how many recent messages Context renders
	// when the caller does not specify a count.
	DefaultContextMessages = 10

	// DefaultCurrency is the preferred currency for new profiles.
	DefaultCurrency = "USD"
)

// Option configures a Manager.
type Option func(*Manager)

// WithMaxMessages sets the retention bound: the maximum number of messages
// kept per session before oldest-first eviction. Values <= 0 keep the
// default.
func WithMaxMessages(max int) Option {
	return func(m *Manager) {
		if max > 0 {
			m.maxMessages = max
		}
	}
}

// WithSessionTimeout sets the advisory session context horizon.
func WithSessionTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.sessionTimeout = timeout
		}
	}
}

// WithClock injects the clock used for message timestamps and cleanup
// cutoffs. Tests use this to pin time.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the structured logger used for persistence failures and
// startup-scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// MessageOption configures a message at append time.
type MessageOption func(*Message)

// WithMessageType sets the classified message category (default "text").
func WithMessageType(messageType MessageType) MessageOption {
	return func(msg *Message) {
		if messageType != "" {
			msg.Type = messageType
		}
	}
}

// WithMetadata attaches an open key/value map to the message.
func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(msg *Message) {
		msg.Metadata = metadata
	}
}
