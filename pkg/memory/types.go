// Package memory provides the conversation memory manager for the sales
// agent: per-user dialogue history, profile state, durable persistence, and
// the bounded context window used to prime each LLM call.
package memory

import "time"

// Role identifies who produced a conversation message.
type Role string

const (
	// RoleUser marks a message received from the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the agent.
	RoleAssistant Role = "assistant"
)

// MessageType classifies a conversation message by intent.
//
// Classification is performed by the caller (see agent.ClassifyKeywords)
// before a message is appended; the memory manager only stores the result.
type MessageType string

const (
	// TypeText is the default type for unclassified messages.
	TypeText MessageType = "text"

	// TypeCurrencyConversion marks currency and exchange-rate requests.
	TypeCurrencyConversion MessageType = "currency_conversion"

	// TypeProductInquiry marks product and catalog questions.
	TypeProductInquiry MessageType = "product_inquiry"

	// TypeGreeting marks conversation openers.
	TypeGreeting MessageType = "greeting"

	// TypeSupport marks help and after-sales requests.
	TypeSupport MessageType = "support"

	// TypeGeneral is assigned when no keyword category matches.
	TypeGeneral MessageType = "general"
)

// Message is a single conversation turn.
//
// Messages are immutable once appended; the only mutation the session ever
// applies is oldest-first eviction when the retention bound is exceeded.
type Message struct {
	// ID is a unique snowflake identifier assigned at append time.
	// Zero for messages loaded from legacy records.
	ID int64

	// Timestamp is when the message was appended.
	Timestamp time.Time

	// Role is who produced the message.
	Role Role

	// Content is the message text.
	Content string

	// Type is the classified message category.
	Type MessageType

	// Metadata is an open key/value map, possibly empty.
	Metadata map[string]interface{}
}

// UserProfile holds the durable per-user preference and counter state.
type UserProfile struct {
	// Identifier is the stable user key (a phone number for WhatsApp
	// users). It never changes after creation.
	Identifier string

	// Name is the user's display name, empty when unknown.
	Name string

	// PreferredCurrency is a 3-letter currency code (default "USD").
	PreferredCurrency string

	// Interests is the insertion-ordered list of interest tags.
	// Tags are stored case-preserving but de-duplicated case-insensitively.
	Interests []string

	// LastInteraction is when the user last exchanged a message;
	// nil when the user never messaged.
	LastInteraction *time.Time

	// TotalInteractions counts every appended message.
	TotalInteractions int
}

// Session is the complete remembered state for one user: the profile plus the
// bounded message history. Sessions are created lazily on first access and
// mutated only through the Manager.
type Session struct {
	// Profile is the per-user preference and counter state.
	Profile UserProfile

	// Messages is the ordered history, oldest first, capped at the
	// manager's retention bound.
	Messages []Message

	// Summary is a reserved free-text summary slot (persisted, never
	// currently written).
	Summary string

	// CreatedAt is set once, when the session is first created.
	CreatedAt time.Time

	// UpdatedAt is refreshed on every persisted write.
	UpdatedAt time.Time
}

// PreferenceUpdate enumerates the profile fields that UpdatePreferences may
// overwrite. Nil fields are left unchanged.
type PreferenceUpdate struct {
	// Name overwrites the display name when non-nil.
	Name *string

	// PreferredCurrency overwrites the currency code when non-nil.
	PreferredCurrency *string
}

// UserSummary is the analytics snapshot returned by UserSummary and
// AllUsersSummary.
type UserSummary struct {
	Identifier        string     `json:"identifier"`
	Name              string     `json:"name,omitempty"`
	TotalInteractions int        `json:"total_interactions"`
	PreferredCurrency string     `json:"preferred_currency"`
	Interests         []string   `json:"interests"`
	LastInteraction   *time.Time `json:"last_interaction,omitempty"`
	TotalMessages     int        `json:"total_messages"`
	SessionCreated    time.Time  `json:"session_created"`
}
