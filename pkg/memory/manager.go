package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
)

// Manager owns the mapping from user identifier to conversation session.
//
// It is the sole writer to the persisted records: all mutation goes through
// its operations. The in-memory map is fully populated at startup by scanning
// the session store; records that fail to load are logged and skipped, and
// the affected user simply starts with an empty session on next access.
//
// Concurrency: the manager is safe for concurrent use. Mutating operations on
// the same identifier serialize on a per-identifier lock, so concurrent
// appends for one user cannot interleave their read-modify-write; operations
// on distinct identifiers run independently.
//
// Persistence failures are absorbed: they are logged, counted (see
// WriteFailures), and never surfaced to callers. The in-memory effect of an
// operation always stands.
type Manager struct {
	store storage.SessionStore

	maxMessages    int
	sessionTimeout time.Duration
	clock          func() time.Time
	logger         *slog.Logger

	// snowflakeNode generates unique IDs for appended messages.
	snowflakeNode *snowflake.Node

	// mu guards sessions and locks.
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex

	// writeFailures counts persistence failures since startup.
	writeFailures atomic.Uint64
}

// NewManager creates a conversation memory manager backed by store and loads
// all existing sessions from it.
//
// A failing startup scan is not fatal: unreadable or unparseable records are
// logged and skipped so a single corrupt file never takes the bot down.
func NewManager(store storage.SessionStore, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, NewMemoryError("NewManager", ErrInvalidConfig)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewManager", err)
	}

	m := &Manager{
		store:          store,
		maxMessages:    DefaultMaxMessages,
		sessionTimeout: DefaultSessionTimeout,
		clock:          time.Now,
		logger:         slog.Default(),
		snowflakeNode:  node,
		sessions:       make(map[string]*Session),
		locks:          make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadSessions(context.Background())
	return m, nil
}

// loadSessions rebuilds the in-memory map from the session store.
func (m *Manager) loadSessions(ctx context.Context) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		m.logger.Error("memory: session scan failed", "err", err)
		return
	}

	for _, key := range keys {
		record, err := m.store.Load(ctx, key)
		if err != nil {
			m.logger.Error("memory: skipping unreadable session record", "key", key, "err", err)
			continue
		}

		identifier := record.Identifier()
		if identifier == "" {
			// Legacy records reconstructed the identifier from the
			// file name, assuming international "+<digits>" form.
			identifier = "+" + key
			m.logger.Warn("memory: session record missing identifier, derived from key",
				"key", key, "identifier", identifier)
		}

		session := fromRecord(identifier, record)
		m.sessions[identifier] = session
		m.logger.Info("memory: loaded session",
			"identifier", identifier, "messages", len(session.Messages))
	}
}

// lockFor returns the mutex serializing mutations for identifier.
func (m *Manager) lockFor(identifier string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[identifier]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[identifier] = lock
	}
	return lock
}

// GetOrCreate returns the session for identifier, creating a fresh one with a
// default profile when the identifier has not been seen before.
//
// Creation is purely in-memory: nothing is persisted until the next write
// operation touches the session.
func (m *Manager) GetOrCreate(identifier string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(identifier)
}

// getOrCreateLocked resolves or creates a session. Callers must hold m.mu.
func (m *Manager) getOrCreateLocked(identifier string) *Session {
	if session, ok := m.sessions[identifier]; ok {
		return session
	}

	now := m.clock()
	session := &Session{
		Profile: UserProfile{
			Identifier:        identifier,
			PreferredCurrency: DefaultCurrency,
			Interests:         []string{},
		},
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[identifier] = session
	m.logger.Info("memory: created new session", "identifier", identifier)
	return session
}

// session resolves or lazily creates the session for identifier.
func (m *Manager) session(identifier string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(identifier)
}

// AppendMessage appends a conversation turn to the user's history.
//
// The message is stamped with the current time and a unique ID, the profile's
// interaction counter and last-interaction timestamp are updated, and the
// retention bound is enforced by dropping the oldest messages. The session is
// then persisted synchronously; persistence failures are logged and absorbed,
// never returned.
//
// Returns the appended message.
func (m *Manager) AppendMessage(ctx context.Context, identifier string, role Role, content string, opts ...MessageOption) *Message {
	lock := m.lockFor(identifier)
	lock.Lock()
	defer lock.Unlock()

	session := m.session(identifier)

	msg := Message{
		ID:        m.snowflakeNode.Generate().Int64(),
		Timestamp: m.clock(),
		Role:      role,
		Content:   content,
		Type:      TypeText,
	}
	for _, opt := range opts {
		opt(&msg)
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]interface{}{}
	}

	session.Messages = append(session.Messages, msg)
	session.Profile.TotalInteractions++
	last := msg.Timestamp
	session.Profile.LastInteraction = &last

	// Retention bound: keep only the most recent messages.
	if len(session.Messages) > m.maxMessages {
		session.Messages = session.Messages[len(session.Messages)-m.maxMessages:]
	}

	m.persist(ctx, identifier, session)
	return &session.Messages[len(session.Messages)-1]
}

// UpdatePreferences overwrites the profile fields set in update and persists
// the session.
func (m *Manager) UpdatePreferences(ctx context.Context, identifier string, update PreferenceUpdate) {
	lock := m.lockFor(identifier)
	lock.Lock()
	defer lock.Unlock()

	session := m.session(identifier)
	if update.Name != nil {
		session.Profile.Name = *update.Name
		m.logger.Info("memory: updated name", "identifier", identifier, "name", *update.Name)
	}
	if update.PreferredCurrency != nil {
		session.Profile.PreferredCurrency = *update.PreferredCurrency
		m.logger.Info("memory: updated preferred currency",
			"identifier", identifier, "currency", *update.PreferredCurrency)
	}

	m.persist(ctx, identifier, session)
}

// ApplyPreferenceFields applies a dynamic field→value map against the
// explicit set of updatable profile attributes ("name",
// "preferred_currency"). Unknown field names and non-string values are
// ignored deterministically; this mirrors how upstream callers feed loosely
// typed preference updates.
func (m *Manager) ApplyPreferenceFields(ctx context.Context, identifier string, fields map[string]interface{}) {
	update := PreferenceUpdate{}
	for key, value := range fields {
		text, ok := value.(string)
		if !ok {
			m.logger.Debug("memory: ignoring non-string preference value", "field", key)
			continue
		}
		switch key {
		case "name":
			update.Name = &text
		case "preferred_currency":
			update.PreferredCurrency = &text
		default:
			m.logger.Debug("memory: ignoring unknown preference field", "field", key)
		}
	}
	m.UpdatePreferences(ctx, identifier, update)
}

// AddInterest appends an interest tag to the user's profile unless an equal
// tag (compared case-insensitively) is already present. The first-seen casing
// is retained.
func (m *Manager) AddInterest(ctx context.Context, identifier, interest string) {
	lock := m.lockFor(identifier)
	lock.Lock()
	defer lock.Unlock()

	session := m.session(identifier)
	for _, existing := range session.Profile.Interests {
		if strings.EqualFold(existing, interest) {
			return
		}
	}
	session.Profile.Interests = append(session.Profile.Interests, interest)
	m.logger.Info("memory: added interest", "identifier", identifier, "interest", interest)

	m.persist(ctx, identifier, session)
}

// UserSummary returns the analytics snapshot for identifier, lazily creating
// the session when the identifier is unseen.
func (m *Manager) UserSummary(identifier string) UserSummary {
	lock := m.lockFor(identifier)
	lock.Lock()
	defer lock.Unlock()

	session := m.session(identifier)
	return UserSummary{
		Identifier:        identifier,
		Name:              session.Profile.Name,
		TotalInteractions: session.Profile.TotalInteractions,
		PreferredCurrency: session.Profile.PreferredCurrency,
		Interests:         append([]string(nil), session.Profile.Interests...),
		LastInteraction:   session.Profile.LastInteraction,
		TotalMessages:     len(session.Messages),
		SessionCreated:    session.CreatedAt,
	}
}

// AllUsersSummary returns the analytics snapshot for every known user.
func (m *Manager) AllUsersSummary() []UserSummary {
	m.mu.RLock()
	identifiers := make([]string, 0, len(m.sessions))
	for identifier := range m.sessions {
		identifiers = append(identifiers, identifier)
	}
	m.mu.RUnlock()

	summaries := make([]UserSummary, 0, len(identifiers))
	for _, identifier := range identifiers {
		summaries = append(summaries, m.UserSummary(identifier))
	}
	return summaries
}

// Cleanup purges sessions whose last interaction is strictly older than
// inactiveDays, deleting both the durable record and the in-memory entry.
//
// The boundary is non-strict: a session whose last interaction is exactly
// inactiveDays old is retained. Sessions that never recorded an interaction
// are never cleaned up.
//
// Returns the number of sessions removed.
func (m *Manager) Cleanup(ctx context.Context, inactiveDays int) int {
	cutoff := m.clock().AddDate(0, 0, -inactiveDays)

	m.mu.RLock()
	identifiers := make([]string, 0, len(m.sessions))
	for identifier := range m.sessions {
		identifiers = append(identifiers, identifier)
	}
	m.mu.RUnlock()

	removed := 0
	for _, identifier := range identifiers {
		lock := m.lockFor(identifier)
		lock.Lock()

		m.mu.Lock()
		session, ok := m.sessions[identifier]
		if !ok || session.Profile.LastInteraction == nil ||
			!session.Profile.LastInteraction.Before(cutoff) {
			m.mu.Unlock()
			lock.Unlock()
			continue
		}
		delete(m.sessions, identifier)
		delete(m.locks, identifier)
		m.mu.Unlock()

		key := storage.SanitizeKey(identifier)
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.Error("memory: failed to delete session record",
				"identifier", identifier, "err", err)
		}
		m.logger.Info("memory: cleaned up inactive session", "identifier", identifier)
		removed++
		lock.Unlock()
	}
	return removed
}

// WriteFailures reports how many session persistence attempts have failed
// since the manager was constructed. Operators can watch this counter to
// detect persistent storage trouble that the log-and-continue policy would
// otherwise hide.
func (m *Manager) WriteFailures() uint64 {
	return m.writeFailures.Load()
}

// Close closes the underlying session store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// persist writes the session to the store. Failures are logged and counted
// but never propagated: the in-memory state still reflects the mutation.
func (m *Manager) persist(ctx context.Context, identifier string, session *Session) {
	session.UpdatedAt = m.clock()

	key := storage.SanitizeKey(identifier)
	if err := m.store.Save(ctx, key, toRecord(session)); err != nil {
		m.writeFailures.Add(1)
		m.logger.Error("memory: failed to persist session",
			"identifier", identifier, "key", key, "err", err)
		return
	}
	m.logger.Debug("memory: persisted session", "identifier", identifier, "key", key)
}
