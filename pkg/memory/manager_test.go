package memory_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbot/whatsapp-sales-agent/pkg/memory"
	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
	filestore "github.com/retailbot/whatsapp-sales-agent/pkg/storage/file"
)

func newTestManager(t *testing.T, opts ...memory.Option) (*memory.Manager, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)

	m, err := memory.NewManager(store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m, dir
}

func TestAppendMessage_Defaults(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	msg := m.AppendMessage(ctx, "+1234567890", memory.RoleUser, "Hi, my name is John")

	require.NotNil(t, msg)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, memory.RoleUser, msg.Role)
	assert.Equal(t, memory.TypeText, msg.Type)
	assert.NotNil(t, msg.Metadata)
	assert.False(t, msg.Timestamp.IsZero())

	summary := m.UserSummary("+1234567890")
	assert.Equal(t, 1, summary.TotalInteractions)
	assert.Equal(t, 1, summary.TotalMessages)
	require.NotNil(t, summary.LastInteraction)
	assert.Equal(t, msg.Timestamp, *summary.LastInteraction)
}

func TestAppendMessage_TypeAndMetadata(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	msg := m.AppendMessage(ctx, "+1234567890", memory.RoleUser, "Convert 1500 USD to EUR",
		memory.WithMessageType(memory.TypeCurrencyConversion),
		memory.WithMetadata(map[string]interface{}{"keyword": "convert"}))

	assert.Equal(t, memory.TypeCurrencyConversion, msg.Type)
	assert.Equal(t, "convert", msg.Metadata["keyword"])
}

func TestAppendMessage_EvictsOldest(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	total := memory.DefaultMaxMessages + 5
	for i := 0; i < total; i++ {
		m.AppendMessage(ctx, id, memory.RoleUser, fmt.Sprintf("message %d", i))
	}

	summary := m.UserSummary(id)
	assert.Equal(t, memory.DefaultMaxMessages, summary.TotalMessages)
	// The interaction counter keeps counting past the retention bound.
	assert.Equal(t, total, summary.TotalInteractions)

	// The oldest messages were dropped: the window starts at message 5.
	contextText := m.Context(id, memory.DefaultMaxMessages)
	assert.NotContains(t, contextText, "message 4\n")
	assert.Contains(t, contextText, "message 5")
	assert.Contains(t, contextText, fmt.Sprintf("message %d", total-1))
}

func TestAddInterest_CaseInsensitiveDedup(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	m.AddInterest(ctx, id, "Gaming")
	m.AddInterest(ctx, id, "gaming")
	m.AddInterest(ctx, id, "GAMING")
	m.AddInterest(ctx, id, "laptops")

	summary := m.UserSummary(id)
	assert.Equal(t, []string{"Gaming", "laptops"}, summary.Interests)
}

func TestUpdatePreferences(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	name := "John Smith"
	eur := "EUR"
	m.UpdatePreferences(ctx, id, memory.PreferenceUpdate{Name: &name, PreferredCurrency: &eur})

	summary := m.UserSummary(id)
	assert.Equal(t, "John Smith", summary.Name)
	assert.Equal(t, "EUR", summary.PreferredCurrency)

	// Unset fields stay untouched.
	gbp := "GBP"
	m.UpdatePreferences(ctx, id, memory.PreferenceUpdate{PreferredCurrency: &gbp})
	summary = m.UserSummary(id)
	assert.Equal(t, "John Smith", summary.Name)
	assert.Equal(t, "GBP", summary.PreferredCurrency)
}

func TestApplyPreferenceFields_IgnoresUnknownAndNonString(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	m.ApplyPreferenceFields(ctx, id, map[string]interface{}{
		"name":               "Alice",
		"preferred_currency": "EUR",
		"favourite_color":    "blue",
		"age":                42,
	})

	summary := m.UserSummary(id)
	assert.Equal(t, "Alice", summary.Name)
	assert.Equal(t, "EUR", summary.PreferredCurrency)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	m, _ := newTestManager(t)

	first := m.GetOrCreate("+1234567890")
	second := m.GetOrCreate("+1234567890")

	assert.Same(t, first, second)
	assert.Equal(t, memory.DefaultCurrency, first.Profile.PreferredCurrency)
	assert.Empty(t, first.Messages)
}

func TestContext_NewUserSentinel(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Equal(t, memory.NewConversationContext, m.Context("+9999999999", 10))
}

func TestContext_Format(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC)
	m, _ := newTestManager(t, memory.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	id := "+1234567890"

	name := "John"
	m.UpdatePreferences(ctx, id, memory.PreferenceUpdate{Name: &name})
	m.AddInterest(ctx, id, "gaming")
	m.AppendMessage(ctx, id, memory.RoleUser, "I'm looking for a laptop")
	m.AppendMessage(ctx, id, memory.RoleAssistant, "We have great gaming laptops!")

	text := m.Context(id, 10)
	assert.Contains(t, text, "User Profile: John (+1234567890)")
	assert.Contains(t, text, "Preferred Currency: USD")
	assert.Contains(t, text, "Total Interactions: 2")
	assert.Contains(t, text, "Interests: gaming")
	assert.Contains(t, text, "Recent Conversation History:")
	assert.Contains(t, text, "[15:04] USER: I'm looking for a laptop")
	assert.Contains(t, text, "[15:04] ASSISTANT: We have great gaming laptops!")
}

func TestContext_BoundedWindow(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	for i := 0; i < 15; i++ {
		m.AppendMessage(ctx, id, memory.RoleUser, fmt.Sprintf("message %d", i))
	}

	text := m.Context(id, 10)
	assert.NotContains(t, text, "message 4\n")
	assert.Contains(t, text, "message 5")
	assert.Contains(t, text, "message 14")
	assert.Equal(t, 10, strings.Count(text, "USER:"))
}

func TestPersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	id := "+1234567890"

	store, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)
	m, err := memory.NewManager(store)
	require.NoError(t, err)

	name := "John Smith"
	eur := "EUR"
	m.AppendMessage(ctx, id, memory.RoleUser, "Hi, my name is John")
	m.AppendMessage(ctx, id, memory.RoleAssistant, "Hello John!")
	m.UpdatePreferences(ctx, id, memory.PreferenceUpdate{Name: &name, PreferredCurrency: &eur})
	m.AddInterest(ctx, id, "gaming")
	require.NoError(t, m.Close())

	// A fresh manager over the same directory sees the full session.
	store2, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)
	m2, err := memory.NewManager(store2)
	require.NoError(t, err)
	defer func() { _ = m2.Close() }()

	summary := m2.UserSummary(id)
	assert.Equal(t, id, summary.Identifier)
	assert.Equal(t, "John Smith", summary.Name)
	assert.Equal(t, "EUR", summary.PreferredCurrency)
	assert.Equal(t, []string{"gaming"}, summary.Interests)
	assert.Equal(t, 2, summary.TotalInteractions)
	assert.Equal(t, 2, summary.TotalMessages)

	text := m2.Context(id, 10)
	assert.Contains(t, text, "Hi, my name is John")
	assert.Contains(t, text, "Hello John!")
}

func TestPersistence_NonPhoneIdentifierRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	id := "user:alice@example.com"

	store, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)
	m, err := memory.NewManager(store)
	require.NoError(t, err)
	m.AppendMessage(ctx, id, memory.RoleUser, "hello")
	require.NoError(t, m.Close())

	store2, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)
	m2, err := memory.NewManager(store2)
	require.NoError(t, err)
	defer func() { _ = m2.Close() }()

	summary := m2.UserSummary(id)
	assert.Equal(t, id, summary.Identifier)
	assert.Equal(t, 1, summary.TotalMessages)
}

func TestStartup_LoadsLegacyRecord(t *testing.T) {
	dir := t.TempDir()

	// A document written by the previous generation of the store: the
	// identifier lives only in the phone_number field and timestamps are
	// naive local ISO strings.
	legacy := `{
  "user_profile": {
    "phone_number": "+1234567890",
    "name": "John",
    "preferred_currency": "EUR",
    "interests": ["gaming"],
    "last_interaction": "2024-06-01T15:04:05.123456",
    "total_interactions": 2
  },
  "messages": [
    {"timestamp": "2024-06-01T15:03:00", "role": "user", "content": "hi", "message_type": "text", "metadata": {}},
    {"timestamp": "2024-06-01T15:04:05", "role": "assistant", "content": "hello!", "message_type": "text", "metadata": {}}
  ],
  "created_at": "2024-06-01T15:00:00",
  "updated_at": "2024-06-01T15:04:05"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_1234567890.json"), []byte(legacy), 0o644))

	store, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)
	m, err := memory.NewManager(store)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	summary := m.UserSummary("+1234567890")
	assert.Equal(t, "John", summary.Name)
	assert.Equal(t, "EUR", summary.PreferredCurrency)
	assert.Equal(t, []string{"gaming"}, summary.Interests)
	assert.Equal(t, 2, summary.TotalInteractions)
	assert.Equal(t, 2, summary.TotalMessages)
	require.NotNil(t, summary.LastInteraction)
}

func TestStartup_SkipsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_bad.json"), []byte("{not json"), 0o644))

	store, err := filestore.NewStore(&filestore.Config{Dir: dir})
	require.NoError(t, err)

	// A single corrupt file never takes the manager down.
	m, err := memory.NewManager(store)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	assert.Empty(t, m.AllUsersSummary())
}

func TestCleanup_Boundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m, _ := newTestManager(t, memory.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	// Last interaction exactly 30 days ago.
	clock = now.AddDate(0, 0, -30)
	m.AppendMessage(ctx, "+1111111111", memory.RoleUser, "on the boundary")

	// Last interaction 31 days ago.
	clock = now.AddDate(0, 0, -31)
	m.AppendMessage(ctx, "+2222222222", memory.RoleUser, "past the boundary")

	// Active user.
	clock = now
	m.AppendMessage(ctx, "+3333333333", memory.RoleUser, "recent")

	removed := m.Cleanup(ctx, 30)
	assert.Equal(t, 1, removed)

	// The exactly-30-days-old session is retained; the older one is gone.
	assert.NotEqual(t, memory.NewConversationContext, m.Context("+1111111111", 10))
	assert.Equal(t, memory.NewConversationContext, m.Context("+2222222222", 10))
	assert.NotEqual(t, memory.NewConversationContext, m.Context("+3333333333", 10))
}

func TestCleanup_NeverTouchesUsersWithoutInteractions(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	m.GetOrCreate("+1111111111")
	removed := m.Cleanup(ctx, 0)
	assert.Zero(t, removed)
}

func TestAllUsersSummary(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	m.AppendMessage(ctx, "+1111111111", memory.RoleUser, "hello")
	m.AppendMessage(ctx, "+2222222222", memory.RoleUser, "hi")

	summaries := m.AllUsersSummary()
	require.Len(t, summaries, 2)

	seen := map[string]bool{}
	for _, s := range summaries {
		seen[s.Identifier] = true
	}
	assert.True(t, seen["+1111111111"])
	assert.True(t, seen["+2222222222"])
}

// failingStore rejects every write so persistence failure handling can be
// observed.
type failingStore struct{}

func (failingStore) Keys(context.Context) ([]string, error) { return nil, nil }
func (failingStore) Load(context.Context, string) (*storage.SessionRecord, error) {
	return nil, storage.ErrRecordNotFound
}
func (failingStore) Save(context.Context, string, *storage.SessionRecord) error {
	return errors.New("disk full")
}
func (failingStore) Delete(context.Context, string) error { return nil }
func (failingStore) Close() error                         { return nil }

func TestPersistenceFailures_AbsorbedAndCounted(t *testing.T) {
	m, err := memory.NewManager(failingStore{})
	require.NoError(t, err)
	ctx := context.Background()

	msg := m.AppendMessage(ctx, "+1234567890", memory.RoleUser, "hello")
	require.NotNil(t, msg)

	// The in-memory effect stands even though the write failed.
	assert.Equal(t, 1, m.UserSummary("+1234567890").TotalMessages)
	assert.Equal(t, uint64(1), m.WriteFailures())

	m.AppendMessage(ctx, "+1234567890", memory.RoleUser, "again")
	assert.Equal(t, uint64(2), m.WriteFailures())
}

func TestConcurrentAppends_SameUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	id := "+1234567890"

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 5; j++ {
				m.AppendMessage(ctx, id, memory.RoleUser, fmt.Sprintf("worker %d message %d", n, j))
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	summary := m.UserSummary(id)
	assert.Equal(t, 50, summary.TotalInteractions)
	assert.Equal(t, 50, summary.TotalMessages)
}
