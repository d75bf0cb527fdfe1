package memory

import (
	"fmt"
	"strings"
)

// NewConversationContext is returned by Context for users with no history.
const NewConversationContext = "This is a new conversation with the user."

// Context renders the bounded textual context window handed to the LLM: a
// profile header followed by up to lastN recent messages, oldest first, each
// as "[HH:MM] ROLE: content".
//
// lastN <= 0 selects DefaultContextMessages. A never-seen identifier lazily
// creates its session (matching every other operation) and yields the
// new-conversation sentinel.
func (m *Manager) Context(identifier string, lastN int) string {
	if lastN <= 0 {
		lastN = DefaultContextMessages
	}

	lock := m.lockFor(identifier)
	lock.Lock()
	defer lock.Unlock()

	session := m.session(identifier)
	if len(session.Messages) == 0 {
		return NewConversationContext
	}

	recent := session.Messages
	if len(recent) > lastN {
		recent = recent[len(recent)-lastN:]
	}

	name := session.Profile.Name
	if name == "" {
		name = "Unknown"
	}
	interests := "None yet"
	if len(session.Profile.Interests) > 0 {
		interests = strings.Join(session.Profile.Interests, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User Profile: %s (%s)\n", name, identifier)
	fmt.Fprintf(&b, "Preferred Currency: %s\n", session.Profile.PreferredCurrency)
	fmt.Fprintf(&b, "Total Interactions: %d\n", session.Profile.TotalInteractions)
	fmt.Fprintf(&b, "Interests: %s\n", interests)
	b.WriteString("\nRecent Conversation History:")

	for _, msg := range recent {
		fmt.Fprintf(&b, "\n[%s] %s: %s",
			msg.Timestamp.Format("15:04"), strings.ToUpper(string(msg.Role)), msg.Content)
	}
	return b.String()
}
