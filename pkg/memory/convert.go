package memory

import (
	"time"

	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
)

// timestampLayout is the wire form of all persisted timestamps.
const timestampLayout = time.RFC3339

// timestampParseLayouts are tried in order when reading persisted timestamps.
// Legacy records were written by a system whose ISO timestamps carry
// fractional seconds but no zone designator.
var timestampParseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// formatTimestamp renders t in the persisted wire form.
func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// parseTimestamp parses a persisted timestamp, tolerating the legacy layouts.
// The zero time and false are returned when no layout matches.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampParseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toRecord converts a session to its persisted document form.
func toRecord(session *Session) *storage.SessionRecord {
	record := &storage.SessionRecord{
		UserProfile: storage.ProfileRecord{
			Identifier:        session.Profile.Identifier,
			Name:              session.Profile.Name,
			PreferredCurrency: session.Profile.PreferredCurrency,
			Interests:         append([]string(nil), session.Profile.Interests...),
			TotalInteractions: session.Profile.TotalInteractions,
		},
		Messages:       make([]storage.MessageRecord, 0, len(session.Messages)),
		SessionSummary: session.Summary,
		CreatedAt:      formatTimestamp(session.CreatedAt),
		UpdatedAt:      formatTimestamp(session.UpdatedAt),
	}
	if record.UserProfile.Interests == nil {
		record.UserProfile.Interests = []string{}
	}
	if session.Profile.LastInteraction != nil {
		record.UserProfile.LastInteraction = formatTimestamp(*session.Profile.LastInteraction)
	}

	for _, msg := range session.Messages {
		record.Messages = append(record.Messages, storage.MessageRecord{
			ID:          msg.ID,
			Timestamp:   formatTimestamp(msg.Timestamp),
			Role:        string(msg.Role),
			Content:     msg.Content,
			MessageType: string(msg.Type),
			Metadata:    msg.Metadata,
		})
	}
	return record
}

// fromRecord converts a persisted document back to a session.
//
// identifier is the value the caller resolved from the record (or, for legacy
// records, from the storage key). Unparseable message timestamps degrade to
// the zero time rather than failing the whole record.
func fromRecord(identifier string, record *storage.SessionRecord) *Session {
	session := &Session{
		Profile: UserProfile{
			Identifier:        identifier,
			Name:              record.UserProfile.Name,
			PreferredCurrency: record.UserProfile.PreferredCurrency,
			Interests:         append([]string(nil), record.UserProfile.Interests...),
			TotalInteractions: record.UserProfile.TotalInteractions,
		},
		Messages: make([]Message, 0, len(record.Messages)),
		Summary:  record.SessionSummary,
	}
	if session.Profile.PreferredCurrency == "" {
		session.Profile.PreferredCurrency = DefaultCurrency
	}
	if last, ok := parseTimestamp(record.UserProfile.LastInteraction); ok {
		session.Profile.LastInteraction = &last
	}
	if created, ok := parseTimestamp(record.CreatedAt); ok {
		session.CreatedAt = created
	}
	if updated, ok := parseTimestamp(record.UpdatedAt); ok {
		session.UpdatedAt = updated
	}
	if session.UpdatedAt.Before(session.CreatedAt) {
		session.UpdatedAt = session.CreatedAt
	}

	for _, msg := range record.Messages {
		timestamp, _ := parseTimestamp(msg.Timestamp)
		messageType := MessageType(msg.MessageType)
		if messageType == "" {
			messageType = TypeText
		}
		session.Messages = append(session.Messages, Message{
			ID:        msg.ID,
			Timestamp: timestamp,
			Role:      Role(msg.Role),
			Content:   msg.Content,
			Type:      messageType,
			Metadata:  msg.Metadata,
		})
	}
	return session
}
