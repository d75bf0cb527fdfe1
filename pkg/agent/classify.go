package agent

import (
	"strings"

	"github.com/retailbot/whatsapp-sales-agent/pkg/memory"
)

// Classifier assigns a message type to inbound text. It is a pure function
// so callers can replace the keyword matcher with a smarter model without
// touching the rest of the agent.
type Classifier func(text string) memory.MessageType

// Keyword sets checked in priority order. Only the first matching category
// is assigned.
var (
	currencyKeywords = []string{"convert", "currency", "exchange", "rate", "usd", "eur", "gbp", "jpy"}
	productKeywords  = []string{"laptop", "phone", "smartphone", "headphone", "charger", "accessory", "software", "macbook", "iphone", "gaming", "price", "buy", "product"}
	greetingKeywords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy"}
	supportKeywords  = []string{"help", "support", "problem", "issue", "refund", "return", "warranty", "broken", "complaint"}
)

// ClassifyKeywords is the default Classifier. It scans the lowercased text
// against fixed keyword sets: currency terms first, then product, greeting,
// and support terms, falling back to the general type. It is a membership
// test, not language understanding, and will misfile ambiguous phrasing.
func ClassifyKeywords(text string) memory.MessageType {
	lowered := strings.ToLower(text)

	switch {
	case containsAny(lowered, currencyKeywords):
		return memory.TypeCurrencyConversion
	case containsAny(lowered, productKeywords):
		return memory.TypeProductInquiry
	case containsAny(lowered, greetingKeywords):
		return memory.TypeGreeting
	case containsAny(lowered, supportKeywords):
		return memory.TypeSupport
	default:
		return memory.TypeGeneral
	}
}

func containsAny(lowered string, keywords []string) bool {
	return matchKeyword(lowered, keywords) != ""
}

// matchKeyword returns the first keyword found in the lowered text, or an
// empty string. Multi-word keywords match as substrings; single words match
// on word boundaries so "hi" does not fire inside "this".
func matchKeyword(lowered string, keywords []string) string {
	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lowered, kw) {
				return kw
			}
			continue
		}
		if wordSet[kw] {
			return kw
		}
	}
	return ""
}
