// Package agent implements the retail sales assistant: it classifies
// inbound messages, primes the LLM with conversation memory, grounds
// currency questions in live exchange rates, and records what it learns
// about the user back into memory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/retailbot/whatsapp-sales-agent/pkg/currency"
	"github.com/retailbot/whatsapp-sales-agent/pkg/llm"
	"github.com/retailbot/whatsapp-sales-agent/pkg/memory"
	"github.com/retailbot/whatsapp-sales-agent/pkg/retry"
)

// contextMessages is how many recent turns are included in the prompt.
const contextMessages = 10

// convertPattern matches requests like "convert 1500 USD to EUR".
var convertPattern = regexp.MustCompile(`(?i)convert\s+([\d,]+(?:\.\d+)?)\s+([a-z]{3})\s+(?:to|into)\s+([a-z]{3})`)

// Agent answers customer messages using an LLM primed with per-user
// conversation memory.
type Agent struct {
	memory   *memory.Manager
	provider llm.Provider
	currency *currency.Client
	classify Classifier
	retryCfg retry.Config
	logger   *slog.Logger
	clock    func() time.Time
}

// Config is the configuration for the sales agent.
// Memory: conversation memory manager (required)
// Provider: LLM provider (required)
// Currency: exchange-rate client; nil disables conversion grounding
// Classifier: message-type classifier, defaults to ClassifyKeywords
// Retry: LLM retry policy, defaults to 3 attempts with backoff
// Logger: defaults to slog.Default()
type Config struct {
	Memory     *memory.Manager
	Provider   llm.Provider
	Currency   *currency.Client
	Classifier Classifier
	Retry      retry.Config
	Logger     *slog.Logger
}

// NewAgent creates a new sales agent.
func NewAgent(cfg *Config) (*Agent, error) {
	if cfg.Memory == nil {
		return nil, errors.New("memory manager is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("LLM provider is required")
	}

	classify := cfg.Classifier
	if classify == nil {
		classify = ClassifyKeywords
	}
	retryCfg := cfg.Retry
	if retryCfg.Attempts == 0 {
		retryCfg = retry.Default
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		memory:   cfg.Memory,
		provider: cfg.Provider,
		currency: cfg.Currency,
		classify: classify,
		retryCfg: retryCfg,
		logger:   logger,
		clock:    time.Now,
	}, nil
}

// Respond processes one customer message and returns the reply text. The
// user turn and the reply are both recorded in memory. Failures never reach
// the customer as raw errors; after retries a fixed apology (or the
// conversion result itself, for currency questions) is returned instead.
func (a *Agent) Respond(ctx context.Context, identifier, text string) string {
	msgType := a.classify(text)

	msgOpts := []memory.MessageOption{memory.WithMessageType(msgType)}
	if kw := matchedKeyword(text); kw != "" {
		msgOpts = append(msgOpts, memory.WithMetadata(map[string]interface{}{"keyword": kw}))
	}
	a.memory.AppendMessage(ctx, identifier, memory.RoleUser, text, msgOpts...)

	history := a.memory.Context(identifier, contextMessages)

	toolResult, conv := a.currencyToolResult(ctx, text, msgType)

	prompt := a.buildPrompt(history, text, toolResult)

	var reply string
	err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) error {
		var genErr error
		reply, genErr = a.provider.GenerateWithMessages(ctx, prompt)
		return genErr
	})
	if err != nil {
		a.logger.Error("llm generation failed", "identifier", identifier, "error", err)
		if toolResult != "" {
			reply = toolResult
		} else {
			reply = apologyReply
		}
	}

	a.memory.AppendMessage(ctx, identifier, memory.RoleAssistant, reply,
		memory.WithMessageType(msgType))

	a.recordSignals(ctx, identifier, text, msgType, conv)

	return reply
}

// currencyToolResult runs the currency tool for messages that parse as an
// explicit conversion request. The formatted result both grounds the LLM
// prompt and serves as the fallback reply when generation fails.
func (a *Agent) currencyToolResult(ctx context.Context, text string, msgType memory.MessageType) (string, *currency.Conversion) {
	if a.currency == nil || msgType != memory.TypeCurrencyConversion {
		return "", nil
	}

	match := convertPattern.FindStringSubmatch(text)
	if match == nil {
		return "", nil
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return "", nil
	}

	conv, err := a.currency.Convert(ctx, amount, match[2], match[3])
	if err != nil {
		a.logger.Warn("currency conversion failed", "from", match[2], "to", match[3], "error", err)
		return "", nil
	}
	return currency.FormatConversion(conv), conv
}

func (a *Agent) buildPrompt(history, text, toolResult string) []llm.Message {
	var user strings.Builder
	user.WriteString(history)
	user.WriteString("\n\n")
	if toolResult != "" {
		user.WriteString("Exchange rate lookup result (use these numbers, do not invent rates):\n")
		user.WriteString(toolResult)
		user.WriteString("\n\n")
	}
	fmt.Fprintf(&user, "Customer message: %s", text)

	return []llm.Message{
		{Role: "system", Content: systemPrompt(a.clock())},
		{Role: "user", Content: user.String()},
	}
}

// recordSignals opportunistically updates the profile from the exchange:
// a completed conversion sets the preferred currency, and matched product
// terms become interests.
func (a *Agent) recordSignals(ctx context.Context, identifier, text string, msgType memory.MessageType, conv *currency.Conversion) {
	if conv != nil {
		to := conv.To
		a.memory.UpdatePreferences(ctx, identifier, memory.PreferenceUpdate{PreferredCurrency: &to})
	}
	if msgType == memory.TypeProductInquiry {
		if kw := matchKeyword(strings.ToLower(text), productKeywords); kw != "" && isInterestTerm(kw) {
			a.memory.AddInterest(ctx, identifier, kw)
		}
	}
}

// matchedKeyword returns the keyword that drove classification, if any.
func matchedKeyword(text string) string {
	lowered := strings.ToLower(text)
	for _, set := range [][]string{currencyKeywords, productKeywords, greetingKeywords, supportKeywords} {
		if kw := matchKeyword(lowered, set); kw != "" {
			return kw
		}
	}
	return ""
}

// isInterestTerm filters out generic shopping words that would pollute the
// interest list.
func isInterestTerm(kw string) bool {
	switch kw {
	case "price", "buy", "product":
		return false
	}
	return true
}
