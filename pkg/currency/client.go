// Package currency fetches real-time exchange rates and formats conversion
// results for chat delivery.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultBaseURL is the public exchangerate-api.com v4 endpoint.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// majorCurrencies are the codes shown in rate tables.
var majorCurrencies = []string{"EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "CNY", "INR"}

// supportedCurrencies maps common currency codes to display names.
var supportedCurrencies = map[string]string{
	"USD": "US Dollar", "EUR": "Euro", "GBP": "British Pound", "JPY": "Japanese Yen",
	"AUD": "Australian Dollar", "CAD": "Canadian Dollar", "CHF": "Swiss Franc",
	"CNY": "Chinese Yuan", "INR": "Indian Rupee", "KRW": "South Korean Won",
	"SGD": "Singapore Dollar", "HKD": "Hong Kong Dollar", "NOK": "Norwegian Krone",
	"SEK": "Swedish Krona", "DKK": "Danish Krone", "PLN": "Polish Zloty",
	"CZK": "Czech Koruna", "HUF": "Hungarian Forint", "RUB": "Russian Ruble",
	"BRL": "Brazilian Real", "MXN": "Mexican Peso", "ZAR": "South African Rand",
	"TRY": "Turkish Lira", "NZD": "New Zealand Dollar", "THB": "Thai Baht",
	"MYR": "Malaysian Ringgit", "PHP": "Philippine Peso", "IDR": "Indonesian Rupiah",
}

// Client is an exchange-rate API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config is the configuration for the exchange-rate client.
// BaseURL: API base URL, defaults to DefaultBaseURL
// Timeout: per-request timeout, defaults to 10 seconds
// HTTPClient: optional custom HTTP client; overrides Timeout when set
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new exchange-rate client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Conversion is the result of converting an amount between two currencies.
type Conversion struct {
	Amount    float64
	From      string
	To        string
	Rate      float64
	Converted float64
	Date      string
}

// ratesResponse mirrors the exchangerate-api.com v4 payload.
type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Rates returns the exchange rates for the given base currency.
func (c *Client) Rates(ctx context.Context, base string) (map[string]float64, string, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = "USD"
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build rates request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("exchange rate API returned status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("failed to decode exchange rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, "", fmt.Errorf("exchange rate API returned no rates for %s", base)
	}

	return payload.Rates, payload.Date, nil
}

// Convert converts amount from one currency to another at the current rate.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	rates, date, err := c.Rates(ctx, from)
	if err != nil {
		return nil, err
	}

	rate, ok := rates[to]
	if !ok {
		return nil, fmt.Errorf("currency %q is not supported", to)
	}

	return &Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: amount * rate,
		Date:      date,
	}, nil
}

// FormatConversion renders a conversion result as a chat-friendly summary.
func FormatConversion(conv *Conversion) string {
	var b strings.Builder
	b.WriteString("*Currency Conversion Result:*\n")
	fmt.Fprintf(&b, "- Amount: %.2f %s\n", conv.Amount, conv.From)
	fmt.Fprintf(&b, "- Converts to: %.2f %s\n", conv.Converted, conv.To)
	fmt.Fprintf(&b, "- Exchange Rate: 1 %s = %.4f %s\n", conv.From, conv.Rate, conv.To)
	date := conv.Date
	if date == "" {
		date = "N/A"
	}
	fmt.Fprintf(&b, "- Last Updated: %s\n", date)
	b.WriteString("\n_Note: Rates are indicative and may vary from actual transaction rates._")
	return b.String()
}

// FormatRates renders the major-currency rates for a base currency.
func FormatRates(base string, rates map[string]float64, date string) string {
	base = strings.ToUpper(strings.TrimSpace(base))

	var b strings.Builder
	fmt.Fprintf(&b, "*Exchange Rates (Base: %s)*\n\n", base)
	for _, code := range majorCurrencies {
		if code == base {
			continue
		}
		if rate, ok := rates[code]; ok {
			fmt.Fprintf(&b, "%s: %.4f\n", code, rate)
		}
	}
	if date == "" {
		date = "N/A"
	}
	fmt.Fprintf(&b, "\n_Last Updated: %s_", date)
	return b.String()
}

// FormatSupported lists the commonly supported currency codes.
func FormatSupported() string {
	codes := make([]string, 0, len(supportedCurrencies))
	for code := range supportedCurrencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString("*Supported Currencies:*\n\n")
	for _, code := range codes {
		fmt.Fprintf(&b, "%s: %s\n", code, supportedCurrencies[code])
	}
	b.WriteString("\n_Note: Many more currencies are supported. These are the most commonly used ones._")
	return b.String()
}

// IsSupported reports whether code is one of the commonly supported
// currencies.
func IsSupported(code string) bool {
	_, ok := supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}
