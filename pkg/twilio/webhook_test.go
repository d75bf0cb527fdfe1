package twilio_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailbot/whatsapp-sales-agent/pkg/twilio"
)

func TestParseWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("From", "whatsapp:+1234567890")
	form.Set("Body", "I'm looking for a laptop")

	msg := twilio.ParseWebhook(form)
	assert.Equal(t, "+1234567890", msg.From)
	assert.Equal(t, "I'm looking for a laptop", msg.Body)
}

func TestParseWebhook_Empty(t *testing.T) {
	msg := twilio.ParseWebhook(url.Values{})
	assert.Empty(t, msg.From)
	assert.Empty(t, msg.Body)
}

func TestComputeSignature_SortedParams(t *testing.T) {
	form := url.Values{}
	form.Set("From", "whatsapp:+1234567890")
	form.Set("Body", "hello")

	sig := twilio.ComputeSignature("token", "https://example.com/twilio/webhook", form)
	require.NotEmpty(t, sig)

	// Parameter insertion order must not matter.
	reordered := url.Values{}
	reordered.Set("Body", "hello")
	reordered.Set("From", "whatsapp:+1234567890")
	assert.Equal(t, sig, twilio.ComputeSignature("token", "https://example.com/twilio/webhook", reordered))

	// Different tokens produce different signatures.
	assert.NotEqual(t, sig, twilio.ComputeSignature("other", "https://example.com/twilio/webhook", form))
}

func TestValidateRequest(t *testing.T) {
	const webhookURL = "https://example.com/twilio/webhook"
	const token = "secret"

	form := url.Values{}
	form.Set("From", "whatsapp:+1234567890")
	form.Set("Body", "hello")

	makeRequest := func(signature string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if signature != "" {
			r.Header.Set(twilio.SignatureHeader, signature)
		}
		require.NoError(t, r.ParseForm())
		return r
	}

	valid := twilio.ComputeSignature(token, webhookURL, form)
	assert.True(t, twilio.ValidateRequest(token, webhookURL, makeRequest(valid)))
	assert.False(t, twilio.ValidateRequest(token, webhookURL, makeRequest("bogus")))
	assert.False(t, twilio.ValidateRequest(token, webhookURL, makeRequest("")))
}
