package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader is the request header carrying Twilio's webhook signature.
const SignatureHeader = "X-Twilio-Signature"

// InboundMessage is a parsed Twilio WhatsApp webhook message.
type InboundMessage struct {
	// From is the sender's number with the "whatsapp:" prefix removed.
	From string
	// Body is the message text.
	Body string
}

// ParseWebhook extracts the sender and body from a Twilio webhook form
// request. The request form must already be parsed.
func ParseWebhook(form url.Values) InboundMessage {
	return InboundMessage{
		From: strings.TrimPrefix(form.Get("From"), "whatsapp:"),
		Body: form.Get("Body"),
	}
}

// ComputeSignature computes the Twilio webhook signature for a request URL
// and its form parameters: the URL concatenated with each parameter name and
// value in lexical order, HMAC-SHA1 signed with the auth token, base64
// encoded.
func ComputeSignature(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateRequest checks the X-Twilio-Signature header of a parsed-form
// request against the expected signature. requestURL must be the full public
// URL Twilio was configured with.
func ValidateRequest(authToken, requestURL string, r *http.Request) bool {
	got := r.Header.Get(SignatureHeader)
	if got == "" {
		return false
	}
	want := ComputeSignature(authToken, requestURL, r.PostForm)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
