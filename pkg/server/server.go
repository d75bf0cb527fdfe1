// Package server exposes the webhook and operational HTTP endpoints of the
// sales agent service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/retailbot/whatsapp-sales-agent/pkg/twilio"
	"github.com/retailbot/whatsapp-sales-agent/pkg/whatsapp"
)

// serviceName appears in the health endpoint payload.
const serviceName = "WhatsApp Sales Agent"

// Responder produces a reply for one inbound customer message.
type Responder interface {
	Respond(ctx context.Context, identifier, text string) string
}

// TextSender delivers a text message to a phone number. Both transport
// clients satisfy it.
type TextSender interface {
	SendText(ctx context.Context, to, text string) error
}

// Server routes webhook traffic from the messaging platforms to the agent.
type Server struct {
	addr      string
	responder Responder

	meta         TextSender
	twilioSender TextSender

	verifyToken      string
	twilioAuthToken  string
	twilioWebhookURL string

	logger    *slog.Logger
	startedAt time.Time
	mux       *http.ServeMux
	server    *http.Server
}

// Options configures the server.
// Addr: listen address, e.g. ":5000" (required for Start)
// Responder: the sales agent (required)
// Meta: Meta Cloud API sender; nil disables the /webhook transport
// Twilio: Twilio sender; nil disables the /twilio/webhook transport
// VerifyToken: Meta webhook verification token
// TwilioAuthToken + TwilioWebhookURL: enable webhook signature validation
// Logger: defaults to slog.Default()
type Options struct {
	Addr             string
	Responder        Responder
	Meta             TextSender
	Twilio           TextSender
	VerifyToken      string
	TwilioAuthToken  string
	TwilioWebhookURL string
	Logger           *slog.Logger
}

// New creates the HTTP server (does not start it).
func New(opts *Options) (*Server, error) {
	if opts.Responder == nil {
		return nil, errors.New("responder is required")
	}
	if opts.Meta == nil && opts.Twilio == nil {
		return nil, errors.New("at least one transport sender is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:             opts.Addr,
		responder:        opts.Responder,
		meta:             opts.Meta,
		twilioSender:     opts.Twilio,
		verifyToken:      opts.VerifyToken,
		twilioAuthToken:  opts.TwilioAuthToken,
		twilioWebhookURL: opts.TwilioWebhookURL,
		logger:           logger,
		startedAt:        time.Now(),
		mux:              http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /webhook", s.handleVerify)
	s.mux.HandleFunc("POST /webhook", s.handleMetaWebhook)
	s.mux.HandleFunc("POST /twilio/webhook", s.handleTwilioWebhook)
	s.mux.HandleFunc("POST /send-message", s.handleSendMessage)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s, nil
}

// ServeHTTP implements http.Handler so handlers can be exercised with
// httptest without a live listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start begins listening in the background. It blocks until the listener is
// bound so callers know the port is open, and shuts down gracefully when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleVerify answers the Meta webhook verification handshake: echo the
// challenge when the token matches, 403 otherwise.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && s.verifyToken != "" && token == s.verifyToken {
		s.logger.Info("webhook verified")
		fmt.Fprint(w, challenge)
		return
	}

	s.logger.Warn("webhook verification failed", "mode", mode)
	http.Error(w, "Verification failed", http.StatusForbidden)
}

// handleMetaWebhook processes inbound Meta Cloud API messages. It answers
// 200 even when individual messages fail so the platform does not
// retry-storm; failures are logged with a correlation ID.
func (s *Server) handleMetaWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Warn("malformed webhook payload", "error", err)
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid payload"})
		return
	}

	for _, msg := range whatsapp.ExtractTextMessages(&payload) {
		logger.Info("processing message", "from", msg.From)
		reply := s.responder.Respond(r.Context(), msg.From, msg.Body)
		if s.meta == nil {
			logger.Warn("meta transport not configured, dropping reply", "to", msg.From)
			continue
		}
		if err := s.meta.SendText(r.Context(), msg.From, reply); err != nil {
			logger.Error("failed to send reply", "to", msg.From, "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleTwilioWebhook processes inbound Twilio WhatsApp messages. Signature
// validation runs only when an auth token and public webhook URL are
// configured.
func (s *Server) handleTwilioWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	if err := r.ParseForm(); err != nil {
		logger.Warn("malformed webhook form", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if s.twilioAuthToken != "" && s.twilioWebhookURL != "" {
		if !twilio.ValidateRequest(s.twilioAuthToken, s.twilioWebhookURL, r) {
			logger.Warn("webhook signature validation failed")
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	msg := twilio.ParseWebhook(r.PostForm)
	if msg.From == "" || msg.Body == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	logger.Info("processing message", "from", msg.From)
	reply := s.responder.Respond(r.Context(), msg.From, msg.Body)
	if s.twilioSender != nil {
		if err := s.twilioSender.SendText(r.Context(), msg.From, reply); err != nil {
			logger.Error("failed to send reply", "to", msg.From, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// sendMessageRequest is the body for the manual send endpoint.
type sendMessageRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// handleSendMessage lets operators push a message to a user, mainly for
// testing transport credentials.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone_number and message required"})
		return
	}

	sender := s.meta
	if sender == nil {
		sender = s.twilioSender
	}
	if err := sender.SendText(r.Context(), req.PhoneNumber, req.Message); err != nil {
		s.logger.Error("manual send failed", "to", req.PhoneNumber, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send message"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "Message sent successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   serviceName,
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}
