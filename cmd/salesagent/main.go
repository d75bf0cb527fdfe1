// Command salesagent runs the WhatsApp retail sales assistant: webhook
// endpoints for the Meta Cloud API and Twilio, an LLM-backed agent, and
// durable per-user conversation memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/retailbot/whatsapp-sales-agent/pkg/agent"
	"github.com/retailbot/whatsapp-sales-agent/pkg/currency"
	"github.com/retailbot/whatsapp-sales-agent/pkg/llm"
	anthropicllm "github.com/retailbot/whatsapp-sales-agent/pkg/llm/anthropic"
	openaillm "github.com/retailbot/whatsapp-sales-agent/pkg/llm/openai"
	"github.com/retailbot/whatsapp-sales-agent/pkg/memory"
	"github.com/retailbot/whatsapp-sales-agent/pkg/server"
	"github.com/retailbot/whatsapp-sales-agent/pkg/storage"
	filestore "github.com/retailbot/whatsapp-sales-agent/pkg/storage/file"
	"github.com/retailbot/whatsapp-sales-agent/pkg/storage/mysql"
	"github.com/retailbot/whatsapp-sales-agent/pkg/storage/postgres"
	"github.com/retailbot/whatsapp-sales-agent/pkg/storage/sqlite"
	"github.com/retailbot/whatsapp-sales-agent/pkg/twilio"
	"github.com/retailbot/whatsapp-sales-agent/pkg/whatsapp"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	mem, err := memory.NewManager(store, memory.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create memory manager: %w", err)
	}
	defer func() { _ = mem.Close() }()

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	defer func() { _ = provider.Close() }()

	salesAgent, err := agent.NewAgent(&agent.Config{
		Memory:   mem,
		Provider: provider,
		Currency: currency.NewClient(nil),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	opts := &server.Options{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Responder:   salesAgent,
		VerifyToken: cfg.WhatsApp.VerifyToken,
		Logger:      logger,
	}

	if cfg.MetaEnabled() {
		meta, err := whatsapp.NewClient(&whatsapp.Config{
			AccessToken:   cfg.WhatsApp.AccessToken,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		})
		if err != nil {
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		opts.Meta = meta
	}
	if cfg.TwilioEnabled() {
		tw, err := twilio.NewClient(&twilio.Config{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.From,
		})
		if err != nil {
			return fmt.Errorf("failed to create Twilio client: %w", err)
		}
		opts.Twilio = tw
		opts.TwilioAuthToken = cfg.Twilio.AuthToken
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info("sales agent running",
		"port", cfg.Port,
		"store", cfg.Memory.Store,
		"provider", cfg.LLM.Provider,
		"meta", cfg.MetaEnabled(),
		"twilio", cfg.TwilioEnabled())

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// newStore opens the session store backend named in the configuration.
func newStore(cfg *server.Config) (storage.SessionStore, error) {
	switch cfg.Memory.Store {
	case "file":
		return filestore.NewStore(&filestore.Config{Dir: cfg.Memory.Dir})
	case "sqlite":
		return sqlite.NewStore(&sqlite.Config{DBPath: cfg.Memory.SQLitePath})
	case "postgres":
		pg := cfg.Memory.Postgres
		return postgres.NewStore(&postgres.Config{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			DBName:   pg.DBName,
			SSLMode:  pg.SSLMode,
		})
	case "mysql":
		my := cfg.Memory.MySQL
		return mysql.NewStore(&mysql.Config{
			Host:     my.Host,
			Port:     my.Port,
			User:     my.User,
			Password: my.Password,
			DBName:   my.DBName,
		})
	default:
		return nil, fmt.Errorf("unsupported memory store %q", cfg.Memory.Store)
	}
}

// newProvider creates the LLM provider named in the configuration.
func newProvider(cfg *server.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openaillm.NewClient(&openaillm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	case "anthropic":
		return anthropicllm.NewClient(&anthropicllm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLM.Provider)
	}
}
