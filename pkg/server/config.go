package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs to run. Values come from an
// optional YAML file, overridden by environment variables (a .env file is
// loaded first when present).
type Config struct {
	Port int `yaml:"port"`

	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"llm"`

	Memory struct {
		Store string `yaml:"store"`
		Dir   string `yaml:"dir"`

		SQLitePath string `yaml:"sqlite_path"`

		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`

		MySQL struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
		} `yaml:"mysql"`
	} `yaml:"memory"`

	WhatsApp struct {
		AccessToken   string `yaml:"access_token"`
		PhoneNumberID string `yaml:"phone_number_id"`
		VerifyToken   string `yaml:"verify_token"`
	} `yaml:"whatsapp"`

	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		From       string `yaml:"from"`
	} `yaml:"twilio"`
}

// LoadConfig builds the configuration. A .env file in the working directory
// is loaded into the environment when present. When configPath is non-empty
// the YAML file is read first; environment variables override its values.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Port = 5000
	cfg.LLM.Provider = "openai"
	cfg.Memory.Store = "file"
	cfg.Memory.Dir = "data/conversations"
	cfg.Memory.SQLitePath = "data/conversations.db"
	cfg.Memory.Postgres.Port = 5432
	cfg.Memory.Postgres.SSLMode = "disable"
	cfg.Memory.MySQL.Port = 3306

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(&cfg.Port, "PORT")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")

	setString(&cfg.Memory.Store, "MEMORY_STORE")
	setString(&cfg.Memory.Dir, "MEMORY_DIR")
	setString(&cfg.Memory.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Memory.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Memory.Postgres.Port, "POSTGRES_PORT")
	setString(&cfg.Memory.Postgres.User, "POSTGRES_USER")
	setString(&cfg.Memory.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Memory.Postgres.DBName, "POSTGRES_DB")
	setString(&cfg.Memory.Postgres.SSLMode, "POSTGRES_SSLMODE")
	setString(&cfg.Memory.MySQL.Host, "MYSQL_HOST")
	setInt(&cfg.Memory.MySQL.Port, "MYSQL_PORT")
	setString(&cfg.Memory.MySQL.User, "MYSQL_USER")
	setString(&cfg.Memory.MySQL.Password, "MYSQL_PASSWORD")
	setString(&cfg.Memory.MySQL.DBName, "MYSQL_DB")

	setString(&cfg.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	setString(&cfg.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	setString(&cfg.WhatsApp.VerifyToken, "WHATSAPP_VERIFY_TOKEN")

	setString(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&cfg.Twilio.From, "TWILIO_WHATSAPP_FROM")
}

// MetaEnabled reports whether the Meta Cloud API transport is configured.
func (c *Config) MetaEnabled() bool {
	return c.WhatsApp.AccessToken != "" || c.WhatsApp.PhoneNumberID != ""
}

// TwilioEnabled reports whether the Twilio transport is configured.
func (c *Config) TwilioEnabled() bool {
	return c.Twilio.AccountSID != "" || c.Twilio.AuthToken != "" || c.Twilio.From != ""
}

// Validate checks that the configuration is complete enough to start. A
// transport is validated only when any of its settings are present; at
// least one transport must be configured.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("LLM_API_KEY is required")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider %q", c.LLM.Provider)
	}

	switch c.Memory.Store {
	case "file", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported memory store %q", c.Memory.Store)
	}

	if !c.MetaEnabled() && !c.TwilioEnabled() {
		return errors.New("no messaging transport configured: set WHATSAPP_* or TWILIO_* variables")
	}
	if c.MetaEnabled() {
		if c.WhatsApp.AccessToken == "" || c.WhatsApp.PhoneNumberID == "" {
			return errors.New("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID are both required")
		}
		if c.WhatsApp.VerifyToken == "" {
			return errors.New("WHATSAPP_VERIFY_TOKEN is required")
		}
	}
	if c.TwilioEnabled() {
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.From == "" {
			return errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are all required")
		}
	}

	return nil
}
