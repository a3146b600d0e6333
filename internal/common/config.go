package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendGoogle   = "google"
	BackendWorkbook = "workbook"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	Env     string        `yaml:"env"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// SheetsConfig holds spreadsheet-related configuration
type SheetsConfig struct {
	Backend             string        `yaml:"backend"`
	SpreadsheetID       string        `yaml:"spreadsheet_id"`
	ServiceAccountEmail string        `yaml:"service_account_email"`
	PrivateKey          string        `yaml:"private_key"`
	Endpoint            string        `yaml:"endpoint"`
	JobsTab             string        `yaml:"jobs_tab"`
	AdminTab            string        `yaml:"admin_tab"`
	WorkbookPath        string        `yaml:"workbook_path"`
	Timeout             time.Duration `yaml:"timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// devOrigins are the frontend dev servers allowed when no origins are set.
var devOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// AuthConfig holds token and credential configuration
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
	HashPasswords bool          `yaml:"hash_passwords"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Env: EnvDevelopment,
		Sheets: SheetsConfig{
			Backend:  BackendGoogle,
			JobsTab:  "Sheet1",
			AdminTab: "Sheet2",
			Timeout:  30 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			GRPCAddr:        ":5001",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			ResetTokenTTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE)
// and environment variables. Environment variables win.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", errors.Join(ErrConfig, err))
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file", errors.Join(ErrConfig, err))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Env = getEnv("APP_ENV", c.Env)

	c.Sheets.Backend = strings.ToLower(getEnv("SHEETS_BACKEND", c.Sheets.Backend))
	c.Sheets.SpreadsheetID = getEnv("GOOGLE_SHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.ServiceAccountEmail = getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", c.Sheets.ServiceAccountEmail)
	c.Sheets.PrivateKey = getEnv("GOOGLE_PRIVATE_KEY", c.Sheets.PrivateKey)
	c.Sheets.Endpoint = getEnv("SHEETS_ENDPOINT", c.Sheets.Endpoint)
	c.Sheets.JobsTab = getEnv("JOBS_TAB", c.Sheets.JobsTab)
	c.Sheets.AdminTab = getEnv("ADMIN_TAB", c.Sheets.AdminTab)
	c.Sheets.WorkbookPath = getEnv("WORKBOOK_PATH", c.Sheets.WorkbookPath)
	c.Sheets.Timeout = getEnvAsDuration("STORE_TIMEOUT", c.Sheets.Timeout)
	// keys pasted from a JSON credentials file carry escaped newlines
	c.Sheets.PrivateKey = strings.ReplaceAll(c.Sheets.PrivateKey, `\n`, "\n")

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	if origins := getEnvAsList("CORS_ORIGINS"); len(origins) > 0 {
		c.Server.CORSOrigins = origins
	}

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvAsDuration("JWT_EXPIRES_IN", c.Auth.TokenTTL)
	c.Auth.ResetTokenTTL = getEnvAsDuration("RESET_TOKEN_TTL", c.Auth.ResetTokenTTL)
	c.Auth.HashPasswords = getEnvAsBool("AUTH_HASH_PASSWORDS", c.Auth.HashPasswords)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// IsProduction reports whether detailed errors must be hidden from callers.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// AllowedOrigins returns the browser origins the HTTP API accepts. Outside
// production the local frontend dev servers are allowed by default;
// production allows only what is configured.
func (c *Config) AllowedOrigins() []string {
	if len(c.Server.CORSOrigins) > 0 {
		return c.Server.CORSOrigins
	}
	if c.IsProduction() {
		return nil
	}
	return append([]string(nil), devOrigins...)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Sheets.Backend {
	case BackendGoogle:
		if c.Sheets.SpreadsheetID == "" {
			return NewAppError("CONFIG_ERROR", "GOOGLE_SHEET_ID is required", ErrConfig)
		}
		if c.Sheets.ServiceAccountEmail == "" || c.Sheets.PrivateKey == "" {
			return NewAppError("CONFIG_ERROR", "GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY are required", ErrConfig)
		}
	case BackendWorkbook:
		if c.Sheets.WorkbookPath == "" {
			return NewAppError("CONFIG_ERROR", "WORKBOOK_PATH is required for the workbook backend", ErrConfig)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown SHEETS_BACKEND %q", c.Sheets.Backend), ErrConfig)
	}
	if c.Sheets.JobsTab == "" || c.Sheets.AdminTab == "" {
		return NewAppError("CONFIG_ERROR", "JOBS_TAB and ADMIN_TAB are required", ErrConfig)
	}
	if c.Auth.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "JWT_SECRET is required", ErrConfig)
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return NewAppError("CONFIG_ERROR", "token lifetimes must be positive", ErrConfig)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrConfig)
	}
	return nil
}
