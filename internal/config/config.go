// Package config loads service configuration from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gsarma/mailgate/internal/oauth"
)

// Config captures all runtime configuration for mailgate.
type Config struct {
	App    AppConfig
	Policy PolicyConfig
	Drafts DraftConfig
	Graph  GraphConfig
	Auth   AuthConfig
	Stores StoreConfig
	Sentry SentryConfig
	// APIKeys maps caller label to key. Empty disables the API-key gate.
	APIKeys map[string]string
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env             string
	Port            int
	LogLevel        string
	EnableTestTools bool
}

// PolicyConfig holds the outgoing message limits.
type PolicyConfig struct {
	MaxRecipients  int
	MaxBodyChars   int
	AllowedDomains []string
}

// DraftConfig controls draft lifetime and the background sweep.
type DraftConfig struct {
	Expiry        time.Duration
	SweepSchedule string
}

// GraphConfig locates the mail API.
type GraphConfig struct {
	APIURL      string
	SendTimeout time.Duration
}

// AuthConfig describes the Entra ID public client and the token cache.
type AuthConfig struct {
	ClientID       string
	TenantID       string
	Scopes         []string
	TokenCacheFile string
	TokenCacheKey  string
}

// StoreConfig selects optional backing services.
type StoreConfig struct {
	RedisURL    string
	DatabaseURL string
}

// SentryConfig enables error forwarding when DSN is set.
type SentryConfig struct {
	DSN         string
	Environment string
}

// Load reads an optional .env file, then the environment, applies defaults
// and validates. Every invalid variable is reported in the returned error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	ldr := &envLoader{lookup: lookup}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getPositiveInt("PORT", 8000)
	cfg.App.LogLevel = strings.ToLower(ldr.getString("LOG_LEVEL", "info", false))
	cfg.App.EnableTestTools = ldr.getBool("ENABLE_TEST_TOOLS", false, false)
	switch cfg.App.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		ldr.addError("LOG_LEVEL must be one of debug, info, warn, error")
	}

	cfg.Policy.MaxRecipients = ldr.getPositiveInt("MAX_RECIPIENTS", 10)
	cfg.Policy.MaxBodyChars = ldr.getPositiveInt("MAX_BODY_CHARS", 5000)
	for _, d := range ldr.getStringSlice("ALLOWED_RECIPIENT_DOMAINS", false) {
		cfg.Policy.AllowedDomains = append(cfg.Policy.AllowedDomains, strings.ToLower(d))
	}

	cfg.Drafts.Expiry = time.Duration(ldr.getPositiveInt("DRAFT_EXPIRY_SECONDS", 600)) * time.Second
	cfg.Drafts.SweepSchedule = ldr.getRaw("DRAFT_SWEEP_SCHEDULE", "@every 1m")

	cfg.Graph.APIURL = ldr.getString("GRAPH_API_URL", "https://graph.microsoft.com/v1.0", false)
	cfg.Graph.SendTimeout = time.Duration(ldr.getPositiveInt("GRAPH_SEND_TIMEOUT_SECONDS", 10)) * time.Second

	cfg.Auth.ClientID = ldr.getString("GRAPH_CLIENT_ID", "", false)
	cfg.Auth.TenantID = ldr.getString("GRAPH_TENANT_ID", "common", false)
	cfg.Auth.Scopes = ldr.getStringSlice("GRAPH_SCOPES", false)
	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = slices.Clone(oauth.DefaultScopes)
	}
	cfg.Auth.TokenCacheFile = ldr.getString("TOKEN_CACHE_FILE", "token_cache.json", false)
	cfg.Auth.TokenCacheKey = ldr.getString("TOKEN_CACHE_KEY", "", false)
	if k := cfg.Auth.TokenCacheKey; k != "" {
		if b, err := hex.DecodeString(k); err != nil || len(b) != 32 {
			ldr.addError("TOKEN_CACHE_KEY must be 64 hex characters")
		}
	}

	cfg.Stores.RedisURL = ldr.getString("REDIS_URL", "", false)
	cfg.Stores.DatabaseURL = ldr.getString("DATABASE_URL", "", false)

	cfg.Sentry.DSN = ldr.getString("SENTRY_DSN", "", false)
	cfg.Sentry.Environment = ldr.getString("SENTRY_ENVIRONMENT", "production", false)

	cfg.APIKeys = ldr.getKeyPairs("SERVICE_API_KEYS")

	if err := ldr.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type envLoader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := l.lookup(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

// getRaw returns the trimmed value when the variable is set, even if empty.
func (l *envLoader) getRaw(key, def string) string {
	if val, ok := l.lookup(key); ok {
		return strings.TrimSpace(val)
	}
	return def
}

func (l *envLoader) getPositiveInt(key string, def int) int {
	val := l.getString(key, "", false)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	if i <= 0 {
		l.addError(fmt.Sprintf("%s must be positive", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	val := l.getString(key, "", required)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

// getKeyPairs parses "label:key,label2:key2".
func (l *envLoader) getKeyPairs(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range l.getStringSlice(key, false) {
		label, secret, ok := strings.Cut(pair, ":")
		label, secret = strings.TrimSpace(label), strings.TrimSpace(secret)
		if !ok || label == "" || secret == "" {
			l.addError(fmt.Sprintf("%s entries must be label:key", key))
			continue
		}
		out[label] = secret
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
