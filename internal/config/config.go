package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "PERICOPE"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "pericope.db"
	defaultLogLevel       = "info"
	defaultSessionCookie  = "pericope_session"
	defaultSessionTTL     = 30 * 24 * time.Hour
	defaultTokenTTL       = 12 * time.Hour
	defaultBibleAPIBase   = "https://bible-api.com"
	defaultTranslationKey = "web"
)

// AppConfig captures runtime configuration for the API and MCP servers.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	AccessPassword     string
	SessionCookieName  string
	SessionTTL         time.Duration
	TokenSigningSecret string
	TokenTTL           time.Duration
	BibleAPIBaseURL    string
	DefaultTranslation string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.cookie_name", defaultSessionCookie)
	configViper.SetDefault("session.ttl_hours", int(defaultSessionTTL.Hours()))
	configViper.SetDefault("token.ttl_hours", int(defaultTokenTTL.Hours()))
	configViper.SetDefault("bible.api_base_url", defaultBibleAPIBase)
	configViper.SetDefault("bible.translation", defaultTranslationKey)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		AccessPassword:     configViper.GetString("auth.password"),
		SessionCookieName:  configViper.GetString("session.cookie_name"),
		SessionTTL:         time.Duration(configViper.GetInt("session.ttl_hours")) * time.Hour,
		TokenSigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:           time.Duration(configViper.GetInt("token.ttl_hours")) * time.Hour,
		BibleAPIBaseURL:    configViper.GetString("bible.api_base_url"),
		DefaultTranslation: configViper.GetString("bible.translation"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AccessPassword) == "" {
		return fmt.Errorf("auth.password is required")
	}
	if strings.TrimSpace(c.TokenSigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_hours must be positive")
	}
	return nil
}
