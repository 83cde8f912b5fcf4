package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Mail    MailConfig    `mapstructure:"mail"`
	Import  ImportConfig  `mapstructure:"import"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite3" or "mysql"
	DSN    string `mapstructure:"dsn"`
}

// SessionConfig holds session cookie configuration. The secret key also signs
// pending-registration tokens.
type SessionConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// CacheConfig holds configuration for the SQLite render cache.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// OIDCConfig holds OIDC client configuration. An empty IssuerURL disables OIDC login.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// AuthConfig holds registration settings.
type AuthConfig struct {
	RequireEmailConfirmation bool          `mapstructure:"require_email_confirmation"`
	CodeTTL                  time.Duration `mapstructure:"code_ttl"`
}

// MailConfig holds SMTP settings. An empty Host logs outgoing mail instead of sending it.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// ImportConfig controls the arXiv article importer.
type ImportConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	OnEmpty           bool    `mapstructure:"on_empty"`
	Query             string  `mapstructure:"query"`
	MaxResults        int     `mapstructure:"max_results"`
	Schedule          string  `mapstructure:"schedule"`
	Author            string  `mapstructure:"author"`
	TargetLanguage    string  `mapstructure:"target_language"`
	ArxivURL          string  `mapstructure:"arxiv_url"`
	TranslateURL      string  `mapstructure:"translate_url"`
	UnsplashURL       string  `mapstructure:"unsplash_url"`
	UnsplashAccessKey string  `mapstructure:"unsplash_access_key"`
	RatePerSecond     float64 `mapstructure:"rate_per_second"`
	Concurrency       int     `mapstructure:"concurrency"`
}

// LoadConfig reads configuration from a .env file, a config file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Set default values. Every key needs one, even if empty: AutomaticEnv only
	// overrides keys viper already knows about when unmarshalling.
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "site.db?_foreign_keys=on")
	v.SetDefault("session.secret_key", "")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.require_email_confirmation", false)
	v.SetDefault("auth.code_ttl", 15*time.Minute)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("import.enabled", false)
	v.SetDefault("import.on_empty", false)
	v.SetDefault("import.author", "")
	v.SetDefault("import.query", "machine learning")
	v.SetDefault("import.max_results", 100)
	v.SetDefault("import.schedule", "@daily")
	v.SetDefault("import.target_language", "ru")
	v.SetDefault("import.arxiv_url", "http://export.arxiv.org/api/query")
	v.SetDefault("import.translate_url", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("import.unsplash_url", "https://api.unsplash.com/photos/random")
	v.SetDefault("import.unsplash_access_key", "")
	v.SetDefault("import.rate_per_second", 2.0)
	v.SetDefault("import.concurrency", 4)

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-pages-app/")
	v.AddConfigPath("$HOME/.go-pages-app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	v.SetEnvPrefix("PAGES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
