package server

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/platform/config"
	"github.com/louisbranch/answerdesk/internal/platform/timeouts"
	"github.com/louisbranch/answerdesk/internal/services/answers/notify"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the runtime configuration shared by the service and the
// operator CLI. It is read from the environment.
type Config struct {
	Storage     string `env:"ANSWERDESK_ANSWERS_STORAGE" envDefault:"sqlite"`
	DBPath      string `env:"ANSWERDESK_ANSWERS_DB_PATH"`
	PostgresDSN string `env:"ANSWERDESK_ANSWERS_POSTGRES_DSN"`

	JWTSecret string `env:"ANSWERDESK_ANSWERS_JWT_SECRET"`
	JWTIssuer string `env:"ANSWERDESK_ANSWERS_JWT_ISSUER" envDefault:"answerdesk"`

	PublicBaseURL string `env:"ANSWERDESK_PUBLIC_BASE_URL" envDefault:"https://answerdesk.example"`

	FacebookPageID    string `env:"ANSWERDESK_FACEBOOK_PAGE_ID"`
	FacebookPageToken string `env:"ANSWERDESK_FACEBOOK_PAGE_TOKEN"`
	FacebookAPIBase   string `env:"ANSWERDESK_FACEBOOK_API_BASE"`

	LinkedInOrganizationID string `env:"ANSWERDESK_LINKEDIN_ORGANIZATION_ID"`
	LinkedInClientID       string `env:"ANSWERDESK_LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret   string `env:"ANSWERDESK_LINKEDIN_CLIENT_SECRET"`
	LinkedInAPIBase        string `env:"ANSWERDESK_LINKEDIN_API_BASE"`
	LinkedInTokenURL       string `env:"ANSWERDESK_LINKEDIN_TOKEN_URL"`
	LinkedInVersion        string `env:"ANSWERDESK_LINKEDIN_VERSION"`

	TokenSealKey string `env:"ANSWERDESK_TOKEN_SEAL_KEY"`

	SocialTimeout       time.Duration `env:"ANSWERDESK_SOCIAL_TIMEOUT"`
	SocialLanguage      string        `env:"ANSWERDESK_SOCIAL_LANGUAGE" envDefault:"en"`
	SocialTemplatesPath string        `env:"ANSWERDESK_SOCIAL_TEMPLATES_PATH"`

	RedisAddr     string `env:"ANSWERDESK_REDIS_ADDR"`
	RedisPassword string `env:"ANSWERDESK_REDIS_PASSWORD"`
	RedisDB       int    `env:"ANSWERDESK_REDIS_DB"`
	NotifyStream  string `env:"ANSWERDESK_NOTIFY_STREAM"`
}

// LoadConfig reads Config from the environment and applies defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	if c.Storage == "" {
		c.Storage = StorageSQLite
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join("data", "answers.db")
	}
	if c.SocialTimeout <= 0 {
		c.SocialTimeout = timeouts.SocialRequest
	}
	if strings.TrimSpace(c.NotifyStream) == "" {
		c.NotifyStream = notify.DefaultStream
	}
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("ANSWERDESK_ANSWERS_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if (c.FacebookPageID == "") != (c.FacebookPageToken == "") {
		return fmt.Errorf("ANSWERDESK_FACEBOOK_PAGE_ID and ANSWERDESK_FACEBOOK_PAGE_TOKEN must be set together")
	}
	return nil
}

// FacebookEnabled reports whether Facebook syndication is configured.
func (c Config) FacebookEnabled() bool {
	return strings.TrimSpace(c.FacebookPageID) != "" && strings.TrimSpace(c.FacebookPageToken) != ""
}

// LinkedInEnabled reports whether LinkedIn syndication is configured.
func (c Config) LinkedInEnabled() bool {
	return strings.TrimSpace(c.LinkedInOrganizationID) != ""
}
