// Package config loads runtime settings from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every externally tunable setting.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB  string `envconfig:"MONGO_DB" default:"roastradar"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// SMTPServer is host:port, e.g. smtp.gmail.com:465.
	SMTPServer   string `envconfig:"SMTP_SERVER"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	EmailFrom    string `envconfig:"EMAIL_FROM"`

	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-lite-preview-02-05"`
	SuggestTimeout time.Duration `envconfig:"SUGGEST_TIMEOUT" default:"15s"`

	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1h"`
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"3"`

	VerifyCodeTTL time.Duration `envconfig:"VERIFY_CODE_TTL" default:"1h"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
