package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env          string        `yaml:"env"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	JWT          struct {
		Secret           string `yaml:"secret"`
		AccessTTLMinutes int    `yaml:"accessTTLMinutes"`
	} `yaml:"jwt"`
}

type MongoCfg struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TwilioCfg struct {
	AccountSID string `yaml:"accountSID"`
	AuthToken  string `yaml:"authToken"`
	From       string `yaml:"from"`
}

type BrevoCfg struct {
	APIKey      string `yaml:"apiKey"`
	SenderEmail string `yaml:"senderEmail"`
	SenderName  string `yaml:"senderName"`
}

type OAuthProviderCfg struct {
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURL  string `yaml:"redirectURL"`
}

type OAuthCfg struct {
	StateSecret string           `yaml:"stateSecret"`
	Google      OAuthProviderCfg `yaml:"google"`
	Facebook    OAuthProviderCfg `yaml:"facebook"`
}

type KafkaCfg struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type UserCfg struct {
	Collection string `yaml:"collection"`
}

type SecurityCfg struct {
	OtpLength         int  `yaml:"otpLength"`
	OtpTTLMinutes     int  `yaml:"otpTTLMinutes"`
	PasswordHashCost  int  `yaml:"passwordHashCost"`
	OtpResendPerHour  int  `yaml:"otpResendPerHour"`
	MFAEnabledDefault bool `yaml:"mfaEnabledDefault"`
}

// PasswordRule is one entry of the configurable password policy. Every rule
// must match for a password to be accepted.
type PasswordRule struct {
	Regex   string `yaml:"regex"`
	Message string `yaml:"message"`

	compiled *regexp.Regexp
}

// Matches reports whether the password satisfies this rule. Load pre-compiles
// every rule; rules built directly compile on first use.
func (r *PasswordRule) Matches(password string) bool {
	if r.compiled == nil {
		r.compiled = regexp.MustCompile(r.Regex)
	}
	return r.compiled.MatchString(password)
}

type ValidationsCfg struct {
	Password []PasswordRule `yaml:"password"`
}

type Config struct {
	App         AppCfg         `yaml:"app"`
	Mongo       MongoCfg       `yaml:"mongo"`
	Redis       RedisCfg       `yaml:"redis"`
	Twilio      TwilioCfg      `yaml:"twilio"`
	Brevo       BrevoCfg       `yaml:"brevo"`
	OAuth       OAuthCfg       `yaml:"oauth"`
	Kafka       KafkaCfg       `yaml:"kafka"`
	User        UserCfg        `yaml:"user"`
	Security    SecurityCfg    `yaml:"security"`
	Validations ValidationsCfg `yaml:"validations"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	override("APP_PORT", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	})
	override("JWT_SECRET", func(v string) { cfg.App.JWT.Secret = v })
	override("JWT_ACCESS_TTL_MINUTES", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.JWT.AccessTTLMinutes = n
		}
	})
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	override("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	override("TWILIO_ACCOUNT_SID", func(v string) { cfg.Twilio.AccountSID = v })
	override("TWILIO_AUTH_TOKEN", func(v string) { cfg.Twilio.AuthToken = v })
	override("TWILIO_FROM", func(v string) { cfg.Twilio.From = v })
	override("BREVO_API_KEY", func(v string) { cfg.Brevo.APIKey = v })
	override("BREVO_SENDER_EMAIL", func(v string) { cfg.Brevo.SenderEmail = v })
	override("BREVO_SENDER_NAME", func(v string) { cfg.Brevo.SenderName = v })
	override("OAUTH_STATE_SECRET", func(v string) { cfg.OAuth.StateSecret = v })
	override("GOOGLE_CLIENT_ID", func(v string) { cfg.OAuth.Google.ClientID = v })
	override("GOOGLE_CLIENT_SECRET", func(v string) { cfg.OAuth.Google.ClientSecret = v })
	override("GOOGLE_REDIRECT_URL", func(v string) { cfg.OAuth.Google.RedirectURL = v })
	override("FACEBOOK_CLIENT_ID", func(v string) { cfg.OAuth.Facebook.ClientID = v })
	override("FACEBOOK_CLIENT_SECRET", func(v string) { cfg.OAuth.Facebook.ClientSecret = v })
	override("FACEBOOK_REDIRECT_URL", func(v string) { cfg.OAuth.Facebook.RedirectURL = v })
	override("KAFKA_BROKERS", func(v string) { cfg.Kafka.Brokers = strings.Split(v, ",") })
	override("KAFKA_TOPIC", func(v string) { cfg.Kafka.Topic = v })
	override("OTP_LENGTH", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.OtpLength = n
		}
	})
	override("OTP_TTL_MINUTES", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.OtpTTLMinutes = n
		}
	})
	override("OTP_RESEND_PER_HOUR", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.OtpResendPerHour = n
		}
	})
	override("PASSWORD_HASH_COST", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.PasswordHashCost = n
		}
	})
	if v := os.Getenv("KAFKA_ENABLED"); v == "true" {
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("MFA_ENABLED_DEFAULT"); v == "true" {
		cfg.Security.MFAEnabledDefault = true
	}

	if cfg.App.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required (set in .env or config.yaml)")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.User.Collection == "" {
		cfg.User.Collection = "users"
	}
	if cfg.Security.OtpLength <= 0 {
		cfg.Security.OtpLength = 6
	}
	if cfg.Security.OtpTTLMinutes <= 0 {
		cfg.Security.OtpTTLMinutes = 10
	}

	for i := range cfg.Validations.Password {
		r := &cfg.Validations.Password[i]
		re, err := regexp.Compile(r.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid password rule %q: %w", r.Regex, err)
		}
		r.compiled = re
	}

	return cfg, nil
}
