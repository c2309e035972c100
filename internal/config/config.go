package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const devJWTSecret = "development-only-secret"

type Config struct {
	Port        string
	GinMode     string
	AppEnv      string
	LogLevel    string
	StoreDriver string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool
	SeedDemo    bool

	JWTSecret string

	KredikaURL           string
	KredikaClientID      string
	KredikaClientSecret  string
	KredikaAPIKey        string
	KredikaPartnerKey    string
	KredikaWebhookSecret string
	KredikaTimeout       time.Duration
	KredikaAnnualRate    float64

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	ReminderCron      string
	SyncCron          string
	ReminderDaysAhead int
}

// Load reads the environment, falling back to the YAML file named by
// CONFIG_FILE and then to built-in defaults.
func Load() (*Config, error) {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	get := func(key, fallback string) string {
		return getEnv(key, file.lookup(key, fallback))
	}

	cfg := &Config{
		Port:        get("PORT", "8080"),
		GinMode:     get("GIN_MODE", "debug"),
		AppEnv:      get("APP_ENV", "development"),
		LogLevel:    get("LOG_LEVEL", "info"),
		StoreDriver: get("STORE_DRIVER", "postgres"),

		DBHost:      get("DB_HOST", "localhost"),
		DBPort:      get("DB_PORT", "5432"),
		DBUser:      get("DB_USER", "furniture"),
		DBPassword:  get("DB_PASSWORD", "furniture_secret"),
		DBName:      get("DB_NAME", "furniture_credit"),
		DBSSLMode:   get("DB_SSLMODE", "disable"),
		AutoMigrate: get("AUTO_MIGRATE", "false") == "true",
		SeedDemo:    get("SEED_DEMO", "false") == "true",

		JWTSecret: get("JWT_SECRET", ""),

		KredikaURL:           get("KREDIKA_API_URL", "https://api.kredika.com/api"),
		KredikaClientID:      get("KREDIKA_CLIENT_ID", ""),
		KredikaClientSecret:  get("KREDIKA_CLIENT_SECRET", ""),
		KredikaAPIKey:        get("KREDIKA_API_KEY", ""),
		KredikaPartnerKey:    get("KREDIKA_PARTNER_KEY", ""),
		KredikaWebhookSecret: get("KREDIKA_WEBHOOK_SECRET", ""),

		SMTPHost:     get("SMTP_HOST", ""),
		SMTPUsername: get("SMTP_USERNAME", ""),
		SMTPPassword: get("SMTP_PASSWORD", ""),
		SenderEmail:  get("SENDER_EMAIL", "no-reply@furniture.local"),

		ReminderCron: get("REMINDER_CRON", "0 8 * * *"),
		SyncCron:     get("SYNC_CRON", "*/30 * * * *"),
	}

	if cfg.KredikaTimeout, err = time.ParseDuration(get("KREDIKA_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("KREDIKA_TIMEOUT: %w", err)
	}
	if cfg.KredikaAnnualRate, err = strconv.ParseFloat(get("KREDIKA_ANNUAL_RATE", "0.08"), 64); err != nil {
		return nil, fmt.Errorf("KREDIKA_ANNUAL_RATE: %w", err)
	}
	if cfg.SMTPPort, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}
	if cfg.ReminderDaysAhead, err = strconv.Atoi(get("REMINDER_DAYS_AHEAD", "3")); err != nil {
		return nil, fmt.Errorf("REMINDER_DAYS_AHEAD: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// fileValues holds the YAML layer. Keys are the environment variable names
// in lower case, e.g. kredika_api_url.
type fileValues map[string]string

func readFile(path string) (fileValues, error) {
	if path == "" {
		return fileValues{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(fileValues, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func (f fileValues) lookup(key, fallback string) string {
	if v, ok := f[strings.ToLower(key)]; ok {
		return v
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
