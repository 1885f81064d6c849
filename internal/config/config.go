// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, the Telegram transport, the booking schedule, mail,
// conversation state, domain events and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Telegram update delivery modes. ModeOff runs only the HTTP API.
const (
	ModePoll    = "poll"
	ModeWebhook = "webhook"
	ModeOff     = "off"
)

// Conversation state backends.
const (
	StateMemory = "memory"
	StateRedis  = "redis"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
	// OperatorAPIKey guards owner-agnostic endpoints such as reservation
	// deletion. Empty disables them.
	OperatorAPIKey string // OPERATOR_API_KEY
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-booking-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig selects the database.
type StorageConfig struct {
	Driver string // DB_DRIVER sqlite|postgres
	Path   string // DB_PATH, SQLite file
	DSN    string // DB_DSN, Postgres connection string
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token         string // TELEGRAM_TOKEN; empty forces ModeOff
	Mode          string // TELEGRAM_MODE poll|webhook|off
	WebhookURL    string // TELEGRAM_WEBHOOK_URL, public base URL registered with Telegram
	WebhookSecret string // TELEGRAM_WEBHOOK_SECRET
	PollTimeout   int    // TELEGRAM_POLL_TIMEOUT seconds
	Debug         bool   // TELEGRAM_DEBUG
	Locale        string // BOT_LOCALE BCP 47 tag
}

// ScheduleConfig describes the working calendar.
type ScheduleConfig struct {
	Timezone      string         // BOOKING_TIMEZONE
	Location      *time.Location // resolved from Timezone
	OpenHour      int            // BOOKING_OPEN_HOUR, first slot
	CloseHour     int            // BOOKING_CLOSE_HOUR, last slot
	CutoffHour    int            // BOOKING_CUTOFF_HOUR, today closes after this hour
	LookaheadDays int            // BOOKING_LOOKAHEAD_DAYS
}

// MailConfig configures SMTP. An empty Host falls back to logging.
type MailConfig struct {
	Host         string // SMTP_HOST
	Port         int    // SMTP_PORT
	Username     string // SMTP_USERNAME
	Password     string // SMTP_PASSWORD
	From         string // SMTP_FROM
	TemplatePath string // EMAIL_TEMPLATE_PATH
}

// StateConfig selects where conversation state lives.
type StateConfig struct {
	Store         string        // STATE_STORE memory|redis
	TTL           time.Duration // CONVERSATION_TTL, 0 disables expiry
	RedisAddr     string        // REDIS_ADDR
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
}

// EventsConfig configures domain event publishing. An empty URL disables it.
type EventsConfig struct {
	AMQPURL  string // AMQP_URL
	Exchange string // AMQP_EXCHANGE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Booking
	Storage         StorageConfig
	Telegram        TelegramConfig
	Schedule        ScheduleConfig
	Mail            MailConfig
	State           StateConfig
	Events          EventsConfig
	CatalogPath     string // CATALOG_PATH, YAML; empty uses the built-in catalog
	DiscountPercent int    // DISCOUNT_PERCENT

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Booking
		Storage: StorageConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:   getenv("DB_PATH", "bookings.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Telegram: TelegramConfig{
			Token:         getenv("TELEGRAM_TOKEN", ""),
			Mode:          strings.ToLower(getenv("TELEGRAM_MODE", ModePoll)),
			WebhookURL:    strings.TrimRight(getenv("TELEGRAM_WEBHOOK_URL", ""), "/"),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
			PollTimeout:   getint("TELEGRAM_POLL_TIMEOUT", 30),
			Debug:         getbool("TELEGRAM_DEBUG", false),
			Locale:        getenv("BOT_LOCALE", "en"),
		},
		Schedule: ScheduleConfig{
			Timezone:      getenv("BOOKING_TIMEZONE", "Local"),
			OpenHour:      getint("BOOKING_OPEN_HOUR", 10),
			CloseHour:     getint("BOOKING_CLOSE_HOUR", 18),
			CutoffHour:    getint("BOOKING_CUTOFF_HOUR", 18),
			LookaheadDays: getint("BOOKING_LOOKAHEAD_DAYS", 15),
		},
		Mail: MailConfig{
			Host:         getenv("SMTP_HOST", ""),
			Port:         getint("SMTP_PORT", 587),
			Username:     getenv("SMTP_USERNAME", ""),
			Password:     getenv("SMTP_PASSWORD", ""),
			From:         getenv("SMTP_FROM", ""),
			TemplatePath: getenv("EMAIL_TEMPLATE_PATH", ""),
		},
		State: StateConfig{
			Store:         strings.ToLower(getenv("STATE_STORE", StateMemory)),
			TTL:           getdur("CONVERSATION_TTL", 0),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
		},
		Events: EventsConfig{
			AMQPURL:  getenv("AMQP_URL", ""),
			Exchange: getenv("AMQP_EXCHANGE", "bookings"),
		},
		CatalogPath:     getenv("CATALOG_PATH", ""),
		DiscountPercent: getint("DISCOUNT_PERCENT", 15),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:     getbool("ENABLE_HSTS", false),
			HSTSMaxAge:     getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			OperatorAPIKey: os.Getenv("OPERATOR_API_KEY"),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-booking-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Storage.Driver == "sqlite3" {
		cfg.Storage.Driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		cfg.Telegram.Mode = ModeOff
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if err := validateBooking(&cfg); err != nil {
		return cfg, err
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validateBooking(cfg *Config) error {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}

	switch cfg.Telegram.Mode {
	case ModePoll, ModeOff:
	case ModeWebhook:
		if cfg.Telegram.WebhookSecret == "" {
			return errors.New("TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_MODE=webhook")
		}
	default:
		return errors.New("TELEGRAM_MODE must be one of: poll, webhook, off")
	}
	if cfg.Telegram.PollTimeout < 0 {
		return errors.New("TELEGRAM_POLL_TIMEOUT must be >= 0")
	}
	if _, err := language.Parse(cfg.Telegram.Locale); err != nil {
		return fmt.Errorf("BOT_LOCALE: %w", err)
	}

	s := &cfg.Schedule
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}
	s.Location = loc
	if s.OpenHour < 0 || s.CloseHour > 23 || s.OpenHour > s.CloseHour {
		return errors.New("BOOKING_OPEN_HOUR and BOOKING_CLOSE_HOUR must satisfy 0 <= open <= close <= 23")
	}
	if s.CutoffHour < 0 || s.CutoffHour > 23 {
		return errors.New("BOOKING_CUTOFF_HOUR must be in [0,23]")
	}
	if s.LookaheadDays < 1 {
		return errors.New("BOOKING_LOOKAHEAD_DAYS must be >= 1")
	}

	if cfg.Mail.Host != "" && (cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535) {
		return errors.New("SMTP_PORT must be in [1,65535]")
	}

	switch cfg.State.Store {
	case StateMemory:
	case StateRedis:
		if strings.TrimSpace(cfg.State.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when STATE_STORE=redis")
		}
	default:
		return errors.New("STATE_STORE must be one of: memory, redis")
	}
	if cfg.State.TTL < 0 {
		return errors.New("CONVERSATION_TTL must be >= 0")
	}

	if cfg.Events.AMQPURL != "" && strings.TrimSpace(cfg.Events.Exchange) == "" {
		return errors.New("AMQP_EXCHANGE must not be empty when AMQP_URL is set")
	}
	if cfg.DiscountPercent < 0 || cfg.DiscountPercent > 100 {
		return errors.New("DISCOUNT_PERCENT must be in [0,100]")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
