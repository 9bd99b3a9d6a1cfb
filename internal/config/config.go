package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL string

	JWTSecret        string
	JWTTTL           time.Duration
	AuthCookieName   string
	AuthCookieSecure bool
	AdminEmail       string
	AdminPassword    string
	LoginRatePerSec  float64
	LoginRateBurst   int

	// TrustProxyHeaders keys clients on X-Real-IP/X-Forwarded-For. Enable
	// only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	CORSAllowedOrigins []string

	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	AvailabilityCacheTTL time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string
	AuditTable          string
	ExportBucket        string

	// Email
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string

	// Worker
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// Slot generation
	SlotDayStart           string
	SlotDayEnd             string
	SlotMinutes            int
	SlotHorizonDays        int
	SlotGenerationSchedule string

	// Reminders
	ReminderSchedule string
	ClinicTimezone   string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTTTL:           getEnvAsDuration("JWT_TTL", 24*time.Hour),
		AuthCookieName:   getEnv("AUTH_COOKIE_NAME", "token"),
		AuthCookieSecure: getEnvAsBool("AUTH_COOKIE_SECURE", false),
		AdminEmail:       strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		LoginRatePerSec:  getEnvAsFloat("LOGIN_RATE_PER_SEC", 1),
		LoginRateBurst:   getEnvAsInt("LOGIN_RATE_BURST", 5),

		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),
		AuditTable:          getEnv("AUDIT_TABLE", ""),
		ExportBucket:        getEnv("EXPORT_BUCKET", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Clinic Reservations"),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),

		SlotDayStart:           getEnv("SLOT_DAY_START", "09:00"),
		SlotDayEnd:             getEnv("SLOT_DAY_END", "17:00"),
		SlotMinutes:            getEnvAsInt("SLOT_MINUTES", 30),
		SlotHorizonDays:        getEnvAsInt("SLOT_HORIZON_DAYS", 14),
		SlotGenerationSchedule: getEnv("SLOT_GENERATION_SCHEDULE", "0 2 * * *"),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 18 * * *"),
		ClinicTimezone:   getEnv("CLINIC_TIMEZONE", "Asia/Tokyo"),
	}
}

// IsDevelopment reports whether the service runs in a local/dev environment.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "development", "dev", "local", "test":
		return true
	}
	return false
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	start, err := time.Parse("15:04", c.SlotDayStart)
	if err != nil {
		errs = append(errs, fmt.Errorf("SLOT_DAY_START: %w", err))
	}
	end, err2 := time.Parse("15:04", c.SlotDayEnd)
	if err2 != nil {
		errs = append(errs, fmt.Errorf("SLOT_DAY_END: %w", err2))
	}
	if err == nil && err2 == nil && !end.After(start) {
		errs = append(errs, errors.New("SLOT_DAY_END must be after SLOT_DAY_START"))
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 240 {
		errs = append(errs, errors.New("SLOT_MINUTES must be between 1 and 240"))
	}
	if c.SlotHorizonDays < 0 {
		errs = append(errs, errors.New("SLOT_HORIZON_DAYS must not be negative"))
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		errs = append(errs, fmt.Errorf("CLINIC_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
