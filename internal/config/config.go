package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/intake-desk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SMTP         SMTPConfig
	Notification NotificationConfig
	Alert        AlertConfig
	Uploads      UploadsConfig
	Events       EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// StorageConfig selects where the submission log and overlay live.
type StorageConfig struct {
	LogBackend     string
	LogPath        string
	OverlayBackend string
	OverlayPath    string
	OverlayKey     string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin authentication parameters.
type AuthConfig struct {
	AdminUser             string
	AdminPassword         string
	AdminPasswordHash     string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host           string
	Port           int
	Secure         string
	User           string
	Password       string
	From           string
	TimeoutSeconds int
}

// NotificationConfig holds recipients for outbound notifications.
type NotificationConfig struct {
	AdminEmails []string
	HREmails    []string
	AlertEmail  string
	ReplyTo     string
	BrandName   string
}

// AlertConfig tunes the overdue scan.
type AlertConfig struct {
	ThresholdHours     float64
	SendTimeoutSeconds int
}

// UploadsConfig bounds attachment storage for the project channel.
type UploadsConfig struct {
	Dir          string
	MaxTotalMB   int
	AllowedExts  []string
	MaxBodyBytes int
}

// EventsConfig configures the optional NATS bridge.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("ALERT_THRESHOLD_HOURS", "20"), 64)
	if err != nil || threshold <= 0 {
		return nil, fmt.Errorf("invalid ALERT_THRESHOLD_HOURS %q", os.Getenv("ALERT_THRESHOLD_HOURS"))
	}

	smtpUser := os.Getenv("EMAIL_USER")
	maxEmailMB := getEnvAsInt("MAX_EMAIL_MB", 19)

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "intake-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", getEnv("PORT", "5000")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			LogBackend:     strings.ToLower(getEnv("SUBMIT_LOG_BACKEND", BackendFile)),
			LogPath:        getEnv("SUBMIT_LOG", "submissions.jsonl"),
			OverlayBackend: strings.ToLower(getEnv("SUBMIT_STATE_BACKEND", BackendFile)),
			OverlayPath:    getEnv("SUBMIT_STATE", "ticket_state.json"),
			OverlayKey:     getEnv("SUBMIT_STATE_REDIS_KEY", "intake-desk:ticket_state"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AdminUser:             getEnv("ADMIN_USER", "admin"),
			AdminPassword:         os.Getenv("ADMIN_PASS"),
			AdminPasswordHash:     os.Getenv("ADMIN_PASS_HASH"),
			JWTSecret:             getEnv("SECRET_KEY", "please_change_me"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SMTP: SMTPConfig{
			Host:           getEnv("SMTP_HOST", "smtpout.secureserver.net"),
			Port:           getEnvAsInt("SMTP_PORT", 465),
			Secure:         strings.ToLower(getEnv("SMTP_SECURE", "ssl")),
			User:           smtpUser,
			Password:       os.Getenv("EMAIL_PASSWORD"),
			From:           getEnv("SMTP_FROM", fallback(smtpUser, "no-reply@localhost")),
			TimeoutSeconds: getEnvAsInt("SMTP_TIMEOUT_SECONDS", 20),
		},
		Notification: NotificationConfig{
			AdminEmails: splitList(getEnv("ADMIN_EMAIL", smtpUser)),
			HREmails:    splitList(os.Getenv("HR_EMAIL")),
			AlertEmail:  getEnv("ALERT_EMAIL", "info@amcspark.com"),
			ReplyTo:     getEnv("BRAND_EMAIL", "info@amcspark.com"),
			BrandName:   getEnv("BRAND_NAME", "AMC Spark & Services"),
		},
		Alert: AlertConfig{
			ThresholdHours:     threshold,
			SendTimeoutSeconds: getEnvAsInt("ALERT_SEND_TIMEOUT_SECONDS", 15),
		},
		Uploads: UploadsConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxTotalMB:   maxEmailMB,
			AllowedExts:  splitList(getEnv("UPLOAD_ALLOWED_EXTS", ".pdf,.doc,.docx,.xls,.xlsx,.csv,.zip,.png,.jpg,.jpeg,.txt")),
			MaxBodyBytes: (maxEmailMB + 5) * 1024 * 1024,
		},
		Events: EventsConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "intake"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Storage.LogBackend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf("invalid SUBMIT_LOG_BACKEND %q", c.Storage.LogBackend)
	}
	switch c.Storage.OverlayBackend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("invalid SUBMIT_STATE_BACKEND %q", c.Storage.OverlayBackend)
	}
	if c.Storage.LogBackend == BackendPostgres && c.Postgres.DSN == "" {
		return errors.New("SUBMIT_LOG_BACKEND=postgres requires POSTGRES_DSN")
	}
	if !domain.ValidEmail(c.Notification.AlertEmail) {
		return fmt.Errorf("invalid ALERT_EMAIL %q", c.Notification.AlertEmail)
	}
	switch c.SMTP.Secure {
	case "ssl", "starttls":
	default:
		return fmt.Errorf("invalid SMTP_SECURE %q (want ssl or starttls)", c.SMTP.Secure)
	}
	// GoDaddy relays refuse Gmail senders.
	if strings.Contains(strings.ToLower(c.SMTP.Host), "secureserver.net") &&
		strings.HasSuffix(strings.ToLower(c.SMTP.User), "@gmail.com") {
		return errors.New("use your domain mailbox with GoDaddy SMTP, not Gmail")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the SMTP dial/send timeout.
func (s SMTPConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Ready reports whether credentials for the relay are present.
func (s SMTPConfig) Ready() bool {
	return s.Host != "" && s.User != "" && s.Password != "" && s.Port > 0
}

// SendTimeout bounds one notification attempt made while holding the overlay lock.
func (a AlertConfig) SendTimeout() time.Duration {
	if a.SendTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.SendTimeoutSeconds) * time.Second
}

// Recipients returns admin and HR addresses, de-duplicated
// case-insensitively. It falls back to the SMTP user.
func (c *Config) Recipients() []string {
	all := append(append([]string{}, c.Notification.AdminEmails...), c.Notification.HREmails...)
	if len(all) == 0 && c.SMTP.User != "" {
		all = []string{c.SMTP.User}
	}
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, r := range all {
		key := strings.ToLower(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
