package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the triage service.
type Config struct {
	App      AppConfig
	Helpdesk HelpdeskConfig
	Triage   TriageConfig
	Monitor  MonitorConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
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

// HelpdeskConfig holds connection values for the external ticketing API.
type HelpdeskConfig struct {
	BaseURL               string
	APIToken              string
	CSRFToken             string
	RequestTimeoutSeconds int
	BreakerThreshold      int
	BreakerCooldownSec    int
	RetryDelaySec         int
	RateWindowSec         int
}

// TriageConfig holds the decision-engine identities, toggles and phrases.
type TriageConfig struct {
	OperationalAgentID int64
	QAAuthorID         int64
	ReviewerID         int64
	RoutingTag         string
	RoutingGroupID     int64
	SpecialQueueNames  []string
	ExclusionPhrases   []string
	AwaitCustomerOps   bool
	ResolutionOps      bool
	RTAOps             bool
	DryRun             bool
	BackoffWindowSec   int
	RetentionDays      int
}

// MonitorConfig controls the polling loop.
type MonitorConfig struct {
	QueueNames         []string
	PollIntervalSec    int
	TicketPacingMillis int
	SessionHistoryMax  int
}

// PostgresConfig holds DB connection values for the audit log.
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

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorName          string
	OperatorPasswordHash  string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Helpdesk: HelpdeskConfig{
			BaseURL:               strings.TrimSuffix(getEnv("HELPDESK_BASE_URL", ""), "/"),
			APIToken:              os.Getenv("HELPDESK_API_TOKEN"),
			CSRFToken:             os.Getenv("HELPDESK_CSRF_TOKEN"),
			RequestTimeoutSeconds: getEnvAsInt("HELPDESK_REQUEST_TIMEOUT_SECONDS", 30),
			BreakerThreshold:      getEnvAsInt("HELPDESK_BREAKER_THRESHOLD", 5),
			BreakerCooldownSec:    getEnvAsInt("HELPDESK_BREAKER_COOLDOWN_SECONDS", 120),
			RetryDelaySec:         getEnvAsInt("HELPDESK_RETRY_DELAY_SECONDS", 2),
			RateWindowSec:         getEnvAsInt("HELPDESK_RATE_WINDOW_SECONDS", 60),
		},
		Triage: TriageConfig{
			OperationalAgentID: getEnvAsInt64("TRIAGE_OPERATIONAL_AGENT_ID", 0),
			QAAuthorID:         getEnvAsInt64("TRIAGE_QA_AUTHOR_ID", 0),
			ReviewerID:         getEnvAsInt64("TRIAGE_REVIEWER_ID", 0),
			RoutingTag:         getEnv("TRIAGE_ROUTING_TAG", ""),
			RoutingGroupID:     getEnvAsInt64("TRIAGE_ROUTING_GROUP_ID", 0),
			SpecialQueueNames:  getEnvAsList("TRIAGE_SPECIAL_QUEUES"),
			ExclusionPhrases:   getEnvAsList("TRIAGE_EXCLUSION_PHRASES"),
			AwaitCustomerOps:   getEnvAsBool("TRIAGE_AWAIT_CUSTOMER_ENABLED", true),
			ResolutionOps:      getEnvAsBool("TRIAGE_RESOLUTION_ENABLED", true),
			RTAOps:             getEnvAsBool("TRIAGE_RTA_ENABLED", true),
			DryRun:             getEnvAsBool("TRIAGE_DRY_RUN", false),
			BackoffWindowSec:   getEnvAsInt("TRIAGE_BACKOFF_WINDOW_SECONDS", 300),
			RetentionDays:      getEnvAsInt("TRIAGE_HISTORY_RETENTION_DAYS", 30),
		},
		Monitor: MonitorConfig{
			QueueNames:         getEnvAsList("MONITOR_QUEUES"),
			PollIntervalSec:    getEnvAsInt("MONITOR_POLL_INTERVAL_SECONDS", 10),
			TicketPacingMillis: getEnvAsInt("MONITOR_TICKET_PACING_MILLIS", 500),
			SessionHistoryMax:  getEnvAsInt("MONITOR_SESSION_HISTORY_MAX", 50),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorName:          getEnv("AUTH_OPERATOR_NAME", "operator"),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
		},
	}

	return cfg, nil
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

// BreakerCooldown returns the circuit-breaker cooldown duration.
func (h HelpdeskConfig) BreakerCooldown() time.Duration {
	return time.Duration(h.BreakerCooldownSec) * time.Second
}

// RetryDelay returns the delay before the single retry attempt.
func (h HelpdeskConfig) RetryDelay() time.Duration {
	return time.Duration(h.RetryDelaySec) * time.Second
}

// RateWindow returns the rolling rate-limit window length.
func (h HelpdeskConfig) RateWindow() time.Duration {
	return time.Duration(h.RateWindowSec) * time.Second
}

// RequestTimeout returns the per-call HTTP timeout.
func (h HelpdeskConfig) RequestTimeout() time.Duration {
	if h.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.RequestTimeoutSeconds) * time.Second
}

// BackoffWindow returns the minimum gap between two processing attempts for
// the same ticket at the same target status.
func (t TriageConfig) BackoffWindow() time.Duration {
	return time.Duration(t.BackoffWindowSec) * time.Second
}

// RetentionAge returns the history retention cutoff age.
func (t TriageConfig) RetentionAge() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// PollInterval returns the poll interval clamped to the operator-adjustable
// 10-60s range.
func (m MonitorConfig) PollInterval() time.Duration {
	sec := m.PollIntervalSec
	if sec < 10 {
		sec = 10
	}
	if sec > 60 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}

// TicketPacing returns the inter-ticket delay applied within one tick.
func (m MonitorConfig) TicketPacing() time.Duration {
	if m.TicketPacingMillis < 0 {
		return 0
	}
	return time.Duration(m.TicketPacingMillis) * time.Millisecond
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

func getEnvAsInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
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

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
