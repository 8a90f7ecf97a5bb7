package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Eligibility  EligibilityConfig
	Requests     RequestsConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                  string
	AccessTokenTTLMinutes      int
	RequestorSessionTTLMinutes int
	RequestorCodeTTLMinutes    int
	BcryptCost                 int
	BootstrapAdminEmail        string
	BootstrapAdminPassword     string
}

// NotificationConfig controls donor alert emails.
type NotificationConfig struct {
	EmailFrom        string
	SiteURL          string
	MaxDonorsPerSend int
}

// EligibilityConfig tunes donor matching and cooldown rules.
type EligibilityConfig struct {
	MatchingMode     string
	FemaleCooldown   int
	MaleCooldown     int
	OtherCooldown    int
	Timezone         string
	StrictCityFilter bool
}

// RequestsConfig controls the request expiry sweep.
type RequestsConfig struct {
	ExpirySweepSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "gasc-blood-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
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
			JWTSecret:                  getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:      getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RequestorSessionTTLMinutes: getEnvAsInt("AUTH_REQUESTOR_SESSION_TTL_MINUTES", 24*60),
			RequestorCodeTTLMinutes:    getEnvAsInt("AUTH_REQUESTOR_CODE_TTL_MINUTES", 15),
			BcryptCost:                 getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:        os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword:     os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:        getEnv("NOTIFY_EMAIL_FROM", "noreply@gasc-bloodbridge.org"),
			SiteURL:          getEnv("NOTIFY_SITE_URL", "http://localhost:8080"),
			MaxDonorsPerSend: getEnvAsInt("NOTIFY_MAX_DONORS_PER_REQUEST", 50),
		},
		Eligibility: EligibilityConfig{
			MatchingMode:     getEnv("MATCHING_MODE", "compatible"),
			FemaleCooldown:   getEnvAsInt("ELIGIBILITY_FEMALE_COOLDOWN_DAYS", 120),
			MaleCooldown:     getEnvAsInt("ELIGIBILITY_MALE_COOLDOWN_DAYS", 90),
			OtherCooldown:    getEnvAsInt("ELIGIBILITY_OTHER_COOLDOWN_DAYS", 90),
			Timezone:         getEnv("ELIGIBILITY_TIMEZONE", "Asia/Dhaka"),
			StrictCityFilter: getEnvAsBool("STRICT_CITY_FILTER", false),
		},
		Requests: RequestsConfig{
			ExpirySweepSeconds: getEnvAsInt("REQUEST_EXPIRY_SWEEP_SECONDS", 300),
		},
	}

	if cfg.Eligibility.MatchingMode != "exact" && cfg.Eligibility.MatchingMode != "compatible" {
		return nil, fmt.Errorf("invalid MATCHING_MODE %q: want exact or compatible", cfg.Eligibility.MatchingMode)
	}

	return cfg, nil
}

// Location resolves the reporting timezone used for day-granular date math.
func (e EligibilityConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ELIGIBILITY_TIMEZONE: %w", err)
	}
	return loc, nil
}

// SweepInterval returns how often overdue requests are expired.
func (r RequestsConfig) SweepInterval() time.Duration {
	if r.ExpirySweepSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.ExpirySweepSeconds) * time.Second
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
