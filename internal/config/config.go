// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// RunMigrations applies pending goose migrations at startup (MIGRATE=true).
	RunMigrations bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// Location is the time zone that decides what "today" is when completing
	// travels and windowing eco stats. TIMEZONE, defaults to UTC.
	Location *time.Location

	// MaxRecurringDays bounds the number of legs in one recurring publish.
	MaxRecurringDays int

	// GeocoderURL enables geocoding of travel addresses when set.
	GeocoderURL     string
	GeocoderTimeout time.Duration

	// RedisAddr enables the geocode cache when set.
	RedisAddr       string
	RedisPassword   string
	GeocodeCacheTTL time.Duration

	// KafkaBrokers enables lifecycle event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	Eco EcoConfig
}

// EcoConfig holds the constants of the weekly eco-incentive projection.
type EcoConfig struct {
	CO2PerSeatKg       float64
	RupeesPerPassenger int64
	RupeesPerRide      int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// values that fail to parse.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8081")),
		RunMigrations:    strings.EqualFold(os.Getenv("MIGRATE"), "true"),
		MaxBodyBytes:     1 << 20,
		Location:         time.UTC,
		MaxRecurringDays: 366,
		GeocoderURL:      os.Getenv("GEOCODER_URL"),
		GeocoderTimeout:  3 * time.Second,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		GeocodeCacheTTL:  7 * 24 * time.Hour,
		KafkaBrokers:     splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "mobility-sharing.lifecycle"),
		Eco: EcoConfig{
			CO2PerSeatKg:       2.3,
			RupeesPerPassenger: 5,
			RupeesPerRide:      2,
		},
	}

	var errs []error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("required environment variables not set: DATABASE_URL"))
	}

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}

	setInt64FromEnv(&cfg.MaxBodyBytes, "MAX_BODY_BYTES", &errs)
	setIntFromEnv(&cfg.MaxRecurringDays, "MAX_RECURRING_DAYS", &errs)
	setDurationFromEnv(&cfg.GeocoderTimeout, "GEOCODER_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.GeocodeCacheTTL, "GEOCODE_CACHE_TTL", &errs)
	setFloatFromEnv(&cfg.Eco.CO2PerSeatKg, "ECO_CO2_PER_SEAT_KG", &errs)
	setInt64FromEnv(&cfg.Eco.RupeesPerPassenger, "ECO_RUPEES_PER_PASSENGER", &errs)
	setInt64FromEnv(&cfg.Eco.RupeesPerRide, "ECO_RUPEES_PER_RIDE", &errs)

	if cfg.MaxRecurringDays <= 0 {
		errs = append(errs, errors.New("MAX_RECURRING_DAYS must be > 0"))
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be > 0"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setInt64FromEnv(target *int64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
