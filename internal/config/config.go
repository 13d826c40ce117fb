package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/events"
	"github.com/sheikh-saqib/transactions-service/internal/events/kafka"
	"github.com/sheikh-saqib/transactions-service/internal/ledger"
	"github.com/sheikh-saqib/transactions-service/internal/risk"
)

type Config struct {
	Port        string
	DatabaseURL string // empty means in-memory stores
	LogLevel    slog.Level

	RedisAddr    string // empty disables the risk rule cache
	RuleCacheTTL time.Duration

	KafkaBrokers []string // empty disables the Kafka relay
	KafkaTopic   string

	RiskBaseURL         string
	Risk                risk.Config
	DefaultDebitCeiling decimal.Decimal

	EventBufferSize   int
	SaveMaxAttempts   int
	ReconcileInterval time.Duration

	SeedData        bool
	MockRiskEnabled bool
}

// Load reads a .env file when there is one and then the environment. Unset
// keys take their defaults; malformed values are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	port := getEnv("PORT", "8080")
	defaults := risk.DefaultConfig()
	p := parser{}

	cfg := &Config{
		Port:         port,
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		LogLevel:     p.level("LOG_LEVEL", slog.LevelInfo),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RuleCacheTTL: p.duration("RULE_CACHE_TTL", 5*time.Minute),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", kafka.DefaultTopic),
		RiskBaseURL:  getEnv("RISK_BASE_URL", "http://localhost:"+port+"/mock/risk"),
		Risk: risk.Config{
			Timeout:      p.duration("RISK_TIMEOUT", defaults.Timeout),
			MaxAttempts:  p.integer("RISK_MAX_ATTEMPTS", defaults.MaxAttempts),
			RetryBackoff: p.duration("RISK_RETRY_BACKOFF", defaults.RetryBackoff),
			Breaker: risk.BreakerSettings{
				Window:         p.duration("BREAKER_WINDOW", defaults.Breaker.Window),
				MinRequests:    uint32(p.integer("BREAKER_MIN_REQUESTS", int(defaults.Breaker.MinRequests))),
				FailureRatio:   p.ratio("BREAKER_FAILURE_RATIO", defaults.Breaker.FailureRatio),
				Cooldown:       p.duration("BREAKER_COOLDOWN", defaults.Breaker.Cooldown),
				HalfOpenTrials: uint32(p.integer("BREAKER_HALF_OPEN_TRIALS", int(defaults.Breaker.HalfOpenTrials))),
			},
			FallbackWorkers: p.integer("FALLBACK_WORKERS", defaults.FallbackWorkers),
			FallbackTimeout: p.duration("FALLBACK_TIMEOUT", defaults.FallbackTimeout),
		},
		DefaultDebitCeiling: p.amount("DEFAULT_DEBIT_CEILING", risk.DefaultDebitCeiling),
		EventBufferSize:     p.integer("EVENT_BUFFER_SIZE", events.DefaultCapacity),
		SaveMaxAttempts:     p.integer("SAVE_MAX_ATTEMPTS", ledger.DefaultSaveAttempts),
		ReconcileInterval:   p.duration("RECONCILE_INTERVAL", ledger.DefaultReconcileInterval),
		SeedData:            p.flag("SEED_DATA", true),
		MockRiskEnabled:     p.flag("MOCK_RISK_ENABLED", true),
	}

	if r := cfg.Risk.Breaker.FailureRatio; r <= 0 || r > 1 {
		p.errs = append(p.errs, fmt.Errorf("BREAKER_FAILURE_RATIO: %v is not in (0, 1]", r))
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects every malformed value instead of stopping at the first
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err == nil && n < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}

func (p *parser) ratio(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return f
}

func (p *parser) flag(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return b
}

func (p *parser) amount(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err == nil && !d.IsPositive() {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

func (p *parser) level(key string, fallback slog.Level) slog.Level {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return l
}
