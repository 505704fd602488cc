package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	CoreDatabaseURL string
	HTTPListenAddr  string
	LogLevel        string
	ServiceName     string
	AdminToken      string
	TrustProxy      bool

	// Ingestion guards.
	StalenessTolerance time.Duration
	SubmitRatePerMin   int
	SubmitBurst        int

	// Engine tunables. The numeric defaults are product decisions; they
	// are configuration, never hard-coded in the engines.
	GraceWindow        time.Duration
	ObservationWindow  time.Duration
	MinSamples         int
	AnomalyQuietPeriod time.Duration
	AnomalySpikeWindow time.Duration

	// Ranking guards.
	RankingPlayerCap      int
	RankingUptimeKnee     float64
	RankingAnomalyPenalty float64

	// Worker settings.
	WorkerCount        int
	WorkerPollInterval time.Duration
	ClaimTimeout       time.Duration
	MaxAttempts        int
}

func Load() (*Config, error) {
	cfg := &Config{
		CoreDatabaseURL: getEnv("CORE_DATABASE_URL", ""),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", ""),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		TrustProxy:      getEnv("TRUST_PROXY", "") == "true",

		StalenessTolerance: getDuration("STALENESS_TOLERANCE", 5*time.Minute),
		SubmitRatePerMin:   getInt("SUBMIT_RATE_PER_MIN", 6),
		SubmitBurst:        getInt("SUBMIT_BURST", 3),

		GraceWindow:        getDuration("GRACE_WINDOW", 60*time.Second),
		ObservationWindow:  getDuration("OBSERVATION_WINDOW", 24*time.Hour),
		MinSamples:         getInt("MIN_SAMPLES", 3),
		AnomalyQuietPeriod: getDuration("ANOMALY_QUIET_PERIOD", 30*time.Minute),
		AnomalySpikeWindow: getDuration("ANOMALY_SPIKE_WINDOW", 60*time.Second),

		RankingPlayerCap:      getInt("RANKING_PLAYER_CAP", 50),
		RankingUptimeKnee:     getFloat("RANKING_UPTIME_KNEE", 95),
		RankingAnomalyPenalty: getFloat("RANKING_ANOMALY_PENALTY", 25),

		WorkerCount:        getInt("WORKER_COUNT", 4),
		WorkerPollInterval: getDuration("WORKER_POLL_INTERVAL", time.Second),
		ClaimTimeout:       getDuration("CLAIM_TIMEOUT", 2*time.Minute),
		MaxAttempts:        getInt("MAX_ATTEMPTS", 5),
	}

	return cfg, nil
}

// Validate checks that the settings required by the given service are set.
func (c *Config) Validate(service string) error {
	if c.CoreDatabaseURL == "" {
		return fmt.Errorf("%s: CORE_DATABASE_URL is required", service)
	}
	if c.GraceWindow <= 0 {
		return fmt.Errorf("%s: GRACE_WINDOW must be positive", service)
	}
	if c.ObservationWindow < c.GraceWindow {
		return fmt.Errorf("%s: OBSERVATION_WINDOW must not be shorter than GRACE_WINDOW", service)
	}
	if service == "worker" {
		if c.WorkerCount < 1 {
			return fmt.Errorf("worker: WORKER_COUNT must be at least 1")
		}
		if c.MaxAttempts < 1 {
			return fmt.Errorf("worker: MAX_ATTEMPTS must be at least 1")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
