// Package config reads service configuration from the environment once at
// startup. A .env file is honored when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr           string
	RequestTimeout time.Duration
}

type BudgetConfig struct {
	Rate  float64 // requests per second
	Burst int
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	HTTP        HTTPConfig

	// DataDir is the root of the file-per-article comment storage.
	DataDir string
	// Categories is the allow-list of comment categories.
	Categories []string

	JWTSecret string
	NATSURL   string // empty disables event publishing

	ReadBudget     BudgetConfig
	WriteBudget    BudgetConfig
	ModerateBudget BudgetConfig
}

func Load() (AppConfig, error) {
	// Best-effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := AppConfig{
		ServiceName: envStr("SERVICE_NAME", "comments"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Addr:           envStr("HTTP_ADDR", ":8080"),
			RequestTimeout: envDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		DataDir:        envStr("DATA_DIR", "data"),
		Categories:     splitList(envStr("CATEGORIES", "tech,life,projects")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		NATSURL:        strings.TrimSpace(os.Getenv("NATS_URL")),
		ReadBudget:     BudgetConfig{Rate: envFloat("READ_RPS", 10), Burst: envInt("READ_BURST", 30)},
		WriteBudget:    BudgetConfig{Rate: envFloat("WRITE_RPS", 1), Burst: envInt("WRITE_BURST", 5)},
		ModerateBudget: BudgetConfig{Rate: envFloat("MOD_RPS", 2), Burst: envInt("MOD_BURST", 10)},
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
