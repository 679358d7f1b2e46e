package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the vault sync service
type Config struct {
	GRPCPort       int
	HTTPPort       int
	LogLevel       string
	DebounceMs     int
	WatchPatterns  []string
	IgnorePatterns []string
	SplitMoves     bool
	JournalPath    string
	JournalWorkers int
	VaultPath      string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		GRPCPort:       intEnv("VAULTSYNC_GRPC_PORT", 50051),
		HTTPPort:       intEnv("VAULTSYNC_HTTP_PORT", 8080),
		LogLevel:       stringEnv("LOG_LEVEL", "info"),
		DebounceMs:     intEnv("DEBOUNCE_MS", 0),
		WatchPatterns:  listEnv("VAULTSYNC_PATTERNS", []string{"*.db"}),
		IgnorePatterns: listEnv("VAULTSYNC_IGNORE", nil),
		SplitMoves:     boolEnv("VAULTSYNC_SPLIT_MOVES", false),
		JournalPath:    stringEnv("VAULTSYNC_JOURNAL", ""),
		JournalWorkers: intEnv("VAULTSYNC_JOURNAL_WORKERS", 2),
		VaultPath:      stringEnv("VAULTSYNC_VAULT", ""),
	}
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intEnv ignores values that do not parse
func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func listEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
