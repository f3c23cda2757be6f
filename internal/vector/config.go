// File path: internal/vector/config.go
package vector

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// LoadConfig reads the qdrant connection settings from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Host:       "localhost",
		Port:       6334,
		Collection: "docuchat_chunks",
		Dimension:  1536,
		Timeout:    15 * time.Second,
	}
	if host := strings.TrimSpace(os.Getenv("QDRANT_HOST")); host != "" {
		cfg.Host = host
	}
	if raw := strings.TrimSpace(os.Getenv("QDRANT_PORT")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse QDRANT_PORT: %w", err)
		}
		cfg.Port = parsed
	}
	cfg.APIKey = strings.TrimSpace(os.Getenv("QDRANT_API_KEY"))
	if collection := strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")); collection != "" {
		cfg.Collection = collection
	}
	if raw := strings.TrimSpace(os.Getenv("QDRANT_DIMENSION")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse QDRANT_DIMENSION: %w", err)
		}
		if parsed > 0 {
			cfg.Dimension = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("QDRANT_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse QDRANT_TIMEOUT: %w", err)
		}
		cfg.Timeout = parsed
	}
	return cfg, nil
}
