package config

import (
	"log"
	"os"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	APIKey       string
	ModelName    string

	StorageBackend string // "memory" or "firestore"
	UseMockLLM     bool   // true = use mock even on GCP

	// GatewayTimeout bounds every model invocation; a timed-out call is a
	// gateway failure for the calling agent, not a pipeline abort.
	GatewayTimeout time.Duration

	// EventBufferSize is the per-subscriber buffer of the event bus. A
	// subscriber that falls further behind starts missing events.
	EventBufferSize int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("GEOMIND_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("GEOMIND_PORT", "8080"),

		GCPProjectID: getEnv("GEOMIND_GCP_PROJECT", ""),
		GCPLocation:  getEnv("GEOMIND_GCP_LOCATION", "us-central1"),
		APIKey:       getEnv("GOOGLE_API_KEY", ""),
		ModelName:    getEnv("GEOMIND_MODEL_NAME", "gemini-2.5-pro"),

		StorageBackend: getEnv("GEOMIND_STORAGE_BACKEND", "memory"),
		UseMockLLM:     getBoolEnv("GEOMIND_USE_MOCK_LLM", mode == ModeLocal),

		GatewayTimeout:  getDurationEnv("GEOMIND_GATEWAY_TIMEOUT", 3*time.Minute),
		EventBufferSize: 256,
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("GEOMIND_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
