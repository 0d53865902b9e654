package relay

import (
	"os"
	"strings"
	"time"
)

// Config holds relay configuration
type Config struct {
	Port           string
	TargetURL      string
	AllowedOrigins []string
	Timeout        time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}

	timeout := DefaultTimeout
	if v := os.Getenv("RELAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	cfg := Config{
		Port:           port,
		TargetURL:      strings.TrimSpace(os.Getenv("RELAY_TARGET_URL")),
		AllowedOrigins: strings.Split(allowedOrigins, ","),
		Timeout:        timeout,
	}

	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	return cfg
}
