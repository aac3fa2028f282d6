package web

import (
	"github.com/fuelops/correlator/internal/config"
)

// Config holds the web server configuration
type Config struct {
	Server struct {
		Host string
		Port int
	}
	Features struct {
		AdminDeleteEnabled bool
	}
}

// LoadConfig builds the web configuration from the environment
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = config.GetEnv("HTTP_HOST", "0.0.0.0")
	cfg.Server.Port = config.GetEnvInt("HTTP_PORT", 8080)
	cfg.Features.AdminDeleteEnabled = config.GetEnvBool("ADMIN_DELETE_ENABLED", false)
	return cfg
}
