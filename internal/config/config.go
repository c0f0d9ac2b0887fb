package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// AppConfig holds all environment variables.
type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"random_module"`
	IP          string `env:"IP"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// When PortManagerIP is set the listen port is requested from the port
	// manager instead of taken from Port.
	PortManagerIP       string `env:"PORT_MANAGER_IP"`
	PortManagerPort     int    `env:"PORT_MANAGER_PORT" envDefault:"80"`
	PortManagerEndpoint string `env:"PORT_MANAGER_ENDPOINT" envDefault:"get_port"`

	LogsDir  string `env:"LOGS_DIR" envDefault:"./logs"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"true"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`

	WorkersCount int   `env:"WORKERS_COUNT" envDefault:"4"`
	MaxLength    int   `env:"MAX_LENGTH" envDefault:"256"`
	MaxCount     int   `env:"MAX_COUNT" envDefault:"100"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"2097152"`
	LocalOnly    bool  `env:"LOCAL_ONLY" envDefault:"true"`
}

// Load reads environment variables (and .env files if present). With no
// arguments it looks for ".env" in the working directory. Variables already
// set in the environment win over file values.
func Load(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.PortManagerEndpoint = strings.Trim(cfg.PortManagerEndpoint, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsePortManager reports whether the listen port is negotiated.
func (c *AppConfig) UsePortManager() bool {
	return c.PortManagerIP != ""
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.ServiceName) == "" {
		result = multierror.Append(result, errors.New("SERVICE_NAME must not be empty"))
	}
	if c.IP != "" && net.ParseIP(c.IP) == nil {
		result = multierror.Append(result, fmt.Errorf("IP %q is not a valid address", c.IP))
	}
	if c.UsePortManager() {
		if !validPort(c.PortManagerPort) {
			result = multierror.Append(result, fmt.Errorf("PORT_MANAGER_PORT %d out of range", c.PortManagerPort))
		}
		if c.PortManagerEndpoint == "" {
			result = multierror.Append(result, errors.New("PORT_MANAGER_ENDPOINT must not be empty"))
		}
	} else if !validPort(c.Port) {
		result = multierror.Append(result, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.WorkersCount < 1 {
		result = multierror.Append(result, fmt.Errorf("WORKERS_COUNT must be >= 1, got %d", c.WorkersCount))
	}
	if c.MaxLength < 1 {
		result = multierror.Append(result, fmt.Errorf("MAX_LENGTH must be >= 1, got %d", c.MaxLength))
	}
	if c.MaxCount < 1 {
		result = multierror.Append(result, fmt.Errorf("MAX_COUNT must be >= 1, got %d", c.MaxCount))
	}
	if c.MaxBodyBytes < 1 {
		result = multierror.Append(result, fmt.Errorf("MAX_BODY_BYTES must be >= 1, got %d", c.MaxBodyBytes))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		result = multierror.Append(result, fmt.Errorf("GIN_MODE %q is not one of debug, release, test", c.GinMode))
	}

	return result.ErrorOrNil()
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
