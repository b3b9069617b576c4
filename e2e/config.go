package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config targets an already running relay. Suites skip when E2E_RELAY_URL is unset.
type Config struct {
	RelayURL   string `envconfig:"E2E_RELAY_URL"`
	HealthAddr string `envconfig:"E2E_HEALTH_ADDR"`
	// E2E_PRIVATE_KEY must belong to a key holder of E2E_SUBJECT for the chat steps
	PrivateKey string `envconfig:"E2E_PRIVATE_KEY"`
	Subject    string `envconfig:"E2E_SUBJECT"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool          `envconfig:"E2E_COLOURS" default:"true"`
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"30s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
