package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR is the WebSocket endpoint of a running relay, e.g. ws://localhost:3000/ws
	RelayAddr string `envconfig:"RELAY_ADDR"`
	// RELAY_HEALTH_ADDR is the gRPC health address, left empty when the relay runs without one
	HealthAddr string `envconfig:"RELAY_HEALTH_ADDR"`
	// RELAY_GRACE must match the grace window of the relay under test
	Grace time.Duration `envconfig:"RELAY_GRACE" default:"3s"`
	// E2E_DEBUG_JSON dumps every received frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
