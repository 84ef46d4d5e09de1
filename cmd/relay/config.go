package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	HealthPort           int           `env:"HEALTH_PORT,default=0" validate:"min=0,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	BufferSize           int           `env:"BROADCAST_BUFFER_SIZE,default=1024" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms" validate:"gt=0"`
	PublishTimeout       time.Duration `env:"PUBLISH_TIMEOUT,default=250ms" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=50s" validate:"gt=0,ltfield=PongWait"`
	ReadLimit            int64         `env:"READ_LIMIT,default=65536" validate:"min=512"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,default=15s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	StaticDir            string        `env:"STATIC_DIR"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS, a comma separated list of hosts.
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}
