package internal

import (
	"fmt"
	"strings"
	"time"

	"keychat/errors"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0" validate:"required"`
	Port           int    `env:"PORT,default=3010" validate:"min=0,max=65535"`
	GrpcHealthPort int    `env:"GRPC_HEALTH_PORT,default=0" validate:"min=0,max=65535"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO" validate:"required"`

	ChallengeMessage string        `env:"CHALLENGE_MESSAGE,default=Hiro Hacks Fun 2023" validate:"required"`
	StacksNetwork    string        `env:"STACKS_NETWORK,default=testnet" validate:"oneof=mainnet testnet"`
	StacksNodeURL    string        `env:"STACKS_NODE_URL,default=https://api.testnet.hiro.so" validate:"required,url"`
	ContractAddress  string        `env:"KEYS_CONTRACT_ADDRESS,default=ST203SGZM0XR3P4YSVD2XVMF1N63CRG2DRXT4C7AE" validate:"required"`
	ContractName     string        `env:"KEYS_CONTRACT_NAME,default=keys" validate:"required"`
	FunctionName     string        `env:"KEYS_FUNCTION_NAME,default=is-keyholder" validate:"required"`
	OracleTimeout    time.Duration `env:"ORACLE_TIMEOUT,default=10s" validate:"gt=0"`

	AllowedOrigins string        `env:"ALLOWED_ORIGINS,default=*"`
	MaxMessageSize int           `env:"MAX_MESSAGE_SIZE,default=65536" validate:"min=0"`
	OutboxSize     int           `env:"OUTBOX_SIZE,default=64" validate:"min=1"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	PongTimeout    time.Duration `env:"PONG_TIMEOUT,default=60s" validate:"gt=0"`

	EventBufferSize   int           `env:"EVENT_BUFFER_SIZE,default=1024" validate:"min=1"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s" validate:"gt=0"`

	AuditBadgerFilepath string        `env:"AUDIT_BADGER_FILEPATH"`
	AuditRetention      time.Duration `env:"AUDIT_RETENTION,default=24h" validate:"min=0"`
	StatsEnabled        bool          `env:"STATS_ENABLED,default=false"`
	InspectorPort       int           `env:"INSPECTOR_PORT,default=8081" validate:"min=0,max=65535"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) GrpcHealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcHealthPort)
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
