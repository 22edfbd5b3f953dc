package config

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
	EnvironmentProduction  = "production"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/shelfdesk.yaml"
)

// Config is loaded from defaults, then the YAML file named by CONFIG_FILE, then
// the environment. Every key can be set as an upper snake case environment
// variable, e.g. jwt_secret is JWT_SECRET.
type Config struct {
	Environment string `koanf:"environment" default:"development" validate:"oneof=development test production"`

	DatabaseDriver            string        `koanf:"database_driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required_if=DatabaseDriver sqlite"`
	DatabaseURL               string        `koanf:"database_url" validate:"required_if=DatabaseDriver postgres"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	DatabaseDebug             bool          `koanf:"database_debug"`

	ServerHost         string   `koanf:"server_host" default:"0.0.0.0"`
	ServerPort         int      `koanf:"server_port" default:"3000"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" default:"[\"*\"]"`

	JWTSecret   string        `koanf:"jwt_secret" validate:"required"`
	TokenExpiry time.Duration `koanf:"token_expiry" default:"168h"`
	BcryptCost  int           `koanf:"bcrypt_cost" default:"10" validate:"min=4,max=31"`

	RedisURL                    string        `koanf:"redis_url"`
	AuthRateLimitCapacity       int           `koanf:"auth_rate_limit_capacity" default:"10"`
	AuthRateLimitRefillInterval time.Duration `koanf:"auth_rate_limit_refill_interval" default:"1m"`

	AMQPURL           string        `koanf:"amqp_url"`
	AMQPQueue         string        `koanf:"amqp_queue" default:"shelfdesk.events"`
	EventPollInterval time.Duration `koanf:"event_poll_interval" default:"5s"`
	EventBatchSize    int           `koanf:"event_batch_size" default:"50"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to load config file %s", path)
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config pointing at an in-memory database with cheap
// password hashing.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)

	cfg.Environment = EnvironmentTest
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-jwt-secret"
	cfg.BcryptCost = 4
	cfg.EventPollInterval = 10 * time.Millisecond

	return cfg
}

func (cfg *Config) IsTest() bool {
	return cfg.Environment == EnvironmentTest
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WithStack(err)
	}

	fe := verrs[0]
	key := toSnakeCase(fe.StructField())
	switch fe.Tag() {
	case "required", "required_if":
		return errors.Errorf("missing required config: %s (env) / %s (config file)", strings.ToUpper(key), key)
	default:
		return errors.Errorf("invalid config value for %s: %s", key, describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("failed %q", fe.Tag())
	}
	return fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
