package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "POSTLOGGER_"

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Log           LogConfig            `koanf:"log" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development production test"`
}

type ServerConfig struct {
	Host               string        `koanf:"host"`
	Port               int           `koanf:"port" validate:"required,min=1,max=65535"`
	ReadTimeout        time.Duration `koanf:"read_timeout"`
	WriteTimeout       time.Duration `koanf:"write_timeout"`
	IdleTimeout        time.Duration `koanf:"idle_timeout"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins" validate:"required,min=1"`
}

// Addr is the host:port the listener binds to.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig configures the request log sink.
type LogConfig struct {
	File     string `koanf:"file" validate:"required"`
	MaxBytes int64  `koanf:"max_bytes" validate:"gt=0"`
	Sync     bool   `koanf:"sync"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			File:     "post_log.jsonl",
			MaxBytes: 5 * 1024 * 1024,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig builds the configuration from defaults, a .env file, POSTLOGGER_
// environment variables and finally the command line flags in args.
// Nested keys are separated by a double underscore, e.g. POSTLOGGER_LOG__MAX_BYTES.
func LoadConfig(args []string) (mainConfig *Config, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	err = k.Load(env.ProviderWithValue(envPrefix, ".", func(s, v string) (string, any) {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if key == "server.cors_allowed_origins" {
			return key, strings.Split(v, ",")
		}
		return key, v
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	mainConfig = Default()
	if err = k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err = parseFlags(mainConfig, args); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err = validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// filled from the primary section, never from env
	mainConfig.Observability.ServiceName = "postlogger"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err = mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}
	return mainConfig, nil
}

// parseFlags overrides cfg with command line flags. Values already in cfg
// are the flag defaults, so unset flags keep the env or built-in value.
func parseFlags(cfg *Config, args []string) error {
	flags := flag.NewFlagSet("postlogger", flag.ContinueOnError)
	flags.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Bind host")
	flags.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "Port")
	flags.StringVar(&cfg.Log.File, "logfile", cfg.Log.File, "Output JSONL file")
	flags.Int64Var(&cfg.Log.MaxBytes, "max-bytes", cfg.Log.MaxBytes, "Max payload size (bytes)")
	flags.BoolVar(&cfg.Log.Sync, "sync", cfg.Log.Sync, "fsync the log file after every append")
	flags.StringVar(&cfg.Observability.Logging.Level, "log-level", cfg.Observability.Logging.Level, "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
