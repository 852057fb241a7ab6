// Package config loads server configuration from a YAML file and the
// environment. Environment variables override file values.
package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	pkgerrors "github.com/pkg/errors"
)

// Config is the top-level server configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string        `yaml:"addr" env:"EDUBOT_SERVER_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"EDUBOT_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"EDUBOT_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"EDUBOT_SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// Storage selects and configures the persistence backend.
type Storage struct {
	// Backend is "pebble" or "file".
	Backend string `yaml:"backend" env:"EDUBOT_STORAGE_BACKEND" env-default:"pebble"`
	DataDir string `yaml:"data_dir" env:"EDUBOT_DATA_DIR" env-default:"./data"`
	// Fsync is "always", "interval", or "never". Pebble backend only.
	Fsync string `yaml:"fsync" env:"EDUBOT_STORAGE_FSYNC" env-default:"interval"`
}

// Log configures the logger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"EDUBOT_LOG_LEVEL" env-default:"info"`
	// Format is "text" or "json".
	Format string `yaml:"format" env:"EDUBOT_LOG_FORMAT" env-default:"text"`
}

// Backends and fsync modes accepted by Validate.
const (
	BackendPebble = "pebble"
	BackendFile   = "file"

	FsyncAlways   = "always"
	FsyncInterval = "interval"
	FsyncNever    = "never"
)

// Load reads configuration from path, or from CONFIG_PATH when path is
// empty, then applies environment overrides. With no file at all, the
// configuration comes from the environment and defaults alone.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, pkgerrors.Wrapf(err, "read config %s", path)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, pkgerrors.Wrap(err, "read config from environment")
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enum fields.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendPebble, BackendFile:
	default:
		return pkgerrors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Storage.Fsync {
	case FsyncAlways, FsyncInterval, FsyncNever:
	default:
		return pkgerrors.Errorf("unknown fsync mode %q", c.Storage.Fsync)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return pkgerrors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
