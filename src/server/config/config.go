package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"mx44-utils/src/server/util"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	prodConfigDir  = "/var/lib/mx44-utils"
	configFileName = "config.yaml"
	configDirEnv   = "MX44_UTILS_CONFIG_DIR"
)

const (
	DefaultHost              = "192.168.0.2"
	DefaultPort              = 23
	DefaultPollIntervalMs    = 60000
	MinPollIntervalMs        = 300
	MaxPollIntervalMs        = 300000
	DefaultReconnectInterval = 300000
	DefaultHTTPAddr          = ":9080"
	DefaultLabel             = "mx44"
)

type Config struct {
	InstanceID string `yaml:"instance_id" json:"instanceId"`
	Label      string `yaml:"label" json:"label" env:"MX44_LABEL"`
	Model      string `yaml:"model,omitempty" json:"model,omitempty" env:"MX44_MODEL"`

	Host string `yaml:"host" json:"host" env:"MX44_HOST"`
	Port int    `yaml:"port" json:"port" env:"MX44_PORT"`

	PolledData     bool `yaml:"polled_data" json:"polledData" env:"MX44_POLLED_DATA"`
	PollIntervalMs int  `yaml:"poll_interval" json:"pollInterval" env:"MX44_POLL_INTERVAL"`

	LogResponses bool `yaml:"log_responses" json:"logResponses" env:"MX44_LOG_RESPONSES"`
	LogTokens    bool `yaml:"log_tokens" json:"logTokens" env:"MX44_LOG_TOKENS"`

	ReconnectIntervalMs int `yaml:"reconnect_interval" json:"reconnectInterval" env:"MX44_RECONNECT_INTERVAL"`

	HTTPAddr string `yaml:"http_addr" json:"httpAddr" env:"MX44_HTTP_ADDR"`
	Debug    bool   `yaml:"debug,omitempty" json:"debug" env:"MX44_DEBUG"`
}

// Default returns a config with every field at its documented default.
func Default() Config {
	return Config{
		Label:               DefaultLabel,
		Host:                DefaultHost,
		Port:                DefaultPort,
		PollIntervalMs:      DefaultPollIntervalMs,
		ReconnectIntervalMs: DefaultReconnectInterval,
		HTTPAddr:            DefaultHTTPAddr,
	}
}

// Normalize fills zero values with defaults and clamps the poll interval.
func (c *Config) Normalize() {
	if c.Label == "" {
		c.Label = DefaultLabel
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.PollIntervalMs < MinPollIntervalMs {
		c.PollIntervalMs = MinPollIntervalMs
	}
	if c.PollIntervalMs > MaxPollIntervalMs {
		c.PollIntervalMs = MaxPollIntervalMs
	}
	if c.ReconnectIntervalMs <= 0 {
		c.ReconnectIntervalMs = DefaultReconnectInterval
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c Config) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalMs) * time.Millisecond
}

// Path returns where the config file lives. The directory comes from
// MX44_UTILS_CONFIG_DIR (environment, then .env.local), then the
// production directory if writable, then ./tmp.
func Path() string {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return filepath.Join(dir, configFileName)
	}
	if dir := util.LoadEnvLocal(configDirEnv); dir != "" {
		return filepath.Join(dir, configFileName)
	}
	if info, err := os.Stat(prodConfigDir); err == nil && info.IsDir() {
		testFile := filepath.Join(prodConfigDir, ".write_test")
		if f, err := os.Create(testFile); err == nil {
			f.Close()
			os.Remove(testFile)
			return filepath.Join(prodConfigDir, configFileName)
		}
	}
	return filepath.Join("tmp", configFileName)
}

// Load reads the config file, creating it with defaults when missing, and
// applies environment overrides. Overrides are not written back.
func Load() (Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (Config, error) {
	log.Printf("Config: %s", path)

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg.InstanceID = uuid.NewString()
		if err := saveTo(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.InstanceID == "" {
			cfg.InstanceID = uuid.NewString()
			if err := saveTo(path, cfg); err != nil {
				return cfg, err
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to the config file atomically.
func Save(cfg Config) error {
	return saveTo(Path(), cfg)
}

func saveTo(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
