package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

const (
	cfgFile   = "connect4-server/config.yaml"
	envPrefix = "CONNECT4_"
	// EnvConfigPath names a config file to use instead of searching XDG dirs.
	EnvConfigPath = envPrefix + "CONFIG"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	TCPAddr        string        `mapstructure:"tcp_addr" json:"tcpAddr"`
	HTTPAddr       string        `mapstructure:"http_addr" json:"httpAddr"`
	WSPingInterval time.Duration `mapstructure:"ws_ping_interval" json:"wsPingInterval"`
	WSReadTimeout  time.Duration `mapstructure:"ws_read_timeout" json:"wsReadTimeout"`
	HistorySize    int           `mapstructure:"history_size" json:"historySize"`
	BotTaunt       bool          `mapstructure:"bot_taunt" json:"botTaunt"`
	LogLevel       string        `mapstructure:"log_level" json:"logLevel"`
	LogDevelopment bool          `mapstructure:"log_development" json:"logDevelopment"`
}

func Default() Config {
	return Config{
		TCPAddr:        ":6789",
		HTTPAddr:       ":9000",
		WSPingInterval: 60 * time.Second,
		WSReadTimeout:  2 * time.Minute,
		HistorySize:    100,
		BotTaunt:       true,
		LogLevel:       "info",
	}
}

// keys lists every setting by its file and environment name.
var keys = []string{
	"tcp_addr",
	"http_addr",
	"ws_ping_interval",
	"ws_read_timeout",
	"history_size",
	"bot_taunt",
	"log_level",
	"log_development",
}

// Load builds the config from defaults, then the YAML file named by
// CONNECT4_CONFIG or found in the XDG config dirs, then CONNECT4_* variables.
// A missing file is not an error. It returns the path of the file used.
func Load() (*Config, string, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		if found, err := xdg.SearchConfigFile(cfgFile); err == nil {
			path = found
		}
	}

	raw := map[string]interface{}{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
		raw, err = parse(data)
		if err != nil {
			return nil, path, err
		}
	}
	for key, value := range envOverrides(os.Environ()) {
		raw[key] = value
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// parse reads YAML settings into a flat map.
func parse(data []byte) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalid, err)
	}
	return raw, nil
}

func envOverrides(environ []string) map[string]interface{} {
	overrides := map[string]interface{}{}
	for _, key := range keys {
		name := envPrefix + strings.ToUpper(key)
		for _, kv := range environ {
			if strings.HasPrefix(kv, name+"=") {
				overrides[key] = strings.TrimPrefix(kv, name+"=")
			}
		}
	}
	return overrides
}

// decode applies raw on top of the defaults and validates the result.
func decode(raw map[string]interface{}) (*Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.TCPAddr == "":
		return fmt.Errorf("%w: tcp_addr is empty", ErrInvalid)
	case c.HTTPAddr == "":
		return fmt.Errorf("%w: http_addr is empty", ErrInvalid)
	case c.WSPingInterval <= 0:
		return fmt.Errorf("%w: ws_ping_interval must be positive", ErrInvalid)
	case c.WSReadTimeout <= c.WSPingInterval:
		return fmt.Errorf("%w: ws_read_timeout must exceed ws_ping_interval", ErrInvalid)
	case c.HistorySize < 0:
		return fmt.Errorf("%w: history_size is negative", ErrInvalid)
	}
	return nil
}
