// Package config loads HostSnap configuration from defaults, an optional
// YAML file and HOSTSNAP_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// HOSTSNAP_SERVER_PORT for server.port.
const EnvPrefix = "HOSTSNAP"

// Config is a read-only view over a viper instance. The zero value and a
// Config wrapping nil viper both return zero values for every key.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty Config.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Viper returns the underlying instance, creating an empty one if needed.
func (c *Config) Viper() *viper.Viper {
	if c == nil || c.v == nil {
		return viper.New()
	}
	return c.v
}

func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	if c == nil || c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole tree into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("log.development", false)

	v.SetDefault("plugins.hostmetrics.enabled", true)
	v.SetDefault("plugins.hostmetrics.core_concurrency", 1)
	v.SetDefault("plugins.hostmetrics.process_settle_interval", "0s")
	v.SetDefault("plugins.hostmetrics.rate_limit", 2.0)
	v.SetDefault("plugins.hostmetrics.rate_burst", 4)
}

// Load builds a viper instance from defaults, the YAML file at path (if
// non-empty) and the environment. A missing file named explicitly is an
// error; with an empty path, hostsnap.yaml is looked up in the working
// directory and /etc/hostsnap and silently skipped if absent.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("hostsnap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/hostsnap")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Addr returns the listen address from server.host and server.port.
func Addr(c *Config) string {
	host := c.GetString("server.host")
	port := c.GetString("server.port")
	if port == "" {
		port = "8080"
	}
	return host + ":" + port
}
