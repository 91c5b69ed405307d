package viper

import (
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"
)

// Config wraps a spf13/viper instance behind a small YAML/JSON loader.
type Config struct {
	v *spfviper.Viper
}

// New returns an empty Config. Defaults and environment bindings may be
// set before or after LoadFile.
func New() *Config {
	return &Config{
		v: spfviper.New(),
	}
}

// LoadFile reads a YAML or JSON file into c. The type is taken from the
// extension (.yaml, .yml, .json).
func (c *Config) LoadFile(path string) error {
	if c.v == nil {
		c.v = spfviper.New()
	}

	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// viper guesses or reports a clear error on read.
	}

	return c.v.ReadInConfig()
}

// SetDefault sets the value used when no file or env var provides key.
func (c *Config) SetDefault(key string, value any) {
	if c.v == nil {
		c.v = spfviper.New()
	}
	c.v.SetDefault(key, value)
}

// AutomaticEnv makes every key readable from PREFIX_KEY environment
// variables, with dots in nested keys mapped to underscores.
func (c *Config) AutomaticEnv(prefix string) {
	if c.v == nil {
		c.v = spfviper.New()
	}
	c.v.SetEnvPrefix(prefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()
}

// Unmarshal decodes the whole configuration into dst, a pointer to a
// struct or a map.
func (c *Config) Unmarshal(dst interface{}) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(dst)
}

// UnmarshalKey decodes the sub tree under key into dst.
func (c *Config) UnmarshalKey(key string, dst interface{}) error {
	if c.v == nil {
		return nil
	}
	return c.v.UnmarshalKey(key, dst)
}

func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}
