// Package config holds the settings of the archive CLI.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/archive-go/internal/envelope"
	"github.com/lk2023060901/archive-go/pkg/codec"
	"github.com/lk2023060901/archive-go/pkg/log"
	"github.com/lk2023060901/archive-go/pkg/util/conc"
	"github.com/lk2023060901/archive-go/pkg/util/hardware"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
	"github.com/lk2023060901/archive-go/pkg/util/typeutil"
	"github.com/lk2023060901/archive-go/pkg/util/viper"
)

// EnvPrefix prefixes environment overrides, log.level is read from
// ARCHIVE_LOG_LEVEL.
const EnvPrefix = "ARCHIVE"

type EnvelopeConfig struct {
	Enable          bool `mapstructure:"enable"`
	envelope.Config `mapstructure:",squash"`
}

// PoolConfig tunes the rendering pool.
type PoolConfig struct {
	PreAlloc bool `mapstructure:"prealloc"`
	// NonBlocking fails a render instead of queueing it on a busy pool.
	NonBlocking  bool          `mapstructure:"nonblocking"`
	Expiry       time.Duration `mapstructure:"expiry"`
	DisablePurge bool          `mapstructure:"disable_purge"`
}

type Config struct {
	Log log.Config `mapstructure:"log"`
	// Logging holds named module loggers.
	Logging map[string]log.Config `mapstructure:"logging"`
	// Formats lists the formats rendered by the CLI, in order.
	Formats  []string       `mapstructure:"formats"`
	Envelope EnvelopeConfig `mapstructure:"envelope"`
	// Workers sizes the rendering pool, 0 means one worker per core.
	Workers int        `mapstructure:"workers"`
	Pool    PoolConfig `mapstructure:"pool"`

	formats []codec.Format
}

// SetDefaults registers every key on v so environment overrides apply
// even when no file mentions them.
func SetDefaults(v *viper.Config) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.stdout", false)
	v.SetDefault("log.stderr", false)
	v.SetDefault("log.file.rootpath", "")
	v.SetDefault("log.file.filename", "")
	v.SetDefault("log.file.max-size", 300)
	v.SetDefault("formats", lo.Map(codec.Formats(), func(f codec.Format, _ int) string {
		return f.String()
	}))
	v.SetDefault("envelope.enable", false)
	v.SetDefault("envelope.compress", true)
	v.SetDefault("envelope.min_compress_size", 256)
	v.SetDefault("workers", 0)
	v.SetDefault("pool.prealloc", false)
	v.SetDefault("pool.nonblocking", false)
	v.SetDefault("pool.expiry", "0s")
	v.SetDefault("pool.disable_purge", false)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Config) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(merr.WrapErrConfigInvalid("config", "", err.Error()), "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and resolves the format list.
func (c *Config) Validate() error {
	if len(c.Formats) == 0 {
		return merr.WrapErrConfigInvalid("formats", "[]", "at least one format is required")
	}
	seen := typeutil.NewSet[codec.Format]()
	formats := make([]codec.Format, 0, len(c.Formats))
	for _, name := range c.Formats {
		f, err := codec.ParseFormat(name)
		if err != nil {
			return merr.WrapErrConfigInvalid("formats", name, "unknown format")
		}
		if seen.Contain(f) {
			return merr.WrapErrConfigInvalid("formats", name, "duplicate format")
		}
		seen.Insert(f)
		formats = append(formats, f)
	}
	if c.Workers < 0 {
		return merr.WrapErrConfigInvalid("workers", c.Workers, "must not be negative")
	}
	if c.Pool.Expiry < 0 {
		return merr.WrapErrConfigInvalid("pool.expiry", c.Pool.Expiry.String(), "must not be negative")
	}
	if c.Envelope.MinCompressSize < 0 {
		return merr.WrapErrConfigInvalid("envelope.min_compress_size", c.Envelope.MinCompressSize, "must not be negative")
	}
	c.formats = formats
	return nil
}

// FormatList returns the validated formats.
func (c *Config) FormatList() []codec.Format {
	return c.formats
}

// WorkerNum returns the pool size to use.
func (c *Config) WorkerNum() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return hardware.GetCPUNum()
}

// PoolOptions turns the pool section into conc options.
func (c *Config) PoolOptions() []conc.PoolOption {
	opts := []conc.PoolOption{
		conc.WithPreAlloc(c.Pool.PreAlloc),
		conc.WithNonBlocking(c.Pool.NonBlocking),
		conc.WithDisablePurge(c.Pool.DisablePurge),
	}
	if c.Pool.Expiry > 0 {
		opts = append(opts, conc.WithExpiryDuration(c.Pool.Expiry))
	}
	return opts
}
