package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/archive-go/internal/config"
	zlog "github.com/lk2023060901/archive-go/pkg/log"
	"github.com/lk2023060901/archive-go/pkg/metrics"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
	zviper "github.com/lk2023060901/archive-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./archive.yaml"
	configPathEnv     = "ARCHIVE_CONFIG_FILE_PATH"
)

// Application owns the configuration and the loggers of the archive CLI.
type Application struct {
	configPath string
	registry   *prometheus.Registry

	cfg     *config.Config
	loggers map[string]*zlog.MLogger
	undo    func()
}

// New creates an Application. configPath is the value of the --config
// flag and may be empty.
func New(configPath string) *Application {
	return &Application{
		configPath: configPath,
		registry:   prometheus.NewRegistry(),
	}
}

// Run loads configuration and sets up logging, GOMAXPROCS and metrics.
// The config file is found with the following priority:
//  1. CLI: --config <path>
//  2. Env: ARCHIVE_CONFIG_FILE_PATH
//  3. Default: ./archive.yaml, skipped when missing
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		zlog.Info(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		zlog.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	a.undo = undo

	metrics.Register(a.registry)
	return nil
}

// Stop restores GOMAXPROCS and flushes the loggers.
func (a *Application) Stop() {
	if a.undo != nil {
		a.undo()
	}
	_ = zlog.Sync()
}

// Config returns the loaded configuration, nil before Run.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Registry holds the metrics of this process.
func (a *Application) Registry() *prometheus.Registry {
	return a.registry
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return zlog.With(zlog.FieldModule(name))
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

func (a *Application) resolveConfigPath() (path string, required bool) {
	if a.configPath != "" {
		return a.configPath, true
	}
	if envPath := strings.TrimSpace(os.Getenv(configPathEnv)); envPath != "" {
		return envPath, true
	}
	return defaultConfigPath, false
}

func (a *Application) loadConfig() (*config.Config, error) {
	v := zviper.New()
	config.SetDefaults(v)
	v.AutomaticEnv(config.EnvPrefix)

	path, required := a.resolveConfigPath()
	if _, err := os.Stat(path); err == nil || required {
		if err := v.LoadFile(path); err != nil {
			return nil, errors.Wrapf(merr.WrapErrConfigInvalid("config", path, err.Error()), "load config file %q", path)
		}
	}
	return config.Load(v)
}

// Module loggers go first, InitLogger also resets the leveled loggers
// that back the global one.
func (a *Application) initLogging() error {
	if err := a.initModuleLoggers(); err != nil {
		return err
	}
	return a.initGlobalLogger()
}

// initGlobalLogger configures the process wide logger from the log
// section, which ARCHIVE_LOG_* variables override. ARCHIVE_LOG_ENABLE=false
// discards every output.
func (a *Application) initGlobalLogger() error {
	cfg := a.cfg.Log
	if !getenvBool("ARCHIVE_LOG_ENABLE", true) {
		cfg.Stdout = false
		cfg.Stderr = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(&cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggers creates named loggers from the "logging" section:
//
//	logging:
//	  codec:
//	    level: debug
//	    file:
//	      rootpath: ./logs
//	      filename: codec.log
func (a *Application) initModuleLoggers() error {
	if len(a.cfg.Logging) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(a.cfg.Logging))
	for name, lc := range a.cfg.Logging {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}

	return nil
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
