// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vault-harvest-lab/internal/domain"
)

// Configuration holds all configuration for the harvest lab.
type Configuration struct {
	Backend   BackendConfig   `yaml:"backend,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Scenarios ScenariosConfig `yaml:"scenarios,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// BackendConfig selects and parameterizes the scenario target.
type BackendConfig struct {
	Kind         string `yaml:"kind,omitempty"`         // sim, node
	RPCEndpoint  string `yaml:"rpcEndpoint,omitempty"`  // node only
	WSEndpoint   string `yaml:"wsEndpoint,omitempty"`   // node only, optional
	Decimals     uint8  `yaml:"decimals,omitempty"`     // sim only
	YieldBpsDay  uint64 `yaml:"yieldBpsDay,omitempty"`  // sim only
	ResidualDust int64  `yaml:"residualDust,omitempty"` // sim only
}

// StorageConfig holds database connection strings. Empty DSNs disable the
// corresponding store.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgresDsn,omitempty"`
	ClickHouseDSN string `yaml:"clickhouseDsn,omitempty"`
}

// ScenariosConfig selects which scenarios run and under which accounting mode.
type ScenariosConfig struct {
	Run       []string `yaml:"run,omitempty"`       // scenario IDs, empty = all predefined
	Mode      string   `yaml:"mode,omitempty"`      // exact, slippage-tolerant
	Tolerance float64  `yaml:"tolerance,omitempty"` // slippage-tolerant only
}

// MetricsConfig holds the Prometheus endpoint configuration. An empty listen
// address disables the endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // json, console
}

// Default returns a configuration suitable for running the simulator backend
// with in-memory stores.
func Default() *Configuration {
	conf := &Configuration{}
	conf.applyDefaults()
	return conf
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	if err := viper.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.applyDefaults()
	return &configuration, nil
}

func (conf *Configuration) applyDefaults() {
	if conf.Backend.Kind == "" {
		conf.Backend.Kind = "sim"
	}
	if conf.Backend.Decimals == 0 {
		conf.Backend.Decimals = 6
	}
	if conf.Scenarios.Mode == "" {
		conf.Scenarios.Mode = "exact"
	}
}

// Validate checks the configuration for inconsistent settings.
func (conf *Configuration) Validate() error {
	switch conf.Backend.Kind {
	case "sim":
	case "node":
		if conf.Backend.RPCEndpoint == "" {
			return fmt.Errorf("backend kind %q requires rpcEndpoint", conf.Backend.Kind)
		}
	default:
		return fmt.Errorf("unknown backend kind: %s", conf.Backend.Kind)
	}

	switch conf.Scenarios.Mode {
	case "exact":
	case "slippage-tolerant":
		if conf.Scenarios.Tolerance <= 0 {
			return fmt.Errorf("mode %q requires a positive tolerance", conf.Scenarios.Mode)
		}
	default:
		return fmt.Errorf("unknown accounting mode: %s", conf.Scenarios.Mode)
	}
	return nil
}

// AccountingMode maps the configured mode onto the domain type.
func (conf *Configuration) AccountingMode() domain.AccountingMode {
	if conf.Scenarios.Mode == "slippage-tolerant" {
		return domain.SlippageTolerant(conf.Scenarios.Tolerance)
	}
	return domain.Exact()
}

// NewLogger creates a zap logger based on the logging configuration.
func NewLogger(loggingConfig LoggingConfig) (*zap.Logger, error) {
	level := loggingConfig.Level
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	return zapConfig.Build()
}
