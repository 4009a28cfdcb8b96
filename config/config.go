// Package config contains the configuration of the version store and its command line.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/interview"
	"github.com/merelin/diffa-sub000/log"
	"github.com/merelin/diffa-sub000/metrics"
	"github.com/merelin/diffa-sub000/vstore"
)

const defaultDBFileName = "versions.db"

// Config defines the top level configuration.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Logging    LoggerConfig     `mapstructure:"logging"`
	Store      vstore.Config    `mapstructure:"store"`
	Interview  interview.Config `mapstructure:"interview"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Endpoints  []Endpoint       `mapstructure:"endpoints"`
}

// BaseConfig defines the storage and the digests.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	DB                string `mapstructure:"db"`
	DBConnections     int    `mapstructure:"db-connections"`
	DBLatencyMetering bool   `mapstructure:"db-latency-metering"`

	// Hash is one of hash.Names(), empty selects md5.
	Hash string `mapstructure:"hash"`

	LogEncoder string `mapstructure:"log-encoder"`
}

// MetricsConfig configures the prometheus endpoint and the push gateway.
// Zero port disables the endpoint, empty push url disables pushing.
type MetricsConfig struct {
	Port               int `mapstructure:"port"`
	metrics.PushConfig `mapstructure:",squash"`
}

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	AppLoggerLevel         string `mapstructure:"app"`
	StoreLoggerLevel       string `mapstructure:"store"`
	InterviewLoggerLevel   string `mapstructure:"interview"`
	ParticipantLoggerLevel string `mapstructure:"participant"`
	DatabaseLoggerLevel    string `mapstructure:"db"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfig: BaseConfig{
			DB:            defaultDBFileName,
			DBConnections: 16,
			Hash:          hash.NameMD5,
			LogEncoder:    log.ConsoleEncoding,
		},
		Logging:   defaultLoggingConfig(),
		Store:     vstore.DefaultConfig(),
		Interview: interview.DefaultConfig(),
		Metrics: MetricsConfig{
			PushConfig: metrics.PushConfig{Period: time.Minute},
		},
	}
}

func defaultLoggingConfig() LoggerConfig {
	level := log.DefaultLevel().String()
	return LoggerConfig{
		AppLoggerLevel:         level,
		StoreLoggerLevel:       level,
		InterviewLoggerLevel:   level,
		ParticipantLoggerLevel: level,
		DatabaseLoggerLevel:    level,
	}
}

// LoadConfig reads the config file into vip. An empty location leaves vip untouched.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		return nil
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", fileLocation, err)
	}
	return nil
}

// Unmarshal decodes settings of vip over the defaults and validates the result.
func Unmarshal(vip *viper.Viper) (*Config, error) {
	conf := DefaultConfig()
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("unmarshal viper: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Load reads the config file at path, if any, and decodes it over the defaults.
func Load(path string) (*Config, error) {
	vip := viper.New()
	if err := LoadConfig(path, vip); err != nil {
		return nil, err
	}
	return Unmarshal(vip)
}

// Validate checks the configuration without opening anything.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.DB == "" {
		errs = append(errs, errors.New("main.db: empty database location"))
	}
	if _, err := hash.ByName(cfg.Hash); err != nil {
		errs = append(errs, fmt.Errorf("main.hash: %w", err))
	}
	if _, err := log.Encoder(cfg.LogEncoder); err != nil {
		errs = append(errs, fmt.Errorf("main.log-encoder: %w", err))
	}
	if _, err := log.DecodeLevels(cfg.Logging); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if cfg.Store.DefaultMaxSliceSize < 0 {
		errs = append(errs, fmt.Errorf("store.default-max-slice-size: negative %d", cfg.Store.DefaultMaxSliceSize))
	}
	if cfg.Interview.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("interview.buffer-size: must be positive, got %d", cfg.Interview.BufferSize))
	}
	if cfg.Interview.AnswerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("interview.answer-timeout: must be positive, got %s", cfg.Interview.AnswerTimeout))
	}
	if cfg.Metrics.URL != "" && cfg.Metrics.Period <= 0 {
		errs = append(errs, fmt.Errorf("metrics.push-period: must be positive, got %s", cfg.Metrics.Period))
	}
	seen := make(map[string]struct{}, len(cfg.Endpoints))
	for i := range cfg.Endpoints {
		e := &cfg.Endpoints[i]
		if _, ok := seen[e.ID]; ok {
			errs = append(errs, fmt.Errorf("endpoints: duplicate endpoint %q", e.ID))
			continue
		}
		seen[e.ID] = struct{}{}
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Endpoint returns the configuration of the endpoint.
func (cfg *Config) Endpoint(id string) (*Endpoint, bool) {
	for i := range cfg.Endpoints {
		if cfg.Endpoints[i].ID == id {
			return &cfg.Endpoints[i], true
		}
	}
	return nil, false
}
