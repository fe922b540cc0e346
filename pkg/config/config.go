// Package config loads dexql settings from an optional YAML file and DEXQL_*
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"dexql/pkg/analysis"
	dberror "dexql/pkg/error"
	"dexql/pkg/execution"
	"dexql/pkg/execution/join"
	"dexql/pkg/logging"
	"dexql/pkg/planner"
)

// EnvPrefix prefixes every environment override, e.g.
// DEXQL_EXECUTION_PAGE_SIZE.
const EnvPrefix = "DEXQL"

type Config struct {
	Session struct {
		SearchPath       []string `mapstructure:"search_path"`
		ColumnResolution string   `mapstructure:"column_resolution"`
	} `mapstructure:"session"`

	Execution struct {
		PageSize            int           `mapstructure:"page_size"`
		LeftCardinalityHint int           `mapstructure:"left_cardinality_hint"`
		MemoryLimitBytes    int64         `mapstructure:"memory_limit_bytes"`
		LoadTimeout         time.Duration `mapstructure:"load_timeout"`
		JoinAlgorithm       string        `mapstructure:"join_algorithm"`
		Concurrency         int           `mapstructure:"concurrency"`
	} `mapstructure:"execution"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Output string `mapstructure:"output"`
	} `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.search_path", []string{"doc"})
	v.SetDefault("session.column_resolution", analysis.ResolutionStrict.String())

	v.SetDefault("execution.page_size", execution.DefaultPageSize)
	v.SetDefault("execution.left_cardinality_hint", 0)
	v.SetDefault("execution.memory_limit_bytes", 0)
	v.SetDefault("execution.load_timeout", time.Duration(0))
	v.SetDefault("execution.join_algorithm", join.Auto.String())
	v.SetDefault("execution.concurrency", 0)

	v.SetDefault("logging.level", string(logging.LevelInfo))
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// Load reads path, when not empty, over the defaults and applies DEXQL_*
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the components would refuse later.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "invalid configuration").
			WithDetail(format, args...)
	}
	if _, err := analysis.ParseColumnResolution(c.Session.ColumnResolution); err != nil {
		return err
	}
	if _, err := join.ParseAlgorithm(c.Execution.JoinAlgorithm); err != nil {
		return invalid("execution.join_algorithm: %v", err)
	}
	switch {
	case c.Execution.PageSize <= 0:
		return invalid("execution.page_size must be positive, got %d", c.Execution.PageSize)
	case c.Execution.LeftCardinalityHint < 0:
		return invalid("execution.left_cardinality_hint must not be negative, got %d", c.Execution.LeftCardinalityHint)
	case c.Execution.MemoryLimitBytes < 0:
		return invalid("execution.memory_limit_bytes must not be negative, got %d", c.Execution.MemoryLimitBytes)
	case c.Execution.LoadTimeout < 0:
		return invalid("execution.load_timeout must not be negative, got %s", c.Execution.LoadTimeout)
	case c.Execution.Concurrency < 0:
		return invalid("execution.concurrency must not be negative, got %d", c.Execution.Concurrency)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return invalid("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// AnalysisSession is the analyzer session the settings describe.
func (c *Config) AnalysisSession() analysis.Session {
	policy, _ := analysis.ParseColumnResolution(c.Session.ColumnResolution)
	path := c.Session.SearchPath
	if len(path) == 0 {
		path = analysis.DefaultSession().SearchPath
	}
	return analysis.Session{SearchPath: path, ColumnResolution: policy}
}

func (c *Config) PlannerOptions() planner.Options {
	algorithm, _ := join.ParseAlgorithm(c.Execution.JoinAlgorithm)
	return planner.Options{
		PageSize:         c.Execution.PageSize,
		LeftSizeHint:     c.Execution.LeftCardinalityHint,
		MemoryLimitBytes: c.Execution.MemoryLimitBytes,
		Algorithm:        algorithm,
	}
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.Logging.Level),
		Format:     strings.ToLower(c.Logging.Format),
		OutputPath: c.Logging.Output,
	}
}
