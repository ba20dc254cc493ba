// Package config loads the relmap.yaml project configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/compiler/gen"
	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/dialect/rdbms"
)

// EnvPrefix is the prefix of environment overrides, as in
// RELMAP_STORAGE_DSN for storage.dsn.
const EnvPrefix = "RELMAP"

// Source kinds.
const (
	SourceYAML     = "yaml"
	SourcePackages = "packages"
)

// Config represents the relmap configuration
type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Gen      GenConfig      `mapstructure:"gen"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// SourcesConfig selects where type descriptors come from.
type SourcesConfig struct {
	Kind string `mapstructure:"kind"`
	// Paths lists descriptor files or glob patterns for the yaml kind.
	Paths []string `mapstructure:"paths"`
	// Patterns lists package patterns for the packages kind.
	Patterns []string `mapstructure:"patterns"`
	Dir      string   `mapstructure:"dir"`
}

// StorageConfig represents the relational storage configuration
type StorageConfig struct {
	Dialect     string `mapstructure:"dialect"`
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	Schema      string `mapstructure:"schema"`
	TablePrefix string `mapstructure:"table_prefix"`
	Pluralize   bool   `mapstructure:"pluralize"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// GenConfig represents code generation configuration
type GenConfig struct {
	Package string `mapstructure:"package"`
	Output  string `mapstructure:"output"`
	Workers int    `mapstructure:"workers"`
}

// GraphQLConfig represents GraphQL export configuration
type GraphQLConfig struct {
	Output string `mapstructure:"output"`
	Query  bool   `mapstructure:"query"`
}

// SnapshotConfig represents snapshot configuration
type SnapshotConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads the configuration from path, or from relmap.yml or relmap.yaml
// in the working directory when path is empty. A .env file in the working
// directory is loaded into the environment first; variables already set
// take precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.kind", SourceYAML)
	v.SetDefault("sources.paths", []string{"mapping/*.yaml"})
	v.SetDefault("sources.patterns", []string{"./..."})
	v.SetDefault("sources.dir", ".")
	v.SetDefault("storage.dialect", string(rdbms.Postgres))
	v.SetDefault("storage.driver", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.schema", "")
	v.SetDefault("storage.table_prefix", "")
	v.SetDefault("storage.pluralize", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("gen.package", "mapping")
	v.SetDefault("gen.output", "mapping")
	v.SetDefault("gen.workers", 0)
	v.SetDefault("graphql.output", "relmap.graphql")
	v.SetDefault("graphql.query", false)
	v.SetDefault("snapshot.path", ".relmap.snapshot")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Sources.Kind {
	case SourceYAML, SourcePackages:
	default:
		return fmt.Errorf("sources.kind must be %q or %q, got: %q", SourceYAML, SourcePackages, c.Sources.Kind)
	}
	if _, err := rdbms.ParseDialect(c.Storage.Dialect); err != nil {
		return fmt.Errorf("storage.dialect: %w", err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Gen.Workers < 0 {
		return fmt.Errorf("gen.workers must not be negative, got: %d", c.Gen.Workers)
	}
	return nil
}

// Dialect returns the storage dialect.
func (c *Config) Dialect() rdbms.Dialect {
	d, _ := rdbms.ParseDialect(c.Storage.Dialect)
	return d
}

// DriverName returns the database/sql driver, defaulting to the driver of
// the dialect.
func (c *Config) DriverName() string {
	if c.Storage.Driver != "" {
		return c.Storage.Driver
	}
	return c.Dialect().DriverName()
}

// Logger builds the zap logger.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Source returns the configured type descriptor source. Glob patterns in
// sources.paths must match at least one file.
func (c *Config) Source() (load.Source, error) {
	if c.Sources.Kind == SourcePackages {
		return load.NewPackagesSource(c.Sources.Dir, c.Sources.Patterns...), nil
	}
	paths, err := c.DescriptorFiles()
	if err != nil {
		return nil, err
	}
	return load.NewYAMLSource(paths...), nil
}

// DescriptorFiles expands sources.paths.
func (c *Config) DescriptorFiles() ([]string, error) {
	var paths []string
	for _, pattern := range c.Sources.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("sources.paths: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("sources.paths: no file matches %q", pattern)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// NewLoader returns a relational loader for one mapping graph.
func (c *Config) NewLoader(log *zap.Logger) *rdbms.Loader {
	return rdbms.NewLoader(c.Dialect(),
		rdbms.WithLogger(log),
		rdbms.WithTablePrefix(c.Storage.TablePrefix),
		rdbms.WithPluralize(c.Storage.Pluralize),
		rdbms.WithSchemaName(c.Storage.Schema),
	)
}

// Mapping returns a mapping configuration over the configured source and
// the loader it applies.
func (c *Config) Mapping(ctx context.Context, log *zap.Logger) (*relmap.Configuration, *rdbms.Loader, error) {
	src, err := c.Source()
	if err != nil {
		return nil, nil, err
	}
	l := c.NewLoader(log)
	m := relmap.New(src,
		relmap.WithContext(ctx),
		relmap.WithLogger(log),
		relmap.WithPersistenceModelLoader(l),
	)
	return m, l, nil
}

// GenOptions returns the generator options.
func (c *Config) GenOptions(log *zap.Logger) []gen.Option {
	opts := []gen.Option{
		gen.WithPackage(c.Gen.Package),
		gen.WithTarget(c.Gen.Output),
		gen.WithLogger(log),
	}
	if c.Gen.Workers > 0 {
		opts = append(opts, gen.WithWorkers(c.Gen.Workers))
	}
	return opts
}
