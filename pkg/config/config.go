// Package config loads binforge settings from a YAML or JSON file and
// BINFORGE_ environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-binforge/pkg/builder"
	"github.com/mattsolo1/grove-binforge/pkg/catalog"
)

const (
	EnvPrefix        = "BINFORGE"
	DefaultBuildDir  = "./build"
	DefaultOutputDir = "./binaries"
)

// BackendConfig tunes the default build backends.
type BackendConfig struct {
	Configuration string `mapstructure:"configuration"`
	Platform      string `mapstructure:"platform"`
	Framework     string `mapstructure:"framework"`
	Runtime       string `mapstructure:"runtime"`
	Restore       bool   `mapstructure:"restore"`
	Publish       bool   `mapstructure:"publish"`
}

// Config is the resolved configuration.
type Config struct {
	BuildDir     string        `mapstructure:"build_dir"`
	OutputDir    string        `mapstructure:"output_dir"`
	Verbose      bool          `mapstructure:"verbose"`
	Branch       string        `mapstructure:"branch"`
	EnabledTools []string      `mapstructure:"enabled_tools"`
	CatalogFile  string        `mapstructure:"catalog_file"`
	Backend      BackendConfig `mapstructure:"backend"`

	// Tools are read straight from the file; viper folds map keys to lower
	// case, which would rename tools and their environment variables.
	Tools map[string]catalog.Entry `mapstructure:"-"`

	// Path is the file the config was read from, empty when none was used.
	Path string `mapstructure:"-"`
}

// Load reads path (optional) and applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}
	return decode(v, path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("build_dir", DefaultBuildDir)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("verbose", false)
	v.SetDefault("branch", "")
	v.SetDefault("enabled_tools", []string{})
	v.SetDefault("catalog_file", "")
	v.SetDefault("backend.configuration", "Release")
	v.SetDefault("backend.platform", "")
	v.SetDefault("backend.framework", "")
	v.SetDefault("backend.runtime", "")
	v.SetDefault("backend.restore", false)
	v.SetDefault("backend.publish", false)
	return v
}

func decode(v *viper.Viper, path string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.Path = path

	if path != "" {
		tools, err := readTools(path)
		if err != nil {
			return nil, err
		}
		cfg.Tools = tools
	}

	cfg.EnabledTools = trimAll(cfg.EnabledTools)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readTools(path string) (map[string]catalog.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var doc struct {
		Tools map[string]catalog.Entry `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tools in %s: %w", path, err)
	}
	return doc.Tools, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BuildDir) == "" {
		return fmt.Errorf("build_dir cannot be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	for name, e := range c.Tools {
		if _, err := catalog.NewToolSpec(name, e); err != nil {
			return fmt.Errorf("tools: %w", err)
		}
	}
	return nil
}

// Catalog returns the effective catalog: the compiled-in defaults (or the
// catalog_file document instead), with the tools section applied on top.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	base := catalog.Default()
	if c.CatalogFile != "" {
		loaded, err := catalog.LoadFile(c.resolve(c.CatalogFile))
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	if len(c.Tools) == 0 {
		return base, nil
	}
	return base.Override(c.Tools)
}

// Selection returns the tools a build should run: args when given, else the
// enabled_tools list. Nil means the whole catalog.
func (c *Config) Selection(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(c.EnabledTools) > 0 {
		return append([]string(nil), c.EnabledTools...)
	}
	return nil
}

// BackendOptions converts the backend section to builder options.
func (c *Config) BackendOptions() builder.Options {
	return builder.Options{
		Configuration: c.Backend.Configuration,
		Platform:      c.Backend.Platform,
		Framework:     c.Backend.Framework,
		Runtime:       c.Backend.Runtime,
		Restore:       c.Backend.Restore,
		Publish:       c.Backend.Publish,
	}
}

// resolve interprets p relative to the config file's directory.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
