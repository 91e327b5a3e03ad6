package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for the XDG settings directory.
	AppName = "jcconfig"

	// LocalFile is the settings file looked up in the working directory.
	LocalFile = "jcconfig.yml"

	DefaultEnvironmentSpec  = "JCEnvironment.yml"
	DefaultShell            = "/bin/sh -c"
	DefaultCommandTimeout   = 30
	DefaultSitePrefixLength = 5
)

// Config holds the tool settings. The environment spec itself is not part of it.
type Config struct {
	EnvironmentSpec   string   `yaml:"environment_spec" toml:"environment_spec"`
	Parser            string   `yaml:"parser" toml:"parser"`
	AllowedCommands   []string `yaml:"allowed_commands" toml:"allowed_commands"`
	IntegerParameters []string `yaml:"integer_parameters" toml:"integer_parameters"`
	FloatParameters   []string `yaml:"float_parameters" toml:"float_parameters"`
	CommandTimeout    int      `yaml:"command_timeout" toml:"command_timeout"`
	Shell             string   `yaml:"shell" toml:"shell"`
	SitePrefixLength  int      `yaml:"site_prefix_length" toml:"site_prefix_length"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// DefaultAllowedCommands are read-only commands permitted in dynamic variables
// when the settings do not list any.
var DefaultAllowedCommands = []string{
	"cat",
	"date",
	"df",
	"echo",
	"grep",
	"hostname",
	"nproc",
	"uname",
	"wc",
}

// Default returns the settings used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a settings file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Discover loads the settings file named by explicit, or the first of
// ./jcconfig.yml and $XDG_CONFIG_HOME/jcconfig/config.yml that exists.
// An explicit path must exist; otherwise a missing file yields defaults.
func Discover(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}

	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("checking config file %s: %w", candidate, err)
		}
		return Load(candidate)
	}

	return Default(), nil
}

// SearchPaths lists the settings locations tried by Discover, in order.
func SearchPaths() []string {
	return []string{
		LocalFile,
		filepath.Join(xdg.ConfigHome, AppName, "config.yml"),
	}
}

func (c *Config) applyDefaults() {
	if c.EnvironmentSpec == "" {
		c.EnvironmentSpec = DefaultEnvironmentSpec
	}
	if c.Parser == "" {
		c.Parser = "auto"
	}
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = append([]string(nil), DefaultAllowedCommands...)
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.Shell == "" {
		c.Shell = DefaultShell
	}
	if c.SitePrefixLength == 0 {
		c.SitePrefixLength = DefaultSitePrefixLength
	}
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Parser) {
	case "auto", "yaml", "yml", "toml", "indent":
	default:
		return fmt.Errorf("parser must be one of auto, yaml, toml, indent: %q", c.Parser)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative: %d", c.CommandTimeout)
	}
	if c.SitePrefixLength < 0 {
		return fmt.Errorf("site_prefix_length must not be negative: %d", c.SitePrefixLength)
	}
	if len(strings.Fields(c.Shell)) == 0 {
		return fmt.Errorf("shell is required")
	}

	seen := make(map[string]struct{})
	for _, name := range c.IntegerParameters {
		seen[name] = struct{}{}
	}
	for _, name := range c.FloatParameters {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%s listed in both integer_parameters and float_parameters", name)
		}
	}

	return nil
}

// Timeout returns the command timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}
