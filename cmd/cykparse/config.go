package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ling0322/pcfg"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Config holds the settings shared by all subcommands. It is read from an
// optional YAML file; command line flags take precedence.
type Config struct {
	Grammar   string `yaml:"grammar"`
	Format    string `yaml:"format"`
	Start     string `yaml:"start"`
	Mode      string `yaml:"mode"`
	Workers   int    `yaml:"workers"`
	Lowercase bool   `yaml:"lowercase"`
	Output    string `yaml:"output"`
}

// DefaultConfig returns the settings used when neither file nor flags say
// otherwise
func DefaultConfig() Config {
	return Config{
		Format:  "auto",
		Mode:    "auto",
		Workers: 1,
		Output:  "text",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}

// bindFlags registers the config flags on flags, storing values into c
func (c *Config) bindFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&c.Grammar, "grammar", "g", c.Grammar, "grammar file")
	flags.StringVarP(&c.Format, "format", "f", c.Format, "grammar format (auto, pcfg, treebank)")
	flags.StringVarP(&c.Start, "start", "s", c.Start, "target symbol (default: the grammar's start symbol)")
	flags.StringVarP(&c.Mode, "mode", "m", c.Mode, "disambiguation mode (auto, viterbi, exhaustive)")
	flags.IntVarP(&c.Workers, "workers", "w", c.Workers, "goroutines filling one chart row")
	flags.BoolVar(&c.Lowercase, "lowercase", c.Lowercase, "lower-case input before tokenizing")
	flags.StringVarP(&c.Output, "output", "o", c.Output, "output format (text, json, yaml)")
}

// merge returns base overridden by every flag of c the user set explicitly
func (c Config) merge(base Config, flags *pflag.FlagSet) Config {
	if flags.Changed("grammar") {
		base.Grammar = c.Grammar
	}
	if flags.Changed("format") {
		base.Format = c.Format
	}
	if flags.Changed("start") {
		base.Start = c.Start
	}
	if flags.Changed("mode") {
		base.Mode = c.Mode
	}
	if flags.Changed("workers") {
		base.Workers = c.Workers
	}
	if flags.Changed("lowercase") {
		base.Lowercase = c.Lowercase
	}
	if flags.Changed("output") {
		base.Output = c.Output
	}
	return base
}

// Validate checks the values of c
func (c Config) Validate() error {
	if c.Grammar == "" {
		return fmt.Errorf("no grammar given, use --grammar or the grammar key of the config file")
	}
	if _, err := c.grammarFormat(); err != nil {
		return err
	}
	if _, err := pcfg.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format (%s)", c.Output)
	}
	return nil
}

// grammarFormat resolves the auto format from the grammar file extension:
// .pcfg and .bnf files are text grammars, anything else a treebank export
func (c Config) grammarFormat() (string, error) {
	switch c.Format {
	case "pcfg", "treebank":
		return c.Format, nil
	case "auto", "":
		switch strings.ToLower(filepath.Ext(c.Grammar)) {
		case ".pcfg", ".bnf":
			return "pcfg", nil
		}
		return "treebank", nil
	}
	return "", fmt.Errorf("unknown grammar format: %s", c.Format)
}
