// Package config loads archcheck configuration from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultOutputDir is where the report is written unless configured.
const DefaultOutputDir = "build/checkArchitecture"

// Config represents the check configuration.
type Config struct {
	OutputDir string      `yaml:"output_dir" toml:"output_dir" validate:"required"`
	LogLevel  string      `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	Exclude   []string    `yaml:"exclude" toml:"exclude" validate:"dive,required,glob"`
	Markers   Markers     `yaml:"markers" toml:"markers"`
	Checks    Checks      `yaml:"checks" toml:"checks"`
	Slices    SliceConfig `yaml:"slices" toml:"slices"`
	Rules     []Rule      `yaml:"rules" toml:"rules" validate:"dive"`
}

// Markers names the annotation and marker types the built-in rules look
// for. They are opaque qualified names.
type Markers struct {
	Bean                     string   `yaml:"bean" toml:"bean" validate:"required"`
	Lazy                     string   `yaml:"lazy" toml:"lazy" validate:"required"`
	BeanPostProcessor        string   `yaml:"bean_post_processor" toml:"bean_post_processor" validate:"required"`
	BeanFactoryPostProcessor string   `yaml:"bean_factory_post_processor" toml:"bean_factory_post_processor" validate:"required"`
	SafeParameterTypes       []string `yaml:"safe_parameter_types" toml:"safe_parameter_types" validate:"dive,required"`
}

// Checks toggles the built-in rules.
type Checks struct {
	SliceCycles           bool `yaml:"slice_cycles" toml:"slice_cycles"`
	PostProcessors        bool `yaml:"post_processors" toml:"post_processors"`
	FactoryPostProcessors bool `yaml:"factory_post_processors" toml:"factory_post_processors"`
}

// SliceConfig controls how types are grouped for cycle detection.
type SliceConfig struct {
	// Pattern is a doublestar glob over dotted package names.
	Pattern string `yaml:"pattern" toml:"pattern" validate:"required,glob"`
	// Depth truncates packages to their first Depth segments; 0 keeps the
	// full package.
	Depth int `yaml:"depth" toml:"depth" validate:"gte=0"`
	// References also counts classes referenced from compiled code.
	References bool `yaml:"references" toml:"references"`
	// MaxDependencies bounds the dependencies listed per cycle step.
	MaxDependencies int `yaml:"max_dependencies" toml:"max_dependencies" validate:"gte=1"`
}

// Rule is a declarative element rule.
type Rule struct {
	Name       string  `yaml:"name" toml:"name" validate:"required"`
	Elements   string  `yaml:"elements" toml:"elements" validate:"oneof=classes methods fields parameters"`
	That       Matcher `yaml:"that" toml:"that"`
	Should     Matcher `yaml:"should" toml:"should"`
	AllowEmpty bool    `yaml:"allow_empty" toml:"allow_empty"`
	Because    string  `yaml:"because" toml:"because"`
	Priority   string  `yaml:"priority" toml:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
}

// Matcher is a conjunction of simple element tests. Unset fields are
// ignored.
type Matcher struct {
	AnnotatedWith       string `yaml:"annotated_with" toml:"annotated_with"`
	NotAnnotatedWith    string `yaml:"not_annotated_with" toml:"not_annotated_with"`
	RawTypeAssignableTo string `yaml:"raw_type_assignable_to" toml:"raw_type_assignable_to"`
	Static              *bool  `yaml:"static" toml:"static"`
	NoParameters        bool   `yaml:"no_parameters" toml:"no_parameters"`
	NameMatching        string `yaml:"name_matching" toml:"name_matching" validate:"omitempty,glob"`
}

// Empty reports whether no test is set.
func (m Matcher) Empty() bool {
	return m == Matcher{}
}

// Default returns the configuration used when no file is given. The marker
// names are those of the Spring Framework.
func Default() *Config {
	return &Config{
		OutputDir: DefaultOutputDir,
		LogLevel:  "info",
		Markers: Markers{
			Bean:                     "org.springframework.context.annotation.Bean",
			Lazy:                     "org.springframework.context.annotation.Lazy",
			BeanPostProcessor:        "org.springframework.beans.factory.config.BeanPostProcessor",
			BeanFactoryPostProcessor: "org.springframework.beans.factory.config.BeanFactoryPostProcessor",
			SafeParameterTypes: []string{
				"org.springframework.beans.factory.ObjectProvider",
				"org.springframework.context.ApplicationContext",
				"org.springframework.core.env.Environment",
			},
		},
		Checks: Checks{
			SliceCycles:           true,
			PostProcessors:        true,
			FactoryPostProcessors: true,
		},
		Slices: SliceConfig{
			Pattern:         "**",
			MaxDependencies: 20,
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml and .yml for YAML, .toml for TOML. Environment overrides are
// applied last and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		return toml.Unmarshal(data, cfg)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

// applyEnvOverrides lets the build system relocate the report without
// editing the config file.
func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("ARCHCHECK_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}
	if level := os.Getenv("ARCHCHECK_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Patterns use dots between segments; doublestar wants slashes.
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(strings.ReplaceAll(fl.Field().String(), ".", "/"))
	})
	return v
}

// Validate checks field constraints and rules that cannot be expressed as
// tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var errs []error
	for i, r := range c.Rules {
		if r.Should.Empty() {
			errs = append(errs, fmt.Errorf("rule %d (%s): should is empty", i, r.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
