package imgcli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CommandDefaults carries per-command default flag values from the config
// file. Parameter values are inlined next to the command name:
//
//	commands:
//	  - name: resize
//	    width: 800
type CommandDefaults struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

// HistoryConfig enables the batch run history sink.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config holds application-wide defaults for generated commands. All fields
// are optional; zero values fall back to built-in defaults.
type Config struct {
	ImageGlob         string            `yaml:"imageGlob"`
	TransformGlob     string            `yaml:"transformGlob"`
	Overwrite         string            `yaml:"overwrite" validate:"omitempty,oneof=always never prompt"`
	CreateDirs        *bool             `yaml:"createDirs"`
	OutputTemplate    string            `yaml:"outputTemplate"`
	SVGFallbackWidth  int               `yaml:"svgFallbackWidth" validate:"gte=0"`
	SVGFallbackHeight int               `yaml:"svgFallbackHeight" validate:"gte=0"`
	History           HistoryConfig     `yaml:"history"`
	Commands          []CommandDefaults `yaml:"commands"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ImageGlob:      defaultImageGlob,
		TransformGlob:  defaultTransformGlob,
		Overwrite:      "always",
		OutputTemplate: defaultOutputTemplate,
	}
}

// LoadConfig loads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := paramsValidator.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	if err := validateCommandDefaults(config.Commands); err != nil {
		return nil, fmt.Errorf("invalid command configuration: %w", err)
	}

	return &config, nil
}

// validateCommandDefaults ensures all per-command entries have required fields
func validateCommandDefaults(commands []CommandDefaults) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command defaults at index %d have empty name", i)
		}
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}
	return nil
}

// CommandParams returns the configured default flag values for a command,
// or nil when the config carries none.
func (c *Config) CommandParams(name string) map[string]any {
	for _, cmd := range c.Commands {
		if cmd.Name == name {
			return cmd.Params
		}
	}
	return nil
}

// commandOptions derives the option baseline a command inherits from the
// config. Explicit CommandOption arguments are applied on top.
func (c *Config) commandOptions(name string) []CommandOption {
	opts := []CommandOption{}
	if c.ImageGlob != "" {
		opts = append(opts, WithImageGlob(c.ImageGlob))
	}
	if c.TransformGlob != "" {
		opts = append(opts, WithTransformGlob(c.TransformGlob))
	}
	if c.OutputTemplate != "" {
		opts = append(opts, WithOutputTemplate(c.OutputTemplate))
	}
	if policy, err := ParseOverwritePolicy(c.Overwrite); err == nil {
		opts = append(opts, WithOverwrite(policy))
	}
	if c.CreateDirs != nil {
		opts = append(opts, WithCreateDirs(*c.CreateDirs))
	}
	if params := c.CommandParams(name); params != nil {
		opts = append(opts, WithDefaults(params))
	}
	return opts
}
