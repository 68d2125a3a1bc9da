package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultAgentCommand = "opencode"
	defaultAccessMode   = "current"
)

type Config struct {
	Agent   AgentConfig   `toml:"agent"`
	Logging LoggingConfig `toml:"logging"`
}

type AgentConfig struct {
	// Command overrides the agent binary looked up on PATH.
	Command         string `toml:"command"`
	DefaultProvider string `toml:"default_provider"`
	DefaultModel    string `toml:"default_model"`
	AccessMode      string `toml:"access_mode"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Agent: AgentConfig{
			AccessMode: defaultAccessMode,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file from the default location. A missing file is not
// an error; defaults are returned.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// AgentCommand resolves the configured agent binary, falling back to the
// default command name.
func (c Config) AgentCommand() string {
	cmd := strings.TrimSpace(c.Agent.Command)
	if cmd == "" {
		return defaultAgentCommand
	}
	return cmd
}

func (c Config) AccessMode() string {
	mode := strings.TrimSpace(c.Agent.AccessMode)
	if mode == "" {
		return defaultAccessMode
	}
	return mode
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}
