package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

// Config is the genetrans tool configuration. It is separate from the
// training settings record handled by package settings.
type Config struct {
	Logging   Logging   `yaml:"logging"`
	Converter Converter `yaml:"converter"`
	Database  Database  `yaml:"database"`
	Elastic   Elastic   `yaml:"elastic"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Converter struct {
	Python  string        `yaml:"python"`
	Env     []string      `yaml:"env"`
	Timeout time.Duration `yaml:"timeout"`
}

type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Elastic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

// Default returns the configuration used when no config file is found.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "info"},
		Converter: Converter{
			Python: "python3",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "postgres",
			DBName: "genetrans",
		},
		Elastic: Elastic{
			Index: "genetrans_conversions",
		},
	}
}

type Manager struct {
	config     *Config
	configPath string
}

func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// LoadConfig loads the config file. An explicitly given path must exist;
// when the path was searched for and nothing was found, defaults are used.
func (m *Manager) LoadConfig() error {
	explicit := m.configPath != ""
	if !explicit {
		m.configPath = m.findConfigFile()
	}

	if m.configPath == "" {
		if DebugLog != nil {
			DebugLog("no config file found, using defaults")
		}
		m.config = Default()
		return nil
	}

	if DebugLog != nil {
		DebugLog("loading config from %s", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found at %s: %w", m.configPath, err)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = config
	return nil
}

func parse(data []byte) (*Config, error) {
	config := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return config, nil
}

func (m *Manager) GetConfig() *Config {
	return m.config
}

// ConfigPath is the file the configuration was read from, empty when
// defaults are in use.
func (m *Manager) ConfigPath() string {
	return m.configPath
}

func (m *Manager) findConfigFile() string {
	if _, err := os.Stat("genetrans.yaml"); err == nil {
		return "genetrans.yaml"
	}

	if _, err := os.Stat(filepath.Join("config", "genetrans.yaml")); err == nil {
		return filepath.Join("config", "genetrans.yaml")
	}

	if configPath, err := GetDefaultConfigPath(); err == nil {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}

func (m *Manager) validateConfig(config *Config) error {
	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", config.Logging.Level)
	}

	if strings.TrimSpace(config.Converter.Python) == "" {
		return fmt.Errorf("converter.python must not be empty")
	}

	if config.Converter.Timeout < 0 {
		return fmt.Errorf("converter.timeout must not be negative")
	}

	if config.Database.Enabled {
		if config.Database.Port <= 0 || config.Database.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535")
		}
		if config.Database.DBName == "" {
			return fmt.Errorf("database.dbname must not be empty")
		}
	}

	if config.Elastic.Enabled && strings.TrimSpace(config.Elastic.URL) == "" {
		return fmt.Errorf("elastic.url is required when elastic is enabled")
	}

	return nil
}
