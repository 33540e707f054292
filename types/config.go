package types

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Configuration holds the coordinator settings. Values come from an
// optional yaml file; CLI flags override individual fields.
type Configuration struct {
	DataDir       string `yaml:"data_dir"`
	BrokerHost    string `yaml:"broker_host"`
	BrokerPort    int    `yaml:"broker_port"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	MetricsPort   int    `yaml:"metrics_port"`
	LogLevel      string `yaml:"log_level"`
}

// DefaultConfiguration returns the settings used when no config file is given.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		DataDir:       filepath.Join(os.TempDir(), "groupfetch"),
		BrokerHost:    "localhost",
		BrokerPort:    9092,
		EnableMetrics: false,
		MetricsPort:   9100,
		LogLevel:      "INFO",
	}
}

// LoadConfiguration reads a yaml config file on top of the defaults.
func LoadConfiguration(path string) (*Configuration, error) {
	config := DefaultConfiguration()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("could not parse config file %v: %w", path, err)
	}
	return config, nil
}
