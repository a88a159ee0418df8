package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration file.
type Config struct {
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	MQTT     MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Building BuildingConfig `yaml:"building,omitempty" json:"building,omitempty"`
}

// StorageConfig locates the snapshot file.
type StorageConfig struct {
	Path string `yaml:"path" json:"path"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// DefaultsConfig holds operator defaults.
type DefaultsConfig struct {
	Unit Unit `yaml:"unit" json:"unit"`
}

// BuildingConfig seeds the building when the store is empty.
type BuildingConfig struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Storage:  StorageConfig{Path: DefaultStorePath},
		HTTP:     HTTPConfig{Port: 8080},
		MQTT:     MQTTConfig{PublishPrefix: "plannotate"},
		Defaults: DefaultsConfig{Unit: Meters},
	}
}

// LoadConfig loads the configuration from a YAML file. Keys missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field ranges and normalizes the default unit.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Defaults.Unit == "" {
		c.Defaults.Unit = Meters
	}
	u, err := ParseUnit(string(c.Defaults.Unit))
	if err != nil {
		return fmt.Errorf("defaults.unit: %w", err)
	}
	c.Defaults.Unit = u
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
