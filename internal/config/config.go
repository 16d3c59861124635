// Package config defines the download configuration and its YAML file
// form.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every user-facing setting. Values load from a YAML file
// first; command-line flags override individual fields.
type Config struct {
	// URL is the m3u8 playlist to download.
	URL string `yaml:"url"`
	// Out is the output file path.
	Out string `yaml:"out"`
	// FourCC selects the output codec tag.
	FourCC string `yaml:"fourcc"`
	// Threads is the number of segments fetched per batch.
	Threads int `yaml:"threads"`
	// View enables the live preview window.
	View bool `yaml:"view"`
	// HeadersFile points to a JSON file of extra HTTP headers.
	HeadersFile string `yaml:"headers_file"`
	// MQTTBroker enables progress telemetry when set.
	MQTTBroker string `yaml:"mqtt_broker"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		FourCC:  "mp4v",
		Threads: 4,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration is complete and coherent.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("config: playlist URL is required")
	}
	if c.Out == "" {
		return fmt.Errorf("config: output path is required")
	}
	if len(c.FourCC) != 4 {
		return fmt.Errorf("config: fourcc must be exactly 4 characters, got %q", c.FourCC)
	}
	if c.Threads < 1 {
		return fmt.Errorf("config: threads must be at least 1, got %d", c.Threads)
	}
	return nil
}
