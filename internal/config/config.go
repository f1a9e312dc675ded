package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Link      LinkConfig      `yaml:"link"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type DeviceConfig struct {
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`
}

type LinkConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	PeerURL string `yaml:"peer_url"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix REPTRACK_ and underscore-separated
// paths:
//
//	REPTRACK_DEVICE_NAME, REPTRACK_DEVICE_DATA_DIR,
//	REPTRACK_LINK_HOST, REPTRACK_LINK_PORT, REPTRACK_LINK_PEER_URL,
//	REPTRACK_TS_ENABLED, REPTRACK_TS_HOSTNAME, REPTRACK_TS_STATE_DIR,
//	REPTRACK_MCP_ENABLED, REPTRACK_MCP_PORT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPTRACK_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}
	if v := os.Getenv("REPTRACK_DEVICE_DATA_DIR"); v != "" {
		cfg.Device.DataDir = v
	}
	if v := os.Getenv("REPTRACK_LINK_HOST"); v != "" {
		cfg.Link.Host = v
	}
	if v := os.Getenv("REPTRACK_LINK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Link.Port = port
		}
	}
	if v := os.Getenv("REPTRACK_LINK_PEER_URL"); v != "" {
		cfg.Link.PeerURL = v
	}
	if v := os.Getenv("REPTRACK_TS_ENABLED"); v != "" {
		cfg.Tailscale.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("REPTRACK_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("REPTRACK_TS_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("REPTRACK_MCP_ENABLED"); v != "" {
		cfg.MCP.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("REPTRACK_MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MCP.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Device.DataDir == "" {
		cfg.Device.DataDir = "data"
	}
	if cfg.MCP.Port == 0 {
		cfg.MCP.Port = 8090
	}
}

func (c *Config) validate() error {
	if c.Link.Port == 0 {
		return fmt.Errorf("link.port is required")
	}
	if c.Link.PeerURL == "" {
		return fmt.Errorf("link.peer_url is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
