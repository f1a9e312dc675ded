package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
device:
  name: "phone"
  data_dir: "/var/lib/reptrack"
link:
  host: "0.0.0.0"
  port: 8080
  peer_url: "http://watch:8081"
tailscale:
  enabled: false
mcp:
  enabled: true
  port: 8090
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.Name != "phone" {
		t.Errorf("device.name = %q, want %q", cfg.Device.Name, "phone")
	}
	if cfg.Device.DataDir != "/var/lib/reptrack" {
		t.Errorf("device.data_dir = %q, want %q", cfg.Device.DataDir, "/var/lib/reptrack")
	}
	if cfg.Link.Port != 8080 {
		t.Errorf("link.port = %d, want 8080", cfg.Link.Port)
	}
	if cfg.Link.PeerURL != "http://watch:8081" {
		t.Errorf("link.peer_url = %q, want %q", cfg.Link.PeerURL, "http://watch:8081")
	}
	if !cfg.MCP.Enabled {
		t.Error("mcp.enabled = false, want true")
	}
	if cfg.MCP.Port != 8090 {
		t.Errorf("mcp.port = %d, want 8090", cfg.MCP.Port)
	}
}

// TestEnvOverride verifies that REPTRACK_ env vars take precedence over YAML values.
// This ensures deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("REPTRACK_LINK_PORT", "9999")
	t.Setenv("REPTRACK_LINK_PEER_URL", "http://override:1234")
	t.Setenv("REPTRACK_DEVICE_NAME", "env-device")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Link.Port != 9999 {
		t.Errorf("link.port = %d, want 9999", cfg.Link.Port)
	}
	if cfg.Link.PeerURL != "http://override:1234" {
		t.Errorf("link.peer_url = %q, want %q", cfg.Link.PeerURL, "http://override:1234")
	}
	if cfg.Device.Name != "env-device" {
		t.Errorf("device.name = %q, want %q", cfg.Device.Name, "env-device")
	}
	// Unchanged fields should keep YAML values
	if cfg.Device.DataDir != "/var/lib/reptrack" {
		t.Errorf("device.data_dir = %q, want %q", cfg.Device.DataDir, "/var/lib/reptrack")
	}
}

// TestDefaults verifies defaults fill in fields the file leaves unset.
func TestDefaults(t *testing.T) {
	yaml := `
link:
  port: 8080
  peer_url: "http://watch:8081"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.DataDir != "data" {
		t.Errorf("device.data_dir = %q, want default %q", cfg.Device.DataDir, "data")
	}
	if cfg.MCP.Port != 8090 {
		t.Errorf("mcp.port = %d, want default 8090", cfg.MCP.Port)
	}
}

// TestValidationMissingPort verifies that missing required fields produce a clear error.
// Prevents starting a device daemon with incomplete pairing configuration.
func TestValidationMissingPort(t *testing.T) {
	yaml := `
link:
  peer_url: "http://watch:8081"
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing port")
	}
}

// TestValidationMissingPeerURL verifies that a missing peer URL is rejected.
// Without a peer, the sync bridge has nowhere to deliver.
func TestValidationMissingPeerURL(t *testing.T) {
	yaml := `
link:
  port: 8080
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing peer_url")
	}
}

// TestValidationTailscaleHostname verifies an enabled tailnet requires a hostname.
func TestValidationTailscaleHostname(t *testing.T) {
	yaml := `
link:
  port: 8080
  peer_url: "http://watch:8081"
tailscale:
  enabled: true
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing tailscale hostname")
	}
}

// TestLoadMissingFile verifies that a missing config file returns a clear error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
