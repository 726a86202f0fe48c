package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	valid := Config{
		Server: ServerConfig{
			Host: "192.168.1.10",
			Port: 3483,
		},
		Device: DeviceConfig{
			Name:          "kitchen",
			MAC:           "02:00:00:00:00:01",
			DeviceID:      12,
			Formats:       []string{"pcm", "flc", "mp3"},
			MaxSampleRate: 96000,
		},
		Session: SessionConfig{
			HeartbeatInterval: 5,
			HandshakeTimeout:  10,
			ReadBufferSize:    8192,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "empty server host",
			mutate:      func(c *Config) { c.Server.Host = "" },
			expectError: true,
			errorMsg:    "host cannot be empty",
		},
		{
			name:        "server port out of range",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between",
		},
		{
			name:        "bad mac address",
			mutate:      func(c *Config) { c.Device.MAC = "not-a-mac" },
			expectError: true,
			errorMsg:    "invalid mac address",
		},
		{
			name:        "device id out of range",
			mutate:      func(c *Config) { c.Device.DeviceID = 300 },
			expectError: true,
			errorMsg:    "device_id must be between",
		},
		{
			name:        "unknown audio format",
			mutate:      func(c *Config) { c.Device.Formats = []string{"pcm", "midi"} },
			expectError: true,
			errorMsg:    "unknown audio format",
		},
		{
			name:        "heartbeat too short",
			mutate:      func(c *Config) { c.Session.HeartbeatInterval = 0 },
			expectError: true,
			errorMsg:    "heartbeat_interval must be at least 1",
		},
		{
			name:        "read buffer too small",
			mutate:      func(c *Config) { c.Session.ReadBufferSize = 100 },
			expectError: true,
			errorMsg:    "read_buffer_size must be at least 1024",
		},
		{
			name:        "negative audio window",
			mutate:      func(c *Config) { c.Session.AudioWindow = -1 },
			expectError: true,
			errorMsg:    "audio_window cannot be negative",
		},
		{
			name: "metrics enabled without port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 0
			},
			expectError: true,
			errorMsg:    "metrics port must be between",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorMsg:    "format must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		validate    func(*testing.T, *Config)
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  host: "192.168.1.10"
  port: 3483
device:
  name: "kitchen"
  mac: "02:00:00:00:00:01"
  device_id: 12
  formats: ["pcm", "flc"]
session:
  heartbeat_interval: 3
  handshake_timeout: 7
  read_buffer_size: 4096
logging:
  level: "debug"
  format: "json"
  output: "stdout"
`,
			expectError: false,
			validate: func(t *testing.T, c *Config) {
				if c.Server.Host != "192.168.1.10" || c.Server.Port != 3483 {
					t.Errorf("server = %s:%d, expected 192.168.1.10:3483", c.Server.Host, c.Server.Port)
				}
				if c.Session.HeartbeatInterval != 3 {
					t.Errorf("heartbeat_interval = %d, expected 3", c.Session.HeartbeatInterval)
				}
			},
		},
		{
			name: "defaults applied",
			configYAML: `
server:
  host: "server.local"
logging:
  output: "stdout"
`,
			expectError: false,
			validate: func(t *testing.T, c *Config) {
				if c.Session.HeartbeatInterval != 5 {
					t.Errorf("heartbeat_interval = %d, expected default 5", c.Session.HeartbeatInterval)
				}
				if c.Session.HandshakeTimeout != 10 {
					t.Errorf("handshake_timeout = %d, expected default 10", c.Session.HandshakeTimeout)
				}
				if c.Session.ReadBufferSize != 8192 {
					t.Errorf("read_buffer_size = %d, expected default 8192", c.Session.ReadBufferSize)
				}
				if c.Device.Name != "slimproto" {
					t.Errorf("device name = %q, expected default slimproto", c.Device.Name)
				}
				if c.Logging.Level != "info" || c.Logging.Format != "text" {
					t.Errorf("logging = %s/%s, expected info/text", c.Logging.Level, c.Logging.Format)
				}
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  host: "server.local"
  port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing server host",
			configYAML: `
device:
  name: "kitchen"
`,
			expectError: true,
			errorMsg:    "host cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if tt.validate != nil {
					tt.validate(t, config)
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatalf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	session := SessionConfig{
		HeartbeatInterval: 5,
		HandshakeTimeout:  10,
	}

	if session.GetHeartbeatInterval() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", session.GetHeartbeatInterval())
	}
	if session.GetHandshakeTimeout() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", session.GetHandshakeTimeout())
	}
}

func TestGetMAC(t *testing.T) {
	tests := []struct {
		name     string
		mac      string
		expected [6]byte
	}{
		{
			name:     "valid address",
			mac:      "02:00:00:0a:0b:0c",
			expected: [6]byte{0x02, 0x00, 0x00, 0x0a, 0x0b, 0x0c},
		},
		{
			name:     "empty falls back to zero",
			mac:      "",
			expected: [6]byte{},
		},
		{
			name:     "unparseable falls back to zero",
			mac:      "garbage",
			expected: [6]byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DeviceConfig{MAC: tt.mac}
			if got := d.GetMAC(); got != tt.expected {
				t.Errorf("GetMAC() = %x, expected %x", got, tt.expected)
			}
		})
	}
}
