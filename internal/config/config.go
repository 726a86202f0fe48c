package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete player configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Device  DeviceConfig  `yaml:"device"`
	Session SessionConfig `yaml:"session"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig identifies the Slim server to connect to.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DeviceConfig describes the identity the device announces at handshake.
type DeviceConfig struct {
	Name          string   `yaml:"name"`
	MAC           string   `yaml:"mac"`
	DeviceID      int      `yaml:"device_id"`
	Revision      int      `yaml:"revision"`
	Formats       []string `yaml:"formats"`
	MaxSampleRate int      `yaml:"max_sample_rate"`
}

// SessionConfig contains protocol timing and buffering parameters.
type SessionConfig struct {
	HeartbeatInterval int   `yaml:"heartbeat_interval"` // seconds
	HandshakeTimeout  int   `yaml:"handshake_timeout"`  // seconds
	ReadBufferSize    int   `yaml:"read_buffer_size"`   // bytes
	AudioWindow       int64 `yaml:"audio_window"`       // bytes, 0 = continuous
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Session.HeartbeatInterval == 0 {
		c.Session.HeartbeatInterval = 5
	}
	if c.Session.HandshakeTimeout == 0 {
		c.Session.HandshakeTimeout = 10
	}
	if c.Session.ReadBufferSize == 0 {
		c.Session.ReadBufferSize = 8192
	}
	if c.Device.Name == "" {
		c.Device.Name = "slimproto"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", s.Port)
	}

	return nil
}

// Validate validates device configuration.
func (d *DeviceConfig) Validate() error {
	if d.MAC != "" {
		if _, err := net.ParseMAC(d.MAC); err != nil {
			return fmt.Errorf("invalid mac address %q: %w", d.MAC, err)
		}
	}

	if d.DeviceID < 0 || d.DeviceID > 255 {
		return fmt.Errorf("device_id must be between 0 and 255, got %d", d.DeviceID)
	}

	if d.Revision < 0 || d.Revision > 255 {
		return fmt.Errorf("revision must be between 0 and 255, got %d", d.Revision)
	}

	validFormats := map[string]bool{
		"pcm": true, "mp3": true, "flc": true, "ogg": true,
		"aac": true, "alc": true, "wma": true, "aif": true,
	}
	for _, f := range d.Formats {
		if !validFormats[f] {
			return fmt.Errorf("unknown audio format %q", f)
		}
	}

	if d.MaxSampleRate < 0 {
		return fmt.Errorf("max_sample_rate cannot be negative, got %d", d.MaxSampleRate)
	}

	return nil
}

// Validate validates session configuration.
func (s *SessionConfig) Validate() error {
	if s.HeartbeatInterval < 1 {
		return fmt.Errorf("heartbeat_interval must be at least 1 second, got %d", s.HeartbeatInterval)
	}

	if s.HandshakeTimeout < 1 {
		return fmt.Errorf("handshake_timeout must be at least 1 second, got %d", s.HandshakeTimeout)
	}

	if s.ReadBufferSize < 1024 {
		return fmt.Errorf("read_buffer_size must be at least 1024 bytes, got %d", s.ReadBufferSize)
	}

	if s.AudioWindow < 0 {
		return fmt.Errorf("audio_window cannot be negative, got %d", s.AudioWindow)
	}

	return nil
}

// Validate validates metrics configuration.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535, got %d", m.Port)
		}
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetHeartbeatInterval returns the heartbeat interval as a time.Duration.
func (s *SessionConfig) GetHeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}

// GetHandshakeTimeout returns the handshake timeout as a time.Duration.
func (s *SessionConfig) GetHandshakeTimeout() time.Duration {
	return time.Duration(s.HandshakeTimeout) * time.Second
}

// GetMAC returns the parsed hardware address, or a zero address when unset.
func (d *DeviceConfig) GetMAC() [6]byte {
	var mac [6]byte
	if d.MAC == "" {
		return mac
	}
	hw, err := net.ParseMAC(d.MAC)
	if err != nil || len(hw) < 6 {
		return mac
	}
	copy(mac[:], hw[:6])
	return mac
}
