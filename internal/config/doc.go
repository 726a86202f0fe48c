// Package config loads and validates the player configuration from YAML:
// server address, device identity, session timing and logging settings.
package config
