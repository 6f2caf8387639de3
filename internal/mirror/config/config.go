package config

import (
	"github.com/kiosk404/mirror/internal/mirror/options"
)

// Config is the running configuration structure of the mirror server.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions creates a running configuration instance based
// on a given mirror command line or configuration file option.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}
