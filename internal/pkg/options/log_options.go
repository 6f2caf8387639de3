package options

import (
	"fmt"

	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file"  mapstructure:"file"`
}

// NewLogOptions returns the default log options: info level, stderr only.
func NewLogOptions() *LogOptions {
	return &LogOptions{Level: "info"}
}

// Apply configures the global logger.
func (o *LogOptions) Apply() error {
	if err := logger.SetLevel(o.Level); err != nil {
		return err
	}
	return logger.InitLog(o.File)
}

// Validate checks LogOptions fields.
func (o *LogOptions) Validate() []error {
	if _, err := logrus.ParseLevel(o.Level); err != nil {
		return []error{fmt.Errorf("--log.level: %w", err)}
	}
	return nil
}

// AddFlags adds flags for the log options.
func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level: debug, info, warn, error.")
	fs.StringVar(&o.File, "log.file", o.File, "Also write logs to this file.")
}
