package options

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/pkg/server"
	"github.com/spf13/pflag"
)

// ServerRunOptions contains the options for the dashboard HTTP server.
type ServerRunOptions struct {
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	BindPort    int    `json:"bind-port"    mapstructure:"bind-port"`
	Mode        string `json:"mode"         mapstructure:"mode"`
	Healthz     bool   `json:"healthz"      mapstructure:"healthz"`
	Diagnostics bool   `json:"diagnostics"  mapstructure:"diagnostics"`
	// Token guards requests from other hosts. Loopback requests pass.
	Token string `json:"token,omitempty" mapstructure:"token"`
}

// NewServerRunOptions creates a new ServerRunOptions object with default parameters.
func NewServerRunOptions() *ServerRunOptions {
	defaults := server.NewConfig()

	return &ServerRunOptions{
		BindAddress: defaults.BindAddress,
		BindPort:    defaults.BindPort,
		Mode:        defaults.Mode,
		Healthz:     defaults.Healthz,
		Diagnostics: defaults.Diagnostics,
	}
}

// ApplyTo applies the run options to the method receiver and returns self.
func (s *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.BindAddress = s.BindAddress
	c.BindPort = s.BindPort
	c.Mode = s.Mode
	c.Healthz = s.Healthz
	c.Diagnostics = s.Diagnostics

	return nil
}

// Validate checks validation of ServerRunOptions.
func (s *ServerRunOptions) Validate() []error {
	var errs []error

	if s.BindPort < 0 || s.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--serving.bind-port %v must be between 0 and 65535", s.BindPort))
	}
	switch s.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("--serving.mode %q must be one of debug, release, test", s.Mode))
	}

	return errs
}

// AddFlags adds flags for a specific server to the specified FlagSet.
func (s *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&s.BindAddress, "serving.bind-address", s.BindAddress, ""+
		"The IP address on which to serve the dashboard (set to 0.0.0.0 for all interfaces).")
	fs.IntVar(&s.BindPort, "serving.bind-port", s.BindPort, "The port on which to serve the dashboard.")
	fs.StringVar(&s.Mode, "serving.mode", s.Mode, ""+
		"Start the server in a specified server mode. Supported server mode: debug, test, release.")
	fs.BoolVar(&s.Healthz, "serving.healthz", s.Healthz, "Add self readiness check and install /ready router.")
	fs.BoolVar(&s.Diagnostics, "serving.diagnostics", s.Diagnostics, ""+
		"Install /diag routes: refresh task listing and pprof.")
	fs.StringVar(&s.Token, "serving.token", s.Token, ""+
		"Bearer token required from non-loopback clients. Falls back to $MIRROR_TOKEN.")
}
