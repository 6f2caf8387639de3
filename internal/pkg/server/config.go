package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Config is a structure used to configure a GenericAPIServer.
type Config struct {
	BindAddress string
	BindPort    int
	Mode        string
	Healthz     bool
	Diagnostics bool
}

// NewConfig returns a Config struct with the default values.
func NewConfig() *Config {
	return &Config{
		BindAddress: "127.0.0.1",
		BindPort:    5000,
		Mode:        gin.ReleaseMode,
		Healthz:     true,
		Diagnostics: false,
	}
}

// CompletedConfig is the completed configuration for GenericAPIServer.
type CompletedConfig struct {
	*Config
}

// Complete fills in any fields not set that are required to have valid data.
func (c *Config) Complete() CompletedConfig {
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	return CompletedConfig{c}
}

// Address joins the bind address and port.
func (c CompletedConfig) Address() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.BindPort))
}

// New returns a new instance of GenericAPIServer from the given config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)

	s := &GenericAPIServer{
		Engine:      gin.New(),
		address:     c.Address(),
		healthz:     c.Healthz,
		diagnostics: c.Diagnostics,
	}
	s.Engine.Use(requestLogger())
	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}
