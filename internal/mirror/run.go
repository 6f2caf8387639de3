package mirror

import (
	"github.com/kiosk404/mirror/internal/mirror/config"
)

// Run starts the dashboard server and blocks until it stops.
func Run(cfg *config.Config) error {
	server, err := createMirrorServer(cfg)
	if err != nil {
		return err
	}

	prepared, err := server.PrepareRun()
	if err != nil {
		return err
	}
	return prepared.Run()
}
