package mirror

import (
	"github.com/kiosk404/mirror/internal/mirror/config"
	"github.com/kiosk404/mirror/internal/mirror/options"
	"github.com/kiosk404/mirror/pkg/app"
	"github.com/kiosk404/mirror/pkg/logger"
)

const commandDesc = `The mirror server drives a smart-mirror dashboard.

It loads the built-in plugins, keeps their widgets fresh on their own
refresh schedules and pushes every update to the dashboard page over
server-sent events. Plugin settings and credentials live in an encrypted
store; run 'mirrorctl configure' once to fill it in.`

// NewApp creates an App object with default parameters.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("mirror",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		if err := opts.LogOptions.Apply(); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return Run(cfg)
	}
}
