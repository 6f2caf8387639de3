package plugins

import (
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/spf13/cobra"
)

// NewCmdPlugins returns the 'plugins' command group.
func NewCmdPlugins(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the built-in plugins",
		Long: templates.LongDesc(`
			Inspect the plugins compiled into mirror, as the server would
			load them with the current configuration.`),
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdList(f, ioStreams))
	cmd.AddCommand(NewCmdDescribe(f, ioStreams))
	return cmd
}
