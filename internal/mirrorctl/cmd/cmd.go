package cmd

import (
	"fmt"
	"io"
	"os"

	cmdconfigure "github.com/kiosk404/mirror/internal/mirrorctl/cmd/configure"
	cmdinfo "github.com/kiosk404/mirror/internal/mirrorctl/cmd/info"
	cmdplugins "github.com/kiosk404/mirror/internal/mirrorctl/cmd/plugins"
	cmdstore "github.com/kiosk404/mirror/internal/mirrorctl/cmd/store"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	cmdversion "github.com/kiosk404/mirror/internal/mirrorctl/cmd/version"
	"github.com/kiosk404/mirror/internal/mirror/options"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/cliflag"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/spf13/cobra"
)

// NewDefaultMirrorCtlCommand creates the `mirrorctl` command with default arguments.
func NewDefaultMirrorCtlCommand() *cobra.Command {
	return NewMirrorCtlCommand(os.Stdin, os.Stdout, os.Stderr)
}

// NewMirrorCtlCommand returns new initialized instance of 'mirrorctl' root command.
func NewMirrorCtlCommand(in io.Reader, out, err io.Writer) *cobra.Command {
	opts := options.NewOptions()

	// Parent command to which all subcommands are added.
	cmds := &cobra.Command{
		Use:   "mirrorctl",
		Short: "mirrorctl configures and inspects the mirror dashboard",
		Long: templates.LongDesc(fmt.Sprintf(`%s
		mirrorctl is the companion CLI of the mirror server.

		It runs the one-time setup of plugins (API keys, locations, OAuth
		authorizations), lists the built-in plugins, and reads or edits the
		encrypted store the server keeps plugin data in. It reads the same
		configuration file as the server.`, Banner())),
		Run:           runHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd.Flags(), opts)
		},
	}
	cmds.SetIn(in)
	cmds.SetOut(out)
	cmds.SetErr(err)

	flags := cmds.PersistentFlags()
	flags.SetNormalizeFunc(cliflag.WordSepNormalizeFunc)
	addGlobalFlags(flags, opts)

	ioStreams := genericclioptions.IOStreams{In: in, Out: out, ErrOut: err}
	f := cmdutil.NewDefaultFactory(opts)

	groups := templates.CommandGroups{
		{
			Message: "Setup Commands:",
			Commands: []*cobra.Command{
				cmdconfigure.NewCmdConfigure(f, ioStreams),
			},
		},
		{
			Message: "Inspection Commands:",
			Commands: []*cobra.Command{
				cmdplugins.NewCmdPlugins(f, ioStreams),
				cmdstore.NewCmdStore(f, ioStreams),
			},
		},
		{
			Message: "Diagnostic Commands:",
			Commands: []*cobra.Command{
				cmdinfo.NewCmdInfo(f, ioStreams),
				cmdversion.NewCmdVersion(f, ioStreams),
			},
		},
	}
	groups.Add(cmds)

	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}
