package version

import (
	"fmt"

	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/json"
	"github.com/kiosk404/mirror/pkg/version"
	"github.com/spf13/cobra"
)

// Version is an options struct to support 'version' sub command.
type Version struct {
	Short bool
	genericclioptions.IOStreams
}

// NewCmdVersion returns new initialized instance of 'version' sub command.
func NewCmdVersion(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &Version{IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the client version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run())
		},
	}
	cmd.Flags().BoolVar(&o.Short, "short", o.Short, "Print just the version number.")
	return cmd
}

// Run prints the version.
func (o *Version) Run() error {
	info := version.Get()
	if o.Short {
		fmt.Fprintln(o.Out, info.String())
		return nil
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, string(data))
	return nil
}
