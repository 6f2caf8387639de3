package info

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gosuri/uitable"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/system"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/kiosk404/mirror/pkg/version"
	"github.com/spf13/cobra"
)

var infoExample = templates.Examples(`
		# Print the host and installation information
		mirrorctl info`)

// Info is an options struct to support 'info' sub command.
type Info struct {
	Factory cmdutil.Factory
	Collect system.Collector
	genericclioptions.IOStreams
}

// NewInfoOptions returns an initialized Info instance.
func NewInfoOptions(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *Info {
	return &Info{
		Factory:   f,
		Collect:   system.Collect,
		IOStreams: ioStreams,
	}
}

// NewCmdInfo returns new initialized instance of 'info' sub command.
func NewCmdInfo(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewInfoOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "info",
		DisableFlagsInUseLine: true,
		Short:                 "Print the host and installation information",
		Long:                  "Print the host statistics the system widget shows, and where the server keeps its files.",
		Example:               infoExample,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}

	return cmd
}

// Run executes an info sub command using the specified options.
func (o *Info) Run(ctx context.Context) error {
	st, err := o.Collect()
	if err != nil {
		return err
	}
	opts := o.Factory.Options()

	table := uitable.New()
	table.AddRow("Version:", version.Get().String())
	table.AddRow("HostName:", st.HostName)
	table.AddRow("OSRelease:", st.Release)
	table.AddRow("CPUCore:", st.CPUCores)
	table.AddRow("Load:", fmt.Sprintf("%.2f", st.Load))
	table.AddRow("MemTotal:", fmt.Sprintf("%dM", st.MemTotal))
	table.AddRow("MemFree:", fmt.Sprintf("%dM", st.MemFree))
	table.AddRow("Store:", fmt.Sprintf("%s (%s)", filepath.Join(opts.StoreOptions.Dir, opts.StoreOptions.DBFile), opts.StoreOptions.Backend))
	table.AddRow("Layout:", opts.LayoutOptions.File)
	fmt.Fprintln(o.Out, table)
	return nil
}
