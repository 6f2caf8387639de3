package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/spf13/cobra"
)

var listExample = templates.Examples(`
		# List the plugins the server would load
		mirrorctl plugins list`)

// List is an options struct to support 'plugins list' sub command.
type List struct {
	Factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdList returns new initialized instance of 'plugins list' sub command.
func NewCmdList(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &List{Factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:                   "list",
		DisableFlagsInUseLine: true,
		Aliases:               []string{"ls"},
		Short:                 "List loaded plugins and their capabilities",
		Example:               listExample,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context()))
		},
	}
	return cmd
}

// Run executes a plugins list sub command.
func (o *List) Run(ctx context.Context) error {
	fw, err := o.Factory.Framework()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("NAME", "TITLE", "CAPABILITIES", "WIDGETS", "STATUS")
	for _, d := range fw.Registry().Descriptors() {
		widgets := strings.Join(d.Widgets(), ",")
		if widgets == "" {
			widgets = "-"
		}
		table.AddRow(d.Name(), d.Definition().Name, d.Capabilities().String(), widgets,
			statusText(fw.Registry().Status(d.Name())))
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

func statusText(st *plugin.Status) string {
	switch st.Code() {
	case plugin.Success:
		return color.GreenString("loaded")
	case plugin.Error:
		return color.RedString("error: %s", st.Message())
	case plugin.Skip:
		return color.YellowString("skipped")
	default:
		return "loaded"
	}
}
