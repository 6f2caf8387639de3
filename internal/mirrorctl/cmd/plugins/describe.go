package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var describeExample = templates.Examples(`
		# Show what the weather plugin does and what it has stored
		mirrorctl plugins describe weather`)

// Describe is an options struct to support 'plugins describe' sub command.
type Describe struct {
	Factory cmdutil.Factory
	Raw     bool
	Width   int
	genericclioptions.IOStreams
}

// NewCmdDescribe returns new initialized instance of 'plugins describe' sub command.
func NewCmdDescribe(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &Describe{Factory: f, IOStreams: ioStreams, Width: 80}

	cmd := &cobra.Command{
		Use:                   "describe PLUGIN",
		DisableFlagsInUseLine: true,
		Short:                 "Show a plugin's description, widgets and stored keys",
		Example:               describeExample,
		Args:                  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args[0]))
		},
	}
	cmd.Flags().BoolVar(&o.Raw, "raw", o.Raw, "Print the Markdown source instead of rendering it")
	cmd.Flags().IntVar(&o.Width, "width", o.Width, "Wrap rendered output at this width")
	return cmd
}

// Run executes a plugins describe sub command.
func (o *Describe) Run(ctx context.Context, name string) error {
	fw, err := o.Factory.Framework()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	d, err := fw.Descriptor(name)
	if err != nil {
		return err
	}
	pc, err := fw.Context(name)
	if err != nil {
		return err
	}
	stored, err := pc.DB().Keys(ctx)
	if err != nil {
		return err
	}

	doc := markdown(d, stored)
	if o.Raw {
		fmt.Fprint(o.Out, doc)
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(o.Width),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(doc)
	if err != nil {
		return err
	}
	fmt.Fprint(o.Out, out)
	return nil
}

func markdown(d *plugin.Descriptor, stored []string) string {
	def := d.Definition()
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (`%s`)\n\n", def.Name, d.Name())
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}
	fmt.Fprintf(&b, "**Capabilities:** %s\n\n", d.Capabilities())

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "- `%s`\n", it)
		}
		b.WriteString("\n")
	}
	list("Widgets", d.Widgets())
	list("Scripts", d.Scripts())
	list("Stylesheets", d.Stylesheets())
	list("Stored keys", stored)
	return b.String()
}
