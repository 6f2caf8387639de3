package configure

import (
	"context"

	"github.com/fatih/color"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/spf13/cobra"
)

var configureExample = templates.Examples(`
		# Configure every plugin that has settings
		mirrorctl configure

		# Configure only the weather plugin
		mirrorctl configure weather

		# Answer prompts from a file, one value per line
		mirrorctl configure weather < answers.txt`)

// Configure is an options struct to support 'configure' sub command.
type Configure struct {
	Factory cmdutil.Factory
	Plain   bool
	genericclioptions.IOStreams
}

// NewConfigureOptions returns an initialized Configure instance.
func NewConfigureOptions(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *Configure {
	return &Configure{
		Factory:   f,
		IOStreams: ioStreams,
	}
}

// NewCmdConfigure returns new initialized instance of 'configure' sub command.
func NewCmdConfigure(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := NewConfigureOptions(f, ioStreams)

	cmd := &cobra.Command{
		Use:                   "configure [PLUGIN...]",
		DisableFlagsInUseLine: true,
		Short:                 "Run the interactive setup of plugins",
		Long: templates.LongDesc(`
			Run the one-time setup of the named plugins, or of every plugin
			that has one. Answers (API keys, locations, OAuth tokens) are
			written to the encrypted store the server reads.

			Prompts use an interactive form on a terminal and plain line
			prompts otherwise.`),
		Example: configureExample,
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Run(cmd.Context(), args))
		},
	}

	cmd.Flags().BoolVar(&o.Plain, "plain", o.Plain, "Use line prompts even on a terminal")

	return cmd
}

// Run executes a configure sub command using the specified options.
func (o *Configure) Run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fw, err := o.Factory.Framework()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	var prompter = NewPrompter(o.IOStreams)
	if o.Plain {
		prompter = NewLinePrompter(o.In, o.Out)
	}

	if err := fw.Configure(ctx, args, prompter, NewLoopbackOAuth(o.Out)); err != nil {
		return err
	}
	_, _ = color.New(color.FgGreen).Fprintln(o.Out, "Configuration saved.")
	return nil
}
