package store

import (
	"context"
	"fmt"
	"sort"

	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
	"github.com/kiosk404/mirror/pkg/utils/json"
	"github.com/kiosk404/mirror/pkg/utils/templates"
	"github.com/spf13/cobra"
)

var storeExample = templates.Examples(`
		# List the plugins with stored data
		mirrorctl store keys

		# List the keys of the weather plugin
		mirrorctl store keys weather

		# Show a decrypted value
		mirrorctl store get weather location

		# Forget the connectivity offline marker
		mirrorctl store delete connectivity mirror-offline`)

// Store is an options struct to support 'store' sub commands.
type Store struct {
	Factory cmdutil.Factory
	genericclioptions.IOStreams
}

// NewCmdStore returns the 'store' command group.
func NewCmdStore(f cmdutil.Factory, ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &Store{Factory: f, IOStreams: ioStreams}

	cmd := &cobra.Command{
		Use:     "store",
		Short:   "Read and edit the encrypted plugin store",
		Example: storeExample,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keys [PLUGIN]",
		Short: "List plugin tables, or the keys of one plugin",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Keys(cmd.Context(), args))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get PLUGIN KEY",
		Short: "Print a decrypted value as JSON",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Get(cmd.Context(), args[0], args[1]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete PLUGIN KEY",
		Short: "Delete a value",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cmdutil.CheckErr(o.Delete(cmd.Context(), args[0], args[1]))
		},
	})
	return cmd
}

// Keys prints the table names, or the keys of args[0].
func (o *Store) Keys(ctx context.Context, args []string) error {
	st, err := o.Factory.Store()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	var names []string
	if len(args) == 0 {
		names, err = st.Tables(ctx)
	} else {
		names, err = st.Table(args[0]).Keys(ctx)
	}
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(o.Out, n)
	}
	return nil
}

// Get prints one value.
func (o *Store) Get(ctx context.Context, table, key string) error {
	st, err := o.Factory.Store()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	v, err := st.Table(table).Get(ctx, key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, string(data))
	return nil
}

// Delete removes one value.
func (o *Store) Delete(ctx context.Context, table, key string) error {
	st, err := o.Factory.Store()
	if err != nil {
		return err
	}
	defer o.Factory.Close()

	return st.Table(table).Delete(ctx, key)
}
