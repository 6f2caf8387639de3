package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/kiosk404/mirror/internal/mirror/options"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin"
	"github.com/kiosk404/mirror/internal/mirror/store"
)

// Factory provides the objects mirrorctl commands work on. The server
// options are shared with the mirror binary, so both read the same config
// file and open the same store.
type Factory interface {
	// Options returns the server options, after the config file is read.
	Options() *options.Options
	// Store opens the encrypted plugin store on first use.
	Store() (*store.Store, error)
	// Framework loads the built-in plugins against the store without
	// starting them.
	Framework() (*plugin.Framework, error)
	// Close releases the store. A later Store or Framework call reopens it.
	Close() error
}

type defaultFactory struct {
	opts *options.Options

	once      sync.Once
	store     *store.Store
	framework *plugin.Framework
	err       error
}

// NewDefaultFactory returns a Factory over opts.
func NewDefaultFactory(opts *options.Options) Factory {
	return &defaultFactory{opts: opts}
}

func (f *defaultFactory) Options() *options.Options { return f.opts }

func (f *defaultFactory) Store() (*store.Store, error) {
	f.once.Do(func() {
		cfg := &store.Config{}
		if f.err = f.opts.StoreOptions.ApplyTo(cfg); f.err != nil {
			return
		}
		f.store, f.err = cfg.Complete().New()
	})
	return f.store, f.err
}

func (f *defaultFactory) Framework() (*plugin.Framework, error) {
	if f.framework != nil {
		return f.framework, nil
	}
	st, err := f.Store()
	if err != nil {
		return nil, err
	}
	cfg := &plugin.Config{
		Store: st,
		Allow: f.opts.PluginOptions.Allow,
		Deny:  f.opts.PluginOptions.Deny,
	}
	fw := cfg.Complete().New()
	if err := builtin.NewInTreeRegistry(f.opts.PluginOptions).ApplyTo(fw); err != nil {
		return nil, err
	}
	if err := fw.Init(); err != nil {
		return nil, err
	}
	f.framework = fw
	return fw, nil
}

func (f *defaultFactory) Close() error {
	if f.framework != nil {
		_ = f.framework.Stop(context.Background())
	}
	st := f.store
	f.once, f.store, f.framework, f.err = sync.Once{}, nil, nil, nil
	if st != nil {
		return st.Close()
	}
	return nil
}

// ErrExit may be passed to CheckErr to exit with status 1 without printing.
var ErrExit = errors.New("exit")

// CheckErr prints a user friendly error to STDERR and exits with a non-zero
// exit code.
func CheckErr(err error) {
	if err == nil {
		return
	}
	if !errors.Is(err, ErrExit) {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
	}
	os.Exit(1)
}
