package options

import (
	"github.com/spf13/pflag"
)

// LayoutOptions points at the dashboard layout file.
type LayoutOptions struct {
	File  string `json:"file"  mapstructure:"file"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// NewLayoutOptions returns the default layout options.
func NewLayoutOptions() *LayoutOptions {
	return &LayoutOptions{
		File:  "conf/layout.yaml",
		Watch: true,
	}
}

// Validate checks LayoutOptions fields. A missing file is not an error;
// the dashboard then shows every widget in the left column.
func (o *LayoutOptions) Validate() []error {
	return nil
}

// AddFlags adds flags for the layout options.
func (o *LayoutOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.File, "layout.file", o.File, "Path to the YAML layout file.")
	fs.BoolVar(&o.Watch, "layout.watch", o.Watch, "Reload the layout file when it changes.")
}
