package options

import (
	genericoptions "github.com/kiosk404/mirror/internal/pkg/options"
	"github.com/kiosk404/mirror/pkg/utils/cliflag"
	"github.com/kiosk404/mirror/pkg/utils/json"
)

// Options is everything the mirror server reads from flags, the config
// file and MIRROR_* environment variables.
type Options struct {
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"serving" mapstructure:"serving"`
	StoreOptions            *genericoptions.StoreOptions     `json:"store"   mapstructure:"store"`
	PluginOptions           *genericoptions.PluginsOptions   `json:"plugins" mapstructure:"plugins"`
	LayoutOptions           *genericoptions.LayoutOptions    `json:"layout"  mapstructure:"layout"`
	LogOptions              *genericoptions.LogOptions       `json:"log"     mapstructure:"log"`
}

func NewOptions() *Options {
	return &Options{
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		StoreOptions:            genericoptions.NewStoreOptions(),
		PluginOptions:           genericoptions.NewPluginsOptions(),
		LayoutOptions:           genericoptions.NewLayoutOptions(),
		LogOptions:              genericoptions.NewLogOptions(),
	}
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("serving"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.PluginOptions.AddFlags(fss.FlagSet("plugins"))
	o.LayoutOptions.AddFlags(fss.FlagSet("layout"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	return fss
}

// Validate checks every option group and returns all problems at once.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.PluginOptions.Validate()...)
	errs = append(errs, o.LayoutOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	return errs
}

// Complete set default Options.
func (o *Options) Complete() error {
	if o.PluginOptions.Entries == nil {
		o.PluginOptions.Entries = map[string]genericoptions.PluginEntryConfig{}
	}
	return nil
}

// String renders the options as JSON with the access token masked.
func (o *Options) String() string {
	masked := *o
	if o.GenericServerRunOptions.Token != "" {
		serving := *o.GenericServerRunOptions
		serving.Token = "******"
		masked.GenericServerRunOptions = &serving
	}
	data, _ := json.Marshal(masked)

	return string(data)
}
