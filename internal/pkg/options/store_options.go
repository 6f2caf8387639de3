package options

import (
	"fmt"

	"github.com/kiosk404/mirror/internal/mirror/store"
	"github.com/spf13/pflag"
)

// StoreOptions locates the encrypted plugin store.
type StoreOptions struct {
	Dir     string `json:"dir"      mapstructure:"dir"`
	Backend string `json:"backend"  mapstructure:"backend"`
	DBFile  string `json:"db-file"  mapstructure:"db-file"`
	KeyFile string `json:"key-file" mapstructure:"key-file"`
}

// NewStoreOptions returns the default store location: ./instance/mirror.db
// with its key next to it.
func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Dir:     "instance",
		Backend: store.BackendBolt,
		DBFile:  "mirror.db",
		KeyFile: "mirror.key",
	}
}

// ApplyTo copies the options into a store configuration.
func (o *StoreOptions) ApplyTo(c *store.Config) error {
	c.Dir = o.Dir
	c.Backend = o.Backend
	c.DBFile = o.DBFile
	c.KeyFile = o.KeyFile
	return nil
}

// Validate checks StoreOptions fields.
func (o *StoreOptions) Validate() []error {
	var errs []error

	switch o.Backend {
	case store.BackendBolt, store.BackendSQLite, store.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("--store.backend %q must be one of bolt, sqlite, memory", o.Backend))
	}
	if o.DBFile == "" || o.KeyFile == "" {
		errs = append(errs, fmt.Errorf("--store.db-file and --store.key-file must not be empty"))
	}
	if o.DBFile == o.KeyFile {
		errs = append(errs, fmt.Errorf("--store.db-file and --store.key-file must differ"))
	}

	return errs
}

// AddFlags adds flags for the store options.
func (o *StoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Dir, "store.dir", o.Dir, "Directory holding the data file and the key file.")
	fs.StringVar(&o.Backend, "store.backend", o.Backend, "Storage backend: bolt, sqlite or memory.")
	fs.StringVar(&o.DBFile, "store.db-file", o.DBFile, "Data file name inside --store.dir.")
	fs.StringVar(&o.KeyFile, "store.key-file", o.KeyFile, "Encryption key file name inside --store.dir.")
}
