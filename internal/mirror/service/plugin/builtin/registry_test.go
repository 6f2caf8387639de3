package builtin

import (
	"testing"

	"github.com/bytedance/gg/gptr"

	genericoptions "github.com/kiosk404/mirror/internal/pkg/options"
)

func ids(opts *genericoptions.PluginsOptions) []string {
	var out []string
	for _, d := range NewInTreeRegistry(opts).Definitions() {
		out = append(out, d.ID)
	}
	return out
}

func TestNewInTreeRegistry(t *testing.T) {
	all := ids(genericoptions.NewPluginsOptions())
	if len(all) != 5 || all[0] != "connectivity" {
		t.Fatalf("default plugins = %v", all)
	}

	opts := genericoptions.NewPluginsOptions()
	opts.Entries["joke"] = genericoptions.PluginEntryConfig{Enabled: gptr.Of(false)}
	opts.Entries["clock"] = genericoptions.PluginEntryConfig{Enabled: gptr.Of(true)}
	for _, id := range ids(opts) {
		if id == "joke" {
			t.Error("disabled entry registered")
		}
	}
	if got := len(ids(opts)); got != 4 {
		t.Errorf("got %d plugins, want 4", got)
	}

	opts.Enabled = false
	if got := ids(opts); len(got) != 0 {
		t.Errorf("plugin system disabled, got %v", got)
	}
}
