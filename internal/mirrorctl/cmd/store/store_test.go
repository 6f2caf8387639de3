package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/options"
	mstore "github.com/kiosk404/mirror/internal/mirror/store"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
)

func newStore(t *testing.T) (*Store, func() string) {
	t.Helper()
	opts := options.NewOptions()
	opts.StoreOptions.Dir = t.TempDir()
	opts.StoreOptions.Backend = mstore.BackendBolt

	seed := cmdutil.NewDefaultFactory(opts)
	st, err := seed.Store()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := st.Table("weather").Set(ctx, "location", "Oslo"); err != nil {
		t.Fatal(err)
	}
	if err := st.Table("connectivity").Set(ctx, "mirror-offline", when); err != nil {
		t.Fatal(err)
	}
	if err := seed.Close(); err != nil {
		t.Fatal(err)
	}

	streams, _, out, _ := genericclioptions.NewTestIOStreams()
	o := &Store{Factory: cmdutil.NewDefaultFactory(opts), IOStreams: streams}
	return o, func() string {
		s := out.String()
		out.Reset()
		return s
	}
}

func TestStoreCommands(t *testing.T) {
	o, output := newStore(t)
	ctx := context.Background()

	if err := o.Keys(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := output(); got != "connectivity\nweather\n" {
		t.Errorf("tables = %q", got)
	}

	if err := o.Get(ctx, "weather", "location"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(output()); got != `"Oslo"` {
		t.Errorf("get = %s", got)
	}

	if err := o.Get(ctx, "connectivity", "mirror-offline"); err != nil {
		t.Fatal(err)
	}
	if got := output(); !strings.Contains(got, "2024-03-01T09:00:00Z") {
		t.Errorf("datetime value = %s", got)
	}
}

func TestStoreDelete(t *testing.T) {
	o, output := newStore(t)
	ctx := context.Background()

	if err := o.Delete(ctx, "connectivity", "mirror-offline"); err != nil {
		t.Fatal(err)
	}
	if err := o.Keys(ctx, []string{"connectivity"}); err != nil {
		t.Fatal(err)
	}
	if got := output(); got != "" {
		t.Errorf("keys after delete = %q", got)
	}
}
