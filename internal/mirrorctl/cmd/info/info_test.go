package info

import (
	"context"
	"strings"
	"testing"

	"github.com/kiosk404/mirror/internal/mirror/options"
	"github.com/kiosk404/mirror/internal/mirror/service/plugin/builtin/system"
	cmdutil "github.com/kiosk404/mirror/internal/mirrorctl/cmd/util"
	"github.com/kiosk404/mirror/pkg/cli/genericclioptions"
)

func TestInfo(t *testing.T) {
	streams, _, out, _ := genericclioptions.NewTestIOStreams()
	o := NewInfoOptions(cmdutil.NewDefaultFactory(options.NewOptions()), streams)
	o.Collect = func() (system.Stats, error) {
		return system.Stats{HostName: "mirror-pi", Release: "6.1 64", CPUCores: 4, MemTotal: 1024, MemFree: 512}, nil
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mirror-pi", "1024M", "instance/mirror.db (bolt)", "conf/layout.yaml"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
