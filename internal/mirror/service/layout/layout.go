package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/kiosk404/mirror/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Layout places widget ids ("<plugin>" or "<plugin>.<widget>") on the
// dashboard.
type Layout struct {
	Left    []string `yaml:"left"    json:"left"`
	Right   []string `yaml:"right"   json:"right"`
	Bottom  []string `yaml:"bottom"  json:"bottom"`
	Rotator []string `yaml:"rotator" json:"rotator"`
}

type file struct {
	Widgets Layout `yaml:"widgets"`
}

// PluginChecker reports whether a plugin is loaded.
type PluginChecker func(plugin string) bool

// SplitFunc splits a widget id into plugin and widget names.
type SplitFunc func(id string) (plugin, widget string)

// Load reads the layout file at path. A missing file yields an empty layout
// and a warning.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("[Layout] layout configuration file not found: %s", path)
		return &Layout{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML layout document.
func Parse(data []byte) (*Layout, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &f.Widgets, nil
}

// Filter returns a copy of the layout without widgets of unknown plugins.
// Each dropped widget is logged.
func (l *Layout) Filter(known PluginChecker, split SplitFunc) *Layout {
	keep := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			plugin, _ := split(id)
			if !known(plugin) {
				logger.Warn("[Layout] ignoring widget for unknown plugin: %s", plugin)
				continue
			}
			out = append(out, id)
		}
		return out
	}
	return &Layout{
		Left:    keep(l.Left),
		Right:   keep(l.Right),
		Bottom:  keep(l.Bottom),
		Rotator: keep(l.Rotator),
	}
}

// Empty reports whether no widget is placed.
func (l *Layout) Empty() bool {
	return len(l.Left)+len(l.Right)+len(l.Bottom)+len(l.Rotator) == 0
}

// Widgets lists every placed widget id once, in column order.
func (l *Layout) Widgets() []string {
	var out []string
	for _, col := range [][]string{l.Left, l.Right, l.Bottom, l.Rotator} {
		for _, id := range col {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}
