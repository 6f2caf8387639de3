package layout

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/pkg/logger"
)

// ChangedEvent is posted on the bus after the layout file is reloaded.
const ChangedEvent = "layout.changed"

// Config holds the configuration for creating a Manager.
type Config struct {
	// File is the YAML layout file.
	File string
	// Known reports whether a plugin is loaded.
	Known PluginChecker
	// Split splits widget ids.
	Split SplitFunc
	// Defaults is used when the file places no widget at all.
	Defaults []string
	// Bus receives ChangedEvent on reload. Optional.
	Bus eventbus.Poster
}

// CompletedConfig is the completed layout configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Known == nil {
		c.Known = func(string) bool { return true }
	}
	if c.Split == nil {
		c.Split = func(id string) (string, string) { return id, "" }
	}
	return CompletedConfig{c}
}

// New loads the layout file and returns the Manager.
func (c CompletedConfig) New() (*Manager, error) {
	m := &Manager{cfg: c}
	if _, err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Manager holds the current layout and reloads it on demand.
type Manager struct {
	cfg CompletedConfig

	mu      sync.RWMutex
	current *Layout
}

// Current returns a copy of the active layout.
func (m *Manager) Current() *Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := &Layout{}
	if err := copier.CopyWithOption(out, m.current, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("[Layout] copy layout: %v", err)
		return &Layout{}
	}
	return out
}

// Reload re-reads the layout file. On error the previous layout stays.
func (m *Manager) Reload() (*Layout, error) {
	l, err := Load(m.cfg.File)
	if err != nil {
		return nil, err
	}
	l = l.Filter(m.cfg.Known, m.cfg.Split)
	if l.Empty() && len(m.cfg.Defaults) > 0 {
		l.Left = append([]string(nil), m.cfg.Defaults...)
	}

	m.mu.Lock()
	m.current = l
	m.mu.Unlock()
	logger.Info("[Layout] loaded %d widgets from %s", len(l.Widgets()), m.cfg.File)
	return l, nil
}

// reloadAndNotify reloads and posts ChangedEvent with the new layout.
func (m *Manager) reloadAndNotify(ctx context.Context) {
	l, err := m.Reload()
	if err != nil {
		logger.Warn("[Layout] reload failed, keeping previous layout: %v", err)
		return
	}
	if m.cfg.Bus == nil {
		return
	}
	data := map[string]any{
		"left":    l.Left,
		"right":   l.Right,
		"bottom":  l.Bottom,
		"rotator": l.Rotator,
	}
	if err := m.cfg.Bus.Post(ctx, eventbus.NewEvent(ChangedEvent, data)); err != nil {
		logger.Warn("[Layout] post %s: %v", ChangedEvent, err)
	}
}
