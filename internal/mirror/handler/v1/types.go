package v1

import (
	"time"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
)

// PluginStatus is the last lifecycle outcome of a plugin.
type PluginStatus struct {
	Code    string    `json:"code"`
	Action  string    `json:"action,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

// PluginResponse describes a loaded plugin.
type PluginResponse struct {
	Name         string              `json:"name"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Capabilities plugin.Capabilities `json:"capabilities"`
	Widgets      []string            `json:"widgets"`
	Scripts      []string            `json:"scripts"`
	Stylesheets  []string            `json:"stylesheets"`
	Status       PluginStatus        `json:"status"`
}

// PluginListResponse is the body of GET /v1/plugins.
type PluginListResponse struct {
	Ready   bool             `json:"ready"`
	Score   int              `json:"connectivity_score"`
	Plugins []PluginResponse `json:"plugins"`
}

func toPluginResponse(d *plugin.Descriptor, st *plugin.Status) PluginResponse {
	def := d.Definition()
	out := PluginResponse{
		Name:         d.Name(),
		Title:        def.Name,
		Description:  def.Description,
		Capabilities: d.Capabilities(),
		Widgets:      emptyIfNil(d.Widgets()),
		Scripts:      emptyIfNil(d.Scripts()),
		Stylesheets:  emptyIfNil(d.Stylesheets()),
		Status:       PluginStatus{Code: st.Code().String()},
	}
	if st != nil {
		out.Status.Action = st.Action()
		out.Status.Message = st.Message()
		out.Status.At = st.At()
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
