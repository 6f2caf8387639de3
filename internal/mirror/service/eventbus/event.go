package eventbus

import (
	"bytes"
	"reflect"

	"github.com/gin-contrib/sse"
	"github.com/kiosk404/mirror/pkg/utils/json"
)

// VolatileKey is the payload key ignored when comparing events.
const VolatileKey = "_time"

// Event is a named payload. Data is either a mapping or pre-rendered markup;
// the bus never inspects it beyond equality checks.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// NewEvent returns an Event.
func NewEvent(name string, data any) Event {
	return Event{Name: name, Data: data}
}

// Equal reports whether e and o carry the same name and payload, ignoring
// VolatileKey in mapping payloads. Payloads are compared by their canonical
// JSON form, so 72 and 72.0 are equal.
func (e Event) Equal(o Event) bool {
	if e.Name != o.Name {
		return false
	}
	a, b := stripVolatile(e.Data), stripVolatile(o.Data)
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ab, bb)
}

// SSE renders the event for a text/event-stream response. String payloads
// are written as-is, anything else as JSON.
func (e Event) SSE() sse.Event {
	return sse.Event{Event: e.Name, Data: e.Data}
}

func stripVolatile(data any) any {
	m, ok := data.(map[string]any)
	if !ok {
		return data
	}
	if _, ok := m[VolatileKey]; !ok {
		return m
	}
	out := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != VolatileKey {
			out[k] = v
		}
	}
	return out
}
