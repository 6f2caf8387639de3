package layout

import (
	"strings"
)

// NoContent is returned by the rotator when no widget has anything to show.
const NoContent = "<!-- No content -->"

// RenderFunc renders a widget id with the given rotation counter.
type RenderFunc func(id string, n int) (string, error)

// Rotation is the result of one rotator step.
type Rotation struct {
	HTML      string `json:"html"`
	NextIndex int    `json:"next_index"`
	NextN     int    `json:"next_n"`
}

// Rotate renders the first widget with content, starting at index and
// wrapping around once. n counts completed passes over the list and grows
// each time the rotation wraps. Widgets that fail to render count as empty.
func Rotate(widgets []string, index, n int, render RenderFunc) Rotation {
	if len(widgets) == 0 {
		return Rotation{HTML: NoContent}
	}
	if index < 0 || index >= len(widgets) {
		index = 0
	}

	next := Rotation{HTML: NoContent, NextIndex: index, NextN: n}
	for range widgets {
		html, err := render(widgets[index], n)
		html = strings.TrimSpace(html)

		if index+1 == len(widgets) {
			next.NextIndex, next.NextN = 0, n+1
		} else {
			next.NextIndex, next.NextN = index+1, n
		}
		if err == nil && html != "" {
			next.HTML = html
			return next
		}
		index, n = next.NextIndex, next.NextN
	}
	return next
}
