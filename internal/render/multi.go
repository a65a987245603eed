package render

import "robotfleet/internal/fleet"

// MultiRenderer fans a view model out to several renderers.
type MultiRenderer struct {
	renderers []fleet.Renderer
}

// NewMultiRenderer creates a MultiRenderer.
func NewMultiRenderer(rs ...fleet.Renderer) *MultiRenderer {
	return &MultiRenderer{renderers: rs}
}

// Render calls every renderer and returns the first error. A failing
// renderer does not prevent the others from running.
func (m *MultiRenderer) Render(vm fleet.ViewModel) error {
	var first error
	for _, r := range m.renderers {
		if err := r.Render(vm); err != nil && first == nil {
			first = err
		}
	}
	return first
}
