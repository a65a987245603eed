package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"robotfleet/internal/fleet"
)

// JSONStdoutRenderer prints each view model as one JSON line.
type JSONStdoutRenderer struct {
	out io.Writer
}

// NewJSONStdoutRenderer creates a JSONStdoutRenderer writing to os.Stdout.
func NewJSONStdoutRenderer() *JSONStdoutRenderer {
	return &JSONStdoutRenderer{out: os.Stdout}
}

// Render implements fleet.Renderer.
func (r *JSONStdoutRenderer) Render(vm fleet.ViewModel) error {
	data, err := json.Marshal(vm)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}
