package submission

import (
	"fmt"
	"io"
)

// Event is emitted on every state transition.
type Event struct {
	Type  string `json:"type"` // "submitting", "succeeded", "failed", "discarded"
	State State  `json:"state"`
}

// Emitter receives transition events.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// TextEmitter writes transitions as plain lines, for non-interactive output.
type TextEmitter struct {
	W io.Writer
}

// Emit writes a formatted progress line to the underlying writer.
func (e *TextEmitter) Emit(ev Event) {
	switch ev.Type {
	case "submitting":
		fmt.Fprintln(e.W, "Submitting assessment...")
	case "succeeded":
		fmt.Fprintln(e.W, "Prediction received.")
	case "failed":
		fmt.Fprintf(e.W, "Error: %s\n", ev.State.Error)
	}
}
