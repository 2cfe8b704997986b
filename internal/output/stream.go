package output

import (
	"github.com/tyemirov/mktree/internal/services/stream"
)

// StreamRenderer consumes run events as they are produced and writes the
// final block once the run completes.
type StreamRenderer interface {
	Handle(event stream.Event) error
	Flush() error
}
