package output

import (
	"fmt"
	"io"

	"github.com/tyemirov/mktree/internal/services/stream"
	"github.com/tyemirov/mktree/internal/types"
)

const directorySuffix = "/"

// displayPath renders a path the way the console output shows it, with a
// trailing slash on directories.
func displayPath(path string, kind string) string {
	if kind == types.KindDirectory {
		return path + directorySuffix
	}
	return path
}

// writeDiagnostics echoes warning and error events to stderr and reports
// whether the event was one of them.
func writeDiagnostics(stderr io.Writer, event stream.Event) (bool, error) {
	switch event.Kind {
	case stream.EventKindWarning:
		if event.Message != nil && stderr != nil {
			_, err := fmt.Fprintln(stderr, event.Message.Message)
			return true, err
		}
		return true, nil
	case stream.EventKindError:
		if event.Err != nil && stderr != nil {
			_, err := fmt.Fprintln(stderr, event.Err.Message)
			return true, err
		}
		return true, nil
	default:
		return false, nil
	}
}
