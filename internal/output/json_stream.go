package output

import (
	"encoding/json"
	"io"

	"github.com/tyemirov/mktree/internal/services/stream"
)

const (
	jsonArrayOpen       = "[\n"
	jsonArrayClose      = "\n]\n"
	jsonEmptyArray      = "[]\n"
	jsonElementSeparate = ",\n"
)

type jsonStreamRenderer struct {
	stdout       io.Writer
	stderr       io.Writer
	arrayOpened  bool
	elementCount int
}

// NewJSONStreamRenderer writes every non-diagnostic event as an element of a
// single JSON array. Warnings and errors go to stderr.
func NewJSONStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &jsonStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *jsonStreamRenderer) Handle(event stream.Event) error {
	if handled, err := writeDiagnostics(renderer.stderr, event); handled {
		return err
	}
	if renderer.stdout == nil {
		return nil
	}
	encoded, err := json.MarshalIndent(event, indentSpacer, indentSpacer)
	if err != nil {
		return err
	}
	separator := jsonElementSeparate
	if !renderer.arrayOpened {
		separator = jsonArrayOpen
		renderer.arrayOpened = true
	}
	if _, err := io.WriteString(renderer.stdout, separator+indentSpacer); err != nil {
		return err
	}
	if _, err := renderer.stdout.Write(encoded); err != nil {
		return err
	}
	renderer.elementCount++
	return nil
}

func (renderer *jsonStreamRenderer) Flush() error {
	if renderer.stdout == nil {
		return nil
	}
	if !renderer.arrayOpened {
		_, err := io.WriteString(renderer.stdout, jsonEmptyArray)
		return err
	}
	_, err := io.WriteString(renderer.stdout, jsonArrayClose)
	return err
}
