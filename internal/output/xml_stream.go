package output

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/tyemirov/mktree/internal/services/stream"
)

const (
	xmlEventsOpen  = "<events>\n"
	xmlEventsClose = "</events>\n"
)

type xmlStreamRenderer struct {
	stdout  io.Writer
	stderr  io.Writer
	encoder *xml.Encoder
	started bool
}

// NewXMLStreamRenderer writes events as children of a single <events> element.
func NewXMLStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &xmlStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *xmlStreamRenderer) Handle(event stream.Event) error {
	if _, err := writeDiagnostics(renderer.stderr, event); err != nil {
		return err
	}
	return renderer.writeEvent(event)
}

func (renderer *xmlStreamRenderer) Flush() error {
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	if renderer.encoder != nil {
		if err := renderer.encoder.Flush(); err != nil {
			return err
		}
	}
	if renderer.started && renderer.stdout != nil {
		if _, err := io.WriteString(renderer.stdout, xmlEventsClose); err != nil {
			return err
		}
	}
	return nil
}

func (renderer *xmlStreamRenderer) ensureEncoder() error {
	if renderer.stdout == nil || renderer.started {
		return nil
	}
	if _, err := io.WriteString(renderer.stdout, xmlHeader); err != nil {
		return err
	}
	if _, err := io.WriteString(renderer.stdout, xmlEventsOpen); err != nil {
		return err
	}
	renderer.encoder = xml.NewEncoder(renderer.stdout)
	renderer.encoder.Indent(indentSpacer, indentSpacer)
	renderer.started = true
	return nil
}

func (renderer *xmlStreamRenderer) writeEvent(event stream.Event) error {
	if renderer.stdout == nil {
		return nil
	}
	if err := renderer.ensureEncoder(); err != nil {
		return err
	}
	start := xml.StartElement{Name: xml.Name{Local: "event"}}
	addAttribute := func(name string, value string) {
		if value != "" {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: value})
		}
	}
	addAttribute("version", strconv.Itoa(event.Version))
	addAttribute("kind", string(event.Kind))
	addAttribute("command", event.Command)
	addAttribute("path", event.Path)
	if !event.EmittedAt.IsZero() {
		addAttribute("emittedAt", event.EmittedAt.Format(time.RFC3339Nano))
	}
	if err := renderer.encoder.EncodeToken(start); err != nil {
		return err
	}
	encodeElement := func(name string, value interface{}) error {
		return renderer.encoder.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
	}
	if event.Root != nil {
		if err := encodeElement("root", event.Root); err != nil {
			return err
		}
	}
	if event.Entry != nil {
		if err := encodeElement("entry", event.Entry); err != nil {
			return err
		}
	}
	if event.Summary != nil {
		if err := encodeElement("summary", event.Summary); err != nil {
			return err
		}
	}
	if event.Message != nil {
		if err := encodeElement("message", event.Message); err != nil {
			return err
		}
	}
	if event.Err != nil {
		if err := encodeElement("error", event.Err); err != nil {
			return err
		}
	}
	if err := renderer.encoder.EncodeToken(start.End()); err != nil {
		return err
	}
	if err := renderer.encoder.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(renderer.stdout, "\n")
	return err
}
