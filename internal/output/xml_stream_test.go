package output_test

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/services/stream"
	"github.com/tyemirov/mktree/internal/types"
)

type decodedEvents struct {
	XMLName xml.Name `xml:"events"`
	Events  []struct {
		Kind  string `xml:"kind,attr"`
		Entry *struct {
			Path    string `xml:"path,attr"`
			Outcome string `xml:"outcome,attr"`
		} `xml:"entry"`
	} `xml:"event"`
}

func TestXMLStreamRendererOutputsSingleRoot(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	renderer := output.NewXMLStreamRenderer(&stdout, &stderr)

	events := []stream.Event{
		{Kind: stream.EventKindStart, Command: types.CommandCheck},
		{Kind: stream.EventKindWarning, Message: &stream.LogEvent{Level: "warning", Message: "xml warning"}},
		entryEvent(types.CommandCheck, "docs", types.KindDirectory, types.OutcomeMissing, ""),
		{Kind: stream.EventKindSummary, Command: types.CommandCheck, Summary: &types.OperationSummary{Command: types.CommandCheck, MissingDirs: 1}},
		{Kind: stream.EventKindDone},
	}
	for _, event := range events {
		if err := renderer.Handle(event); err != nil {
			t.Fatalf("handle event failed: %v", err)
		}
	}
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if !bytes.Contains(stderr.Bytes(), []byte("xml warning")) {
		t.Fatalf("expected warning on stderr, got %q", stderr.String())
	}
	var decoded decodedEvents
	if err := xml.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid XML output: %v\n%s", err, stdout.String())
	}
	if len(decoded.Events) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(decoded.Events))
	}
	entry := decoded.Events[2].Entry
	if entry == nil || entry.Path != "docs" || entry.Outcome != types.OutcomeMissing {
		t.Fatalf("unexpected entry element: %+v", entry)
	}
}

func TestXMLStreamRendererEmptyStreamIsWellFormed(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	renderer := output.NewXMLStreamRenderer(&stdout, nil)
	if err := renderer.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	var decoded decodedEvents
	if err := xml.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid XML output: %v\n%s", err, stdout.String())
	}
	if len(decoded.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(decoded.Events))
	}
}
