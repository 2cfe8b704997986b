package stream

import (
	"encoding/xml"
	"time"

	"github.com/tyemirov/mktree/internal/types"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart   EventKind = "start"
	EventKindRoot    EventKind = "root"
	EventKindEntry   EventKind = "entry"
	EventKindSummary EventKind = "summary"
	EventKindWarning EventKind = "warning"
	EventKindError   EventKind = "error"
	EventKindDone    EventKind = "done"
)

type Event struct {
	XMLName   xml.Name  `json:"-" xml:"event"`
	Version   int       `json:"version" xml:"version,attr"`
	Kind      EventKind `json:"kind" xml:"kind,attr"`
	Command   string    `json:"command,omitempty" xml:"command,attr,omitempty"`
	Path      string    `json:"path,omitempty" xml:"path,attr,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitempty" xml:"emittedAt,attr,omitempty"`

	Root    *RootEvent              `json:"root,omitempty" xml:"root,omitempty"`
	Entry   *EntryEvent             `json:"entry,omitempty" xml:"entry,omitempty"`
	Summary *types.OperationSummary `json:"summary,omitempty" xml:"summary,omitempty"`
	Message *LogEvent               `json:"message,omitempty" xml:"message,omitempty"`
	Err     *ErrorEvent             `json:"error,omitempty" xml:"error,omitempty"`
}

// RootEvent reports the declared root directory used as the base of a run.
type RootEvent struct {
	Name     string `json:"name" xml:"name,attr"`
	FullPath string `json:"fullPath" xml:"fullPath,attr"`
	Outcome  string `json:"outcome" xml:"outcome,attr"`
}

// EntryEvent reports the outcome for one path of the structure.
type EntryEvent struct {
	Path     string `json:"path" xml:"path,attr"`
	FullPath string `json:"fullPath" xml:"fullPath,attr"`
	Kind     string `json:"kind" xml:"kind,attr"`
	Outcome  string `json:"outcome" xml:"outcome,attr"`
	Detail   string `json:"detail,omitempty" xml:"detail,attr,omitempty"`
	Line     int    `json:"line,omitempty" xml:"line,attr,omitempty"`
	Error    string `json:"error,omitempty" xml:"error,omitempty"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty" xml:"level,attr,omitempty"`
	Message string `json:"message" xml:",chardata"`
}

type ErrorEvent struct {
	Message string `json:"message" xml:",chardata"`
}
