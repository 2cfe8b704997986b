// Package types defines every cross‑package data structure used by the mktree CLI.
package types

import "encoding/xml"

const (
	KindDirectory = "directory"
	KindFile      = "file"

	CommandApply = "apply"
	CommandCheck = "check"
	CommandParse = "parse"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatYAML = "yaml"
	FormatTree = "tree"

	OutcomeCreated = "created"
	OutcomeExists  = "exists"
	OutcomeMissing = "missing"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// EntryOutput is the serialized form of one parsed structure entry.
type EntryOutput struct {
	XMLName xml.Name `json:"-" xml:"entry" yaml:"-"`
	Path    string   `json:"path" xml:"path,attr" yaml:"path"`
	Kind    string   `json:"kind" xml:"kind,attr" yaml:"kind"`
	Line    int      `json:"line,omitempty" xml:"line,attr,omitempty" yaml:"line,omitempty"`
	Depth   int      `json:"depth" xml:"depth,attr" yaml:"depth"`
}

// StructureOutput is the serialized form of a parsed structure file.
type StructureOutput struct {
	XMLName     xml.Name      `json:"-" xml:"structure" yaml:"-"`
	Root        string        `json:"root,omitempty" xml:"root,attr,omitempty" yaml:"root,omitempty"`
	Directories int           `json:"directories" xml:"directories,attr" yaml:"directories"`
	Files       int           `json:"files" xml:"files,attr" yaml:"files"`
	Entries     []EntryOutput `json:"entries" xml:"entry" yaml:"entries"`
}

// OperationSummary captures aggregate counts of an apply or check run.
type OperationSummary struct {
	Command            string `json:"command" xml:"command,attr"`
	DirectoriesCreated int    `json:"directoriesCreated,omitempty" xml:"directoriesCreated,omitempty"`
	FilesCreated       int    `json:"filesCreated,omitempty" xml:"filesCreated,omitempty"`
	ExistingDirs       int    `json:"existingDirectories" xml:"existingDirectories"`
	ExistingFiles      int    `json:"existingFiles" xml:"existingFiles"`
	MissingDirs        int    `json:"missingDirectories,omitempty" xml:"missingDirectories,omitempty"`
	MissingFiles       int    `json:"missingFiles,omitempty" xml:"missingFiles,omitempty"`
	Skipped            int    `json:"skipped,omitempty" xml:"skipped,omitempty"`
	Failed             int    `json:"failed,omitempty" xml:"failed,omitempty"`
}
