package treeparse

import (
	"github.com/tyemirov/mktree/internal/types"
)

// Kind distinguishes directories from files.
type Kind int

const (
	// Directory marks an entry that names a directory.
	Directory Kind = iota + 1
	// File marks an entry that names a regular file.
	File
)

// String returns the serialized kind name.
func (kind Kind) String() string {
	switch kind {
	case Directory:
		return types.KindDirectory
	case File:
		return types.KindFile
	default:
		return "unknown"
	}
}

// Entry is one path recovered from the diagram.
type Entry struct {
	Path  string
	Kind  Kind
	Line  int
	Depth int
}

// SkippedLine records a non-decorative line that produced no entry.
type SkippedLine struct {
	Line    int
	Content string
}

// Structure is the ordered result of a parse keyed by relative path.
// A path declared twice keeps its first position and its latest kind.
type Structure struct {
	order        []string
	entries      map[string]Entry
	rootLine     int
	rootConsumed bool
	skipped      []SkippedLine
}

func newStructure(rootConsumed bool) Structure {
	return Structure{entries: map[string]Entry{}, rootConsumed: rootConsumed}
}

// NewStructure builds a structure from entries with the same last-write-wins rule
// as Parse.
func NewStructure(entries ...Entry) Structure {
	structure := newStructure(false)
	for _, entry := range entries {
		structure.record(entry)
	}
	return structure
}

func (structure *Structure) record(entry Entry) {
	if _, exists := structure.entries[entry.Path]; !exists {
		structure.order = append(structure.order, entry.Path)
	}
	structure.entries[entry.Path] = entry
}

// Entries returns the entries in source order.
func (structure Structure) Entries() []Entry {
	result := make([]Entry, 0, len(structure.order))
	for _, path := range structure.order {
		result = append(result, structure.entries[path])
	}
	return result
}

// Lookup returns the entry recorded for path.
func (structure Structure) Lookup(path string) (Entry, bool) {
	entry, found := structure.entries[path]
	return entry, found
}

// Len returns the number of distinct paths.
func (structure Structure) Len() int {
	return len(structure.order)
}

// Counts returns the number of directory and file entries.
func (structure Structure) Counts() (directories int, files int) {
	for _, entry := range structure.entries {
		switch entry.Kind {
		case Directory:
			directories++
		case File:
			files++
		}
	}
	return directories, files
}

// RootLine returns the 1-based line number of the suppressed root line, or 0.
func (structure Structure) RootLine() int {
	return structure.rootLine
}

// RootConsumed reports whether the caller materialized the root separately.
func (structure Structure) RootConsumed() bool {
	return structure.rootConsumed
}

// Skipped returns the lines that had neither a branch marker nor a directory shape.
func (structure Structure) Skipped() []SkippedLine {
	return append([]SkippedLine(nil), structure.skipped...)
}

// Output converts the structure into its serialized form.
func (structure Structure) Output(root string) types.StructureOutput {
	directories, files := structure.Counts()
	result := types.StructureOutput{
		Root:        root,
		Directories: directories,
		Files:       files,
		Entries:     make([]types.EntryOutput, 0, structure.Len()),
	}
	for _, entry := range structure.Entries() {
		result.Entries = append(result.Entries, types.EntryOutput{
			Path:  entry.Path,
			Kind:  entry.Kind.String(),
			Line:  entry.Line,
			Depth: entry.Depth,
		})
	}
	return result
}
