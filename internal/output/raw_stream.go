package output

import (
	"fmt"
	"io"

	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/services/stream"
	"github.com/tyemirov/mktree/internal/types"
	"github.com/tyemirov/mktree/internal/utils"
)

const (
	createdRootFormat       = "Created root directory: %s\n"
	existingRootFormat      = "Using existing root directory: %s\n"
	checkedRootFormat       = "Root directory exists: %s\n"
	missingRootFormat       = "Root directory missing: %s\n"
	createdDirectoryFormat  = "Created directory: %s\n"
	createdParentFormat     = "Created parent directory: %s\n"
	existingDirectoryFormat = "Directory exists: %s\n"
	missingDirectoryFormat  = "Directory missing: %s\n"
	createdFileFormat       = "Created file: %s\n"
	existingFileFormat      = "File exists: %s\n"
	missingFileFormat       = "File missing: %s\n"
	skippedEntryFormat      = "Skipped: %s\n"
	failedEntryFormat       = "Failed: %s (%s)\n"

	statisticsHeader      = "\nStatistics:"
	checkResultsHeader    = "\nCheck results:"
	countLineFormat       = "%s: %d\n"
	completedMessage      = "\nOperation completed successfully!"
	completedWithFailures = "\nOperation completed with %s.\n"
	checkCompletedFormat  = "\nCheck completed. Structure is %s\n"
	structureComplete     = "complete"
	structureIncomplete   = "incomplete"
)

type rawStreamRenderer struct {
	stdout  io.Writer
	stderr  io.Writer
	summary *types.OperationSummary
}

// NewRawStreamRenderer prints one console line per outcome and a statistics
// block when flushed.
func NewRawStreamRenderer(stdout, stderr io.Writer) StreamRenderer {
	return &rawStreamRenderer{stdout: stdout, stderr: stderr}
}

func (renderer *rawStreamRenderer) Handle(event stream.Event) error {
	if handled, err := writeDiagnostics(renderer.stderr, event); handled {
		return err
	}
	switch event.Kind {
	case stream.EventKindRoot:
		return renderer.handleRoot(event.Command, event.Root)
	case stream.EventKindEntry:
		return renderer.handleEntry(event.Command, event.Entry)
	case stream.EventKindSummary:
		renderer.summary = event.Summary
	}
	return nil
}

func (renderer *rawStreamRenderer) Flush() error {
	if renderer.stdout == nil || renderer.summary == nil {
		return nil
	}
	summary := renderer.summary
	if summary.Command == types.CommandCheck {
		fmt.Fprintln(renderer.stdout, checkResultsHeader)
		renderer.writeCounts([]countLine{
			{label: "Existing directories", value: summary.ExistingDirs, always: true},
			{label: "Missing directories", value: summary.MissingDirs, always: true},
			{label: "Existing files", value: summary.ExistingFiles, always: true},
			{label: "Missing files", value: summary.MissingFiles, always: true},
			{label: "Skipped entries", value: summary.Skipped},
			{label: "Failed entries", value: summary.Failed},
		})
		state := structureComplete
		if summary.MissingDirs > 0 || summary.MissingFiles > 0 || summary.Failed > 0 {
			state = structureIncomplete
		}
		_, err := fmt.Fprintf(renderer.stdout, checkCompletedFormat, state)
		return err
	}

	fmt.Fprintln(renderer.stdout, statisticsHeader)
	renderer.writeCounts([]countLine{
		{label: "Directories created", value: summary.DirectoriesCreated, always: true},
		{label: "Files created", value: summary.FilesCreated, always: true},
		{label: "Existing directories", value: summary.ExistingDirs, always: true},
		{label: "Existing files", value: summary.ExistingFiles, always: true},
		{label: "Skipped entries", value: summary.Skipped},
		{label: "Failed entries", value: summary.Failed},
	})
	if summary.Failed > 0 {
		_, err := fmt.Fprintf(renderer.stdout, completedWithFailures, utils.CountLabel(summary.Failed, "failure", "failures"))
		return err
	}
	_, err := fmt.Fprintln(renderer.stdout, completedMessage)
	return err
}

type countLine struct {
	label  string
	value  int
	always bool
}

func (renderer *rawStreamRenderer) writeCounts(lines []countLine) {
	for _, line := range lines {
		if line.always || line.value > 0 {
			fmt.Fprintf(renderer.stdout, countLineFormat, line.label, line.value)
		}
	}
}

func (renderer *rawStreamRenderer) handleRoot(command string, root *stream.RootEvent) error {
	if root == nil {
		return nil
	}
	path := displayPath(root.FullPath, types.KindDirectory)
	var format string
	switch {
	case root.Outcome == types.OutcomeFailed:
		return renderer.writeFailure(path, "", "")
	case command == types.CommandCheck && root.Outcome == types.OutcomeExists:
		format = checkedRootFormat
	case command == types.CommandCheck:
		format = missingRootFormat
	case root.Outcome == types.OutcomeCreated:
		format = createdRootFormat
	default:
		format = existingRootFormat
	}
	return renderer.writeLine(format, path)
}

func (renderer *rawStreamRenderer) handleEntry(command string, entry *stream.EntryEvent) error {
	if entry == nil {
		return nil
	}
	path := displayPath(entry.FullPath, entry.Kind)
	isDirectory := entry.Kind == types.KindDirectory
	switch entry.Outcome {
	case types.OutcomeFailed:
		return renderer.writeFailure(path, entry.Detail, entry.Error)
	case types.OutcomeSkipped:
		return renderer.writeLine(skippedEntryFormat, path)
	case types.OutcomeCreated:
		switch {
		case isDirectory && entry.Detail == materialize.ParentDirectoryDetail:
			return renderer.writeLine(createdParentFormat, path)
		case isDirectory:
			return renderer.writeLine(createdDirectoryFormat, path)
		default:
			return renderer.writeLine(createdFileFormat, path)
		}
	case types.OutcomeExists:
		if isDirectory {
			return renderer.writeLine(existingDirectoryFormat, path)
		}
		return renderer.writeLine(existingFileFormat, path)
	case types.OutcomeMissing:
		if isDirectory {
			return renderer.writeLine(missingDirectoryFormat, path)
		}
		return renderer.writeLine(missingFileFormat, path)
	}
	return nil
}

func (renderer *rawStreamRenderer) writeLine(format string, path string) error {
	if renderer.stdout == nil {
		return nil
	}
	_, err := fmt.Fprintf(renderer.stdout, format, path)
	return err
}

func (renderer *rawStreamRenderer) writeFailure(path string, detail string, cause string) error {
	if renderer.stderr == nil {
		return nil
	}
	reason := detail
	if cause != "" {
		reason = cause
	}
	if reason == "" {
		reason = types.OutcomeFailed
	}
	_, err := fmt.Fprintf(renderer.stderr, failedEntryFormat, path, reason)
	return err
}
