// Package materialize creates or verifies the paths of a parsed structure on a filesystem.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/types"
)

const (
	// DefaultDirectoryMode is applied to created directories.
	DefaultDirectoryMode os.FileMode = 0o755
	// DefaultFileMode is applied to created files.
	DefaultFileMode os.FileMode = 0o644

	// ParentDirectoryDetail marks a directory created implicitly for a file entry.
	ParentDirectoryDetail = "parent directory"

	conflictFileDetail      = "a file occupies the directory path"
	conflictDirectoryDetail = "a directory occupies the file path"
	excludedDetail          = "excluded by pattern"

	statErrorFormat   = "stat %s: %w"
	mkdirErrorFormat  = "mkdir %s: %w"
	createErrorFormat = "create %s: %w"
	closeErrorFormat  = "close %s: %w"
)

// Result describes what happened to a single path.
type Result struct {
	Path     string
	FullPath string
	Kind     treeparse.Kind
	Outcome  string
	Detail   string
	Err      error
}

// Observer receives every result as soon as it is known.
type Observer func(Result)

// Options configures Apply and Check.
type Options struct {
	Filesystem    afero.Fs
	BaseDirectory string
	DirectoryMode os.FileMode
	FileMode      os.FileMode
	Exclusions    *Exclusions
	Observer      Observer
}

func (options Options) withDefaults() Options {
	if options.Filesystem == nil {
		options.Filesystem = afero.NewOsFs()
	}
	if options.DirectoryMode == 0 {
		options.DirectoryMode = DefaultDirectoryMode
	}
	if options.FileMode == 0 {
		options.FileMode = DefaultFileMode
	}
	return options
}

func (options Options) fullPath(relativePath string) string {
	nativePath := filepath.FromSlash(relativePath)
	if options.BaseDirectory == "" {
		return nativePath
	}
	return filepath.Join(options.BaseDirectory, nativePath)
}

func (options Options) report(result Result) {
	if options.Observer != nil {
		options.Observer(result)
	}
}

// ApplyStats tallies an Apply run.
type ApplyStats struct {
	DirectoriesCreated  int
	FilesCreated        int
	ExistingDirectories int
	ExistingFiles       int
	Skipped             int
	Failures            []Result
}

// Summary converts the stats into their serialized form.
func (stats ApplyStats) Summary() types.OperationSummary {
	return types.OperationSummary{
		Command:            types.CommandApply,
		DirectoriesCreated: stats.DirectoriesCreated,
		FilesCreated:       stats.FilesCreated,
		ExistingDirs:       stats.ExistingDirectories,
		ExistingFiles:      stats.ExistingFiles,
		Skipped:            stats.Skipped,
		Failed:             len(stats.Failures),
	}
}

// CheckStats tallies a Check run.
type CheckStats struct {
	ExistingDirectories int
	MissingDirectories  int
	ExistingFiles       int
	MissingFiles        int
	Skipped             int
	Failures            []Result
}

// OK reports whether every checked path exists and nothing failed.
func (stats CheckStats) OK() bool {
	return stats.MissingDirectories == 0 && stats.MissingFiles == 0 && len(stats.Failures) == 0
}

// Summary converts the stats into their serialized form.
func (stats CheckStats) Summary() types.OperationSummary {
	return types.OperationSummary{
		Command:       types.CommandCheck,
		ExistingDirs:  stats.ExistingDirectories,
		ExistingFiles: stats.ExistingFiles,
		MissingDirs:   stats.MissingDirectories,
		MissingFiles:  stats.MissingFiles,
		Skipped:       stats.Skipped,
		Failed:        len(stats.Failures),
	}
}

// EnsureDirectory creates a single directory, typically the declared root, and
// reports whether it was created or already present.
func EnsureDirectory(options Options, relativePath string) Result {
	options = options.withDefaults()
	result := ensureDirectory(options, relativePath)
	options.report(result)
	return result
}

// CheckDirectory reports whether a single directory exists without creating it.
func CheckDirectory(options Options, relativePath string) Result {
	options = options.withDefaults()
	result := checkEntry(options, treeparse.Entry{Path: relativePath, Kind: treeparse.Directory})
	options.report(result)
	return result
}

// Apply creates every directory and empty file of the structure that does not exist.
// Per-entry failures are recorded and do not stop the run; only cancellation does.
func Apply(ctx context.Context, options Options, structure treeparse.Structure) (ApplyStats, error) {
	options = options.withDefaults()
	var stats ApplyStats
	for _, entry := range structure.Entries() {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if options.Exclusions.Excludes(entry) {
			stats.Skipped++
			options.report(skippedResult(options, entry))
			continue
		}
		switch entry.Kind {
		case treeparse.Directory:
			result := ensureDirectory(options, entry.Path)
			stats.addDirectory(result)
			options.report(result)
		case treeparse.File:
			parentResult, parentCreated := ensureParent(options, entry.Path)
			if parentCreated || parentResult.Outcome == types.OutcomeFailed {
				stats.addDirectory(parentResult)
				options.report(parentResult)
			}
			if parentResult.Outcome == types.OutcomeFailed {
				continue
			}
			result := ensureFile(options, entry.Path)
			stats.addFile(result)
			options.report(result)
		}
	}
	return stats, nil
}

// Check reports which entries of the structure exist without changing the filesystem.
// An entry whose path exists with the other kind counts as missing.
func Check(ctx context.Context, options Options, structure treeparse.Structure) (CheckStats, error) {
	options = options.withDefaults()
	var stats CheckStats
	for _, entry := range structure.Entries() {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if options.Exclusions.Excludes(entry) {
			stats.Skipped++
			options.report(skippedResult(options, entry))
			continue
		}
		result := checkEntry(options, entry)
		stats.add(result)
		options.report(result)
	}
	return stats, nil
}

func (stats *ApplyStats) addDirectory(result Result) {
	switch result.Outcome {
	case types.OutcomeCreated:
		stats.DirectoriesCreated++
	case types.OutcomeExists:
		stats.ExistingDirectories++
	case types.OutcomeFailed:
		stats.Failures = append(stats.Failures, result)
	}
}

func (stats *ApplyStats) addFile(result Result) {
	switch result.Outcome {
	case types.OutcomeCreated:
		stats.FilesCreated++
	case types.OutcomeExists:
		stats.ExistingFiles++
	case types.OutcomeFailed:
		stats.Failures = append(stats.Failures, result)
	}
}

func (stats *CheckStats) add(result Result) {
	switch {
	case result.Outcome == types.OutcomeFailed:
		stats.Failures = append(stats.Failures, result)
	case result.Kind == treeparse.Directory && result.Outcome == types.OutcomeExists:
		stats.ExistingDirectories++
	case result.Kind == treeparse.Directory:
		stats.MissingDirectories++
	case result.Outcome == types.OutcomeExists:
		stats.ExistingFiles++
	default:
		stats.MissingFiles++
	}
}

func skippedResult(options Options, entry treeparse.Entry) Result {
	return Result{
		Path:     entry.Path,
		FullPath: options.fullPath(entry.Path),
		Kind:     entry.Kind,
		Outcome:  types.OutcomeSkipped,
		Detail:   excludedDetail,
	}
}

func ensureDirectory(options Options, relativePath string) Result {
	fullPath := options.fullPath(relativePath)
	result := Result{Path: relativePath, FullPath: fullPath, Kind: treeparse.Directory}
	info, statError := options.Filesystem.Stat(fullPath)
	switch {
	case statError == nil && info.IsDir():
		result.Outcome = types.OutcomeExists
	case statError == nil:
		result.Outcome = types.OutcomeFailed
		result.Detail = conflictFileDetail
	case errors.Is(statError, os.ErrNotExist):
		if mkdirError := options.Filesystem.MkdirAll(fullPath, options.DirectoryMode); mkdirError != nil {
			result.Outcome = types.OutcomeFailed
			result.Err = fmt.Errorf(mkdirErrorFormat, fullPath, mkdirError)
			return result
		}
		result.Outcome = types.OutcomeCreated
	default:
		result.Outcome = types.OutcomeFailed
		result.Err = fmt.Errorf(statErrorFormat, fullPath, statError)
	}
	return result
}

// ensureParent creates the parent directory of a file entry when it is absent.
// The boolean is true only when the parent was created by this call.
func ensureParent(options Options, relativePath string) (Result, bool) {
	parentPath := filepath.ToSlash(filepath.Dir(filepath.FromSlash(relativePath)))
	if parentPath == "." || parentPath == "" {
		return Result{Outcome: types.OutcomeExists}, false
	}
	result := ensureDirectory(options, parentPath)
	if result.Detail == "" {
		result.Detail = ParentDirectoryDetail
	}
	return result, result.Outcome == types.OutcomeCreated
}

func ensureFile(options Options, relativePath string) Result {
	fullPath := options.fullPath(relativePath)
	result := Result{Path: relativePath, FullPath: fullPath, Kind: treeparse.File}
	info, statError := options.Filesystem.Stat(fullPath)
	switch {
	case statError == nil && info.IsDir():
		result.Outcome = types.OutcomeFailed
		result.Detail = conflictDirectoryDetail
	case statError == nil:
		result.Outcome = types.OutcomeExists
	case errors.Is(statError, os.ErrNotExist):
		file, createError := options.Filesystem.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, options.FileMode)
		if createError != nil {
			result.Outcome = types.OutcomeFailed
			result.Err = fmt.Errorf(createErrorFormat, fullPath, createError)
			return result
		}
		if closeError := file.Close(); closeError != nil {
			result.Outcome = types.OutcomeFailed
			result.Err = fmt.Errorf(closeErrorFormat, fullPath, closeError)
			return result
		}
		result.Outcome = types.OutcomeCreated
	default:
		result.Outcome = types.OutcomeFailed
		result.Err = fmt.Errorf(statErrorFormat, fullPath, statError)
	}
	return result
}

func checkEntry(options Options, entry treeparse.Entry) Result {
	fullPath := options.fullPath(entry.Path)
	result := Result{Path: entry.Path, FullPath: fullPath, Kind: entry.Kind}
	info, statError := options.Filesystem.Stat(fullPath)
	switch {
	case statError == nil && info.IsDir() == (entry.Kind == treeparse.Directory):
		result.Outcome = types.OutcomeExists
	case statError == nil && entry.Kind == treeparse.Directory:
		result.Outcome = types.OutcomeMissing
		result.Detail = conflictFileDetail
	case statError == nil:
		result.Outcome = types.OutcomeMissing
		result.Detail = conflictDirectoryDetail
	case errors.Is(statError, os.ErrNotExist):
		result.Outcome = types.OutcomeMissing
	default:
		result.Outcome = types.OutcomeFailed
		result.Err = fmt.Errorf(statErrorFormat, fullPath, statError)
	}
	return result
}
