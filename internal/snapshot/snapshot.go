// Package snapshot records an existing directory as a structure so it can be
// rendered back into a diagram.
package snapshot

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/treeparse"
)

const (
	errorStatRootFormat      = "stat %s: %w"
	errorRootNotDirectory    = "%s is not a directory"
	errorReadDirectoryFormat = "reading directory %s: %w"
	warningSkipSubdirFormat  = "skipping subdirectory %s: %v"
)

// Options configures a snapshot.
type Options struct {
	Filesystem afero.Fs
	Exclusions *materialize.Exclusions
	// Warn receives unreadable subdirectories. Nil drops them.
	Warn func(message string)
}

// Take walks rootDirectory and returns its directories and files as a structure
// in name order, directories before their contents.
func Take(rootDirectory string, options Options) (treeparse.Structure, error) {
	if options.Filesystem == nil {
		options.Filesystem = afero.NewOsFs()
	}
	if options.Warn == nil {
		options.Warn = func(string) {}
	}
	info, statError := options.Filesystem.Stat(rootDirectory)
	if statError != nil {
		return treeparse.Structure{}, fmt.Errorf(errorStatRootFormat, rootDirectory, statError)
	}
	if !info.IsDir() {
		return treeparse.Structure{}, fmt.Errorf(errorRootNotDirectory, rootDirectory)
	}
	var entries []treeparse.Entry
	if err := collect(options, rootDirectory, "", 0, &entries); err != nil {
		return treeparse.Structure{}, err
	}
	return treeparse.NewStructure(entries...), nil
}

func collect(options Options, directoryPath string, relativeDirectory string, depth int, entries *[]treeparse.Entry) error {
	directoryEntries, readError := afero.ReadDir(options.Filesystem, directoryPath)
	if readError != nil {
		return fmt.Errorf(errorReadDirectoryFormat, directoryPath, readError)
	}
	for _, directoryEntry := range directoryEntries {
		entry := treeparse.Entry{
			Path:  path.Join(relativeDirectory, directoryEntry.Name()),
			Kind:  kindOf(directoryEntry),
			Depth: depth,
		}
		if options.Exclusions.Excludes(entry) {
			continue
		}
		*entries = append(*entries, entry)
		if entry.Kind != treeparse.Directory {
			continue
		}
		childPath := filepath.Join(directoryPath, directoryEntry.Name())
		if err := collect(options, childPath, entry.Path, depth+1, entries); err != nil {
			options.Warn(fmt.Sprintf(warningSkipSubdirFormat, childPath, err))
		}
	}
	return nil
}

func kindOf(info os.FileInfo) treeparse.Kind {
	if info.IsDir() {
		return treeparse.Directory
	}
	return treeparse.File
}
