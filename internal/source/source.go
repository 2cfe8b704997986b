// Package source loads structure diagrams from files, standard input or the clipboard.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/tyemirov/mktree/internal/services/clipboard"
	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/utils"
)

const (
	clipboardDescription = "clipboard"
	stdinDescription     = "standard input"

	missingInputFileErrorFormat = "%w: %s"
	openInputErrorFormat        = "open %s: %w"
	readInputErrorFormat        = "read %s: %w"
	clipboardReadErrorFormat    = "read clipboard: %w"
)

// ErrMissingInputFile is returned when the structure file does not exist.
var ErrMissingInputFile = errors.New("structure file not found")

// Options selects where the diagram comes from.
type Options struct {
	// Path is a file path or "-" for standard input. Empty means the default structure file.
	Path string
	// UseClipboard reads the diagram from the system clipboard and ignores Path.
	UseClipboard bool

	Filesystem afero.Fs
	Stdin      io.Reader
	Clipboard  clipboard.Reader
}

// Input is a loaded diagram with the description of where it came from.
type Input struct {
	Description string
	Lines       []string
}

// Load reads and normalizes the diagram lines.
func Load(options Options) (Input, error) {
	if options.UseClipboard {
		return loadClipboard(options.Clipboard)
	}
	path := strings.TrimSpace(options.Path)
	if path == "" {
		path = utils.DefaultStructureFileName
	}
	if path == utils.StandardInputPath {
		return loadReader(stdinDescription, options.Stdin)
	}
	return loadFile(options.Filesystem, path)
}

func loadClipboard(reader clipboard.Reader) (Input, error) {
	if reader == nil {
		reader = clipboard.NewService()
	}
	text, err := reader.Read()
	if err != nil {
		return Input{}, fmt.Errorf(clipboardReadErrorFormat, err)
	}
	return Input{Description: clipboardDescription, Lines: treeparse.SplitLines(text)}, nil
}

func loadReader(description string, reader io.Reader) (Input, error) {
	if reader == nil {
		reader = os.Stdin
	}
	lines, err := treeparse.ReadLines(reader)
	if err != nil {
		return Input{}, fmt.Errorf(readInputErrorFormat, description, err)
	}
	return Input{Description: description, Lines: lines}, nil
}

func loadFile(filesystem afero.Fs, path string) (Input, error) {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	file, err := filesystem.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Input{}, fmt.Errorf(missingInputFileErrorFormat, ErrMissingInputFile, path)
		}
		return Input{}, fmt.Errorf(openInputErrorFormat, path, err)
	}
	defer file.Close()
	return loadReader(path, file)
}
