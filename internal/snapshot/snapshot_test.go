package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/types"
)

func seedFilesystem(t *testing.T) afero.Fs {
	t.Helper()
	filesystem := afero.NewMemMapFs()
	for _, directory := range []string{"proj/cmd", "proj/internal/store", "proj/vendor/lib"} {
		require.NoError(t, filesystem.MkdirAll(directory, 0o755))
	}
	for _, file := range []string{"proj/go.mod", "proj/cmd/main.go", "proj/internal/store/store.go", "proj/vendor/lib/lib.go"} {
		require.NoError(t, afero.WriteFile(filesystem, file, []byte("x"), 0o644))
	}
	return filesystem
}

func TestTakeListsDirectoriesBeforeContents(t *testing.T) {
	t.Parallel()

	structure, err := Take("proj", Options{Filesystem: seedFilesystem(t)})
	require.NoError(t, err)

	var paths []string
	for _, entry := range structure.Entries() {
		paths = append(paths, entry.Path)
		assert.Equal(t, strings.Count(entry.Path, "/"), entry.Depth)
	}
	assert.Equal(t, []string{
		"cmd", "cmd/main.go",
		"go.mod",
		"internal", "internal/store", "internal/store/store.go",
		"vendor", "vendor/lib", "vendor/lib/lib.go",
	}, paths)
	directories, files := structure.Counts()
	assert.Equal(t, 5, directories)
	assert.Equal(t, 4, files)
}

func TestTakeHonorsExclusions(t *testing.T) {
	t.Parallel()

	structure, err := Take("proj", Options{
		Filesystem: seedFilesystem(t),
		Exclusions: materialize.NewExclusions([]string{"vendor/", "*.mod"}),
	})
	require.NoError(t, err)
	_, vendorFound := structure.Lookup("vendor")
	_, modFound := structure.Lookup("go.mod")
	assert.False(t, vendorFound)
	assert.False(t, modFound)
	assert.Equal(t, 5, structure.Len())
}

func TestTakeRejectsMissingAndNonDirectoryRoots(t *testing.T) {
	t.Parallel()

	filesystem := seedFilesystem(t)
	_, missingError := Take("absent", Options{Filesystem: filesystem})
	assert.True(t, errors.Is(missingError, os.ErrNotExist))

	_, fileError := Take("proj/go.mod", Options{Filesystem: filesystem})
	assert.ErrorContains(t, fileError, "is not a directory")
}

func TestSnapshotRendersADiagramThatRecreatesTheDirectory(t *testing.T) {
	t.Parallel()

	source := seedFilesystem(t)
	structure, err := Take("proj", Options{Filesystem: source})
	require.NoError(t, err)

	var diagram bytes.Buffer
	require.NoError(t, output.RenderStructure(&diagram, types.FormatTree, structure.Output("proj")))

	lines := treeparse.SplitLines(diagram.String())
	root, found := treeparse.DetectRoot(lines)
	require.True(t, found)
	assert.Equal(t, "proj", root)
	reparsed := treeparse.Parse(lines, true)

	var expected, actual []string
	for _, entry := range structure.Entries() {
		expected = append(expected, entry.Kind.String()+":"+entry.Path)
	}
	for _, entry := range reparsed.Entries() {
		actual = append(actual, entry.Kind.String()+":"+entry.Path)
	}
	assert.Equal(t, expected, actual)

	target := afero.NewMemMapFs()
	stats, applyError := materialize.Apply(context.Background(), materialize.Options{Filesystem: target, BaseDirectory: "copy"}, reparsed)
	require.NoError(t, applyError)
	assert.Equal(t, 5, stats.DirectoriesCreated)
	assert.Equal(t, 4, stats.FilesCreated)
}
