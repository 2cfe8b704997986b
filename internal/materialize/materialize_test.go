package materialize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/types"
)

const sampleDiagram = `service/
├── cmd/
│   └── main.go
├── internal/
│   ├── store/
│   │   └── store.go
│   └── api.go
├── go.mod
└── README.md`

func parseSample(t *testing.T) treeparse.Structure {
	t.Helper()
	structure := treeparse.Parse(strings.Split(sampleDiagram, "\n"), true)
	require.Equal(t, 8, structure.Len())
	return structure
}

func TestApplyCreatesStructureAndIsIdempotent(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	structure := parseSample(t)
	options := Options{Filesystem: filesystem, BaseDirectory: "service"}

	firstStats, firstError := Apply(context.Background(), options, structure)
	require.NoError(t, firstError)
	assert.Equal(t, 3, firstStats.DirectoriesCreated)
	assert.Equal(t, 5, firstStats.FilesCreated)
	assert.Empty(t, firstStats.Failures)

	for _, entry := range structure.Entries() {
		info, statError := filesystem.Stat(filepath.Join("service", filepath.FromSlash(entry.Path)))
		require.NoErrorf(t, statError, "entry %s", entry.Path)
		assert.Equal(t, entry.Kind == treeparse.Directory, info.IsDir())
	}

	secondStats, secondError := Apply(context.Background(), options, structure)
	require.NoError(t, secondError)
	assert.Equal(t, 0, secondStats.DirectoriesCreated)
	assert.Equal(t, 0, secondStats.FilesCreated)
	assert.Equal(t, 3, secondStats.ExistingDirectories)
	assert.Equal(t, 5, secondStats.ExistingFiles)
}

func TestApplyThenCheckRoundTrip(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	structure := parseSample(t)
	options := Options{Filesystem: filesystem, BaseDirectory: "out"}

	_, applyError := Apply(context.Background(), options, structure)
	require.NoError(t, applyError)

	checkStats, checkError := Check(context.Background(), options, structure)
	require.NoError(t, checkError)
	directories, files := structure.Counts()
	assert.Equal(t, directories, checkStats.ExistingDirectories)
	assert.Equal(t, files, checkStats.ExistingFiles)
	assert.Zero(t, checkStats.MissingDirectories)
	assert.Zero(t, checkStats.MissingFiles)
	assert.True(t, checkStats.OK())
}

func TestCheckReportsMissingWithoutCreating(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	require.NoError(t, filesystem.MkdirAll("cmd", 0o755))
	require.NoError(t, afero.WriteFile(filesystem, "go.mod", []byte("module x\n"), 0o644))
	require.NoError(t, filesystem.MkdirAll("README.md", 0o755))

	var observed []Result
	options := Options{
		Filesystem: filesystem,
		Observer:   func(result Result) { observed = append(observed, result) },
	}
	stats, checkError := Check(context.Background(), options, parseSample(t))
	require.NoError(t, checkError)

	assert.Equal(t, 1, stats.ExistingDirectories)
	assert.Equal(t, 2, stats.MissingDirectories)
	assert.Equal(t, 1, stats.ExistingFiles)
	assert.Equal(t, 4, stats.MissingFiles)
	assert.False(t, stats.OK())
	assert.Len(t, observed, 8)

	_, statError := filesystem.Stat("internal")
	assert.True(t, os.IsNotExist(statError))

	var readmeResult Result
	for _, result := range observed {
		if result.Path == "README.md" {
			readmeResult = result
		}
	}
	assert.Equal(t, types.OutcomeMissing, readmeResult.Outcome)
	assert.Equal(t, conflictDirectoryDetail, readmeResult.Detail)
}

func TestApplyCreatesUndeclaredParentDirectory(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	structure := treeparse.NewStructure(
		treeparse.Entry{Path: "docs/guide/intro.md", Kind: treeparse.File},
	)
	var observed []Result
	options := Options{
		Filesystem: filesystem,
		Observer:   func(result Result) { observed = append(observed, result) },
	}

	stats, applyError := Apply(context.Background(), options, structure)
	require.NoError(t, applyError)
	assert.Equal(t, 1, stats.DirectoriesCreated)
	assert.Equal(t, 1, stats.FilesCreated)
	require.Len(t, observed, 2)
	assert.Equal(t, "docs/guide", observed[0].Path)
	assert.Equal(t, ParentDirectoryDetail, observed[0].Detail)
	assert.Equal(t, types.OutcomeCreated, observed[1].Outcome)
}

func TestApplyNeverTruncatesExistingFiles(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(filesystem, "notes.txt", []byte("keep me"), 0o644))
	structure := treeparse.NewStructure(treeparse.Entry{Path: "notes.txt", Kind: treeparse.File})

	stats, applyError := Apply(context.Background(), Options{Filesystem: filesystem}, structure)
	require.NoError(t, applyError)
	assert.Equal(t, 1, stats.ExistingFiles)

	content, readError := afero.ReadFile(filesystem, "notes.txt")
	require.NoError(t, readError)
	assert.Equal(t, "keep me", string(content))
}

func TestApplyRecordsFailuresAndContinues(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(filesystem, "blocked", []byte{}, 0o644))
	structure := treeparse.NewStructure(
		treeparse.Entry{Path: "blocked", Kind: treeparse.Directory},
		treeparse.Entry{Path: "blocked/inner.txt", Kind: treeparse.File},
		treeparse.Entry{Path: "fine.txt", Kind: treeparse.File},
	)

	stats, applyError := Apply(context.Background(), Options{Filesystem: filesystem}, structure)
	require.NoError(t, applyError)
	assert.Len(t, stats.Failures, 2)
	assert.Equal(t, 1, stats.FilesCreated)
	assert.Equal(t, conflictFileDetail, stats.Failures[0].Detail)
	assert.Equal(t, 2, stats.Summary().Failed)
}

func TestApplyOnReadOnlyFilesystemFailsPerEntry(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewReadOnlyFs(afero.NewMemMapFs())
	stats, applyError := Apply(context.Background(), Options{Filesystem: filesystem}, parseSample(t))
	require.NoError(t, applyError)
	assert.Zero(t, stats.DirectoriesCreated)
	assert.Zero(t, stats.FilesCreated)
	assert.NotEmpty(t, stats.Failures)
	for _, failure := range stats.Failures {
		assert.Error(t, failure.Err)
	}
}

func TestApplyHonorsExclusions(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	options := Options{
		Filesystem: filesystem,
		Exclusions: NewExclusions([]string{"internal/", "*.md", "  "}),
	}
	stats, applyError := Apply(context.Background(), options, parseSample(t))
	require.NoError(t, applyError)
	assert.Equal(t, 5, stats.Skipped)
	assert.Equal(t, 1, stats.DirectoriesCreated)
	assert.Equal(t, 2, stats.FilesCreated)

	exists, existsError := afero.Exists(filesystem, "internal")
	require.NoError(t, existsError)
	assert.False(t, exists)
}

func TestApplyStopsOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, applyError := Apply(ctx, Options{Filesystem: afero.NewMemMapFs()}, parseSample(t))
	assert.ErrorIs(t, applyError, context.Canceled)
	assert.Zero(t, stats.DirectoriesCreated)
}

func TestEnsureDirectoryReportsCreatedThenExisting(t *testing.T) {
	t.Parallel()

	options := Options{Filesystem: afero.NewMemMapFs(), BaseDirectory: "base"}
	assert.Equal(t, types.OutcomeCreated, EnsureDirectory(options, "root").Outcome)
	second := EnsureDirectory(options, "root")
	assert.Equal(t, types.OutcomeExists, second.Outcome)
	assert.Equal(t, filepath.Join("base", "root"), second.FullPath)
}

func TestNewExclusionsWithoutPatternsIsNil(t *testing.T) {
	t.Parallel()

	exclusions := NewExclusions([]string{"", "   "})
	assert.Nil(t, exclusions)
	assert.False(t, exclusions.Excludes(treeparse.Entry{Path: "a", Kind: treeparse.File}))
	assert.Nil(t, exclusions.Patterns())
}

func TestCheckDirectoryDoesNotCreate(t *testing.T) {
	t.Parallel()

	filesystem := afero.NewMemMapFs()
	options := Options{Filesystem: filesystem}
	assert.Equal(t, types.OutcomeMissing, CheckDirectory(options, "root").Outcome)

	exists, existsError := afero.DirExists(filesystem, "root")
	require.NoError(t, existsError)
	assert.False(t, exists)

	require.NoError(t, filesystem.Mkdir("root", 0o755))
	assert.Equal(t, types.OutcomeExists, CheckDirectory(options, "root").Outcome)
}
