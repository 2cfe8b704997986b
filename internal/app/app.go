// Package app runs a structure file against the filesystem: it loads and parses
// the diagram, then creates or checks every entry while streaming events to a
// renderer.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/output"
	"github.com/tyemirov/mktree/internal/services/stream"
	"github.com/tyemirov/mktree/internal/source"
	"github.com/tyemirov/mktree/internal/treeparse"
)

const (
	rootDetectedMessage   = "root directory detected"
	rootAbsentMessage     = "no root directory declared"
	structureParsedLog    = "structure parsed"
	skippedLineLogMessage = "line skipped"

	checkFailedErrorFormat   = "%w: %d missing, %d failed"
	applyFailuresErrorFormat = "%w: %d failed"
)

var (
	// ErrMissingRoot is returned when the root directory is required but the diagram declares none.
	ErrMissingRoot = errors.New("root directory not found in structure file")
	// ErrCheckFailed is returned by a check run that found missing or unreadable entries.
	ErrCheckFailed = errors.New("structure is incomplete")
	// ErrApplyFailures is returned when some entries could not be created.
	ErrApplyFailures = errors.New("some entries could not be created")
)

// LoadOptions selects and interprets the structure diagram.
type LoadOptions struct {
	Source  source.Options
	UseRoot bool
	Logger  *zap.Logger
}

// Loaded is a parsed diagram together with its declared root.
type Loaded struct {
	Input     source.Input
	Root      string
	HasRoot   bool
	Structure treeparse.Structure
}

// RunOptions configures an apply or check run.
type RunOptions struct {
	LoadOptions
	CheckOnly     bool
	BaseDirectory string
	Exclusions    []string
	DirectoryMode os.FileMode
	FileMode      os.FileMode
	Filesystem    afero.Fs
}

// Result reports what a run did.
type Result struct {
	Loaded
	Apply materialize.ApplyStats
	Check materialize.CheckStats
}

// Load reads the diagram, detects the root and parses the entries. With UseRoot
// set, a diagram without a root fails with ErrMissingRoot.
func Load(options LoadOptions) (Loaded, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	input, err := source.Load(options.Source)
	if err != nil {
		return Loaded{}, err
	}
	root, hasRoot := treeparse.DetectRoot(input.Lines)
	if hasRoot {
		logger.Debug(rootDetectedMessage, zap.String("source", input.Description), zap.String("root", root))
	} else {
		logger.Debug(rootAbsentMessage, zap.String("source", input.Description))
	}
	if options.UseRoot && !hasRoot {
		return Loaded{}, ErrMissingRoot
	}
	structure := treeparse.Parse(input.Lines, options.UseRoot)
	for _, skipped := range structure.Skipped() {
		logger.Debug(skippedLineLogMessage, zap.Int("line", skipped.Line), zap.String("content", skipped.Content))
	}
	directories, files := structure.Counts()
	logger.Debug(structureParsedLog, zap.Int("directories", directories), zap.Int("files", files))
	return Loaded{Input: input, Root: root, HasRoot: hasRoot, Structure: structure}, nil
}

// Run loads the diagram and creates or checks its entries. A check that finds
// missing entries returns ErrCheckFailed; an apply with per-entry failures
// returns ErrApplyFailures. Both still deliver every event to the renderer.
func Run(ctx context.Context, options RunOptions, renderer output.StreamRenderer) (Result, error) {
	loaded, err := Load(options.LoadOptions)
	if err != nil {
		return Result{}, err
	}
	result := Result{Loaded: loaded}

	streamOptions := stream.Options{
		Materialize: materialize.Options{
			Filesystem:    options.Filesystem,
			BaseDirectory: options.BaseDirectory,
			DirectoryMode: options.DirectoryMode,
			FileMode:      options.FileMode,
			Exclusions:    materialize.NewExclusions(options.Exclusions),
		},
		Structure: loaded.Structure,
	}
	if options.UseRoot {
		streamOptions.RootName = loaded.Root
	}

	producer := func(streamCtx context.Context, events chan<- stream.Event) error {
		if options.CheckOnly {
			stats, checkError := stream.StreamCheck(streamCtx, streamOptions, events)
			result.Check = stats
			return checkError
		}
		stats, applyError := stream.StreamApply(streamCtx, streamOptions, events)
		result.Apply = stats
		return applyError
	}
	if err := dispatchStream(ctx, producer, renderer.Handle); err != nil {
		return result, err
	}
	if err := renderer.Flush(); err != nil {
		return result, err
	}

	if options.CheckOnly {
		if !result.Check.OK() {
			missing := result.Check.MissingDirectories + result.Check.MissingFiles
			return result, fmt.Errorf(checkFailedErrorFormat, ErrCheckFailed, missing, len(result.Check.Failures))
		}
		return result, nil
	}
	if len(result.Apply.Failures) > 0 {
		return result, fmt.Errorf(applyFailuresErrorFormat, ErrApplyFailures, len(result.Apply.Failures))
	}
	return result, nil
}

func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}
