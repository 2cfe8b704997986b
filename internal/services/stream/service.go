package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tyemirov/mktree/internal/materialize"
	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/types"
)

const (
	warningLevel           = "warning"
	nilChannelErrorMessage = "stream: event channel is nil"
	skippedLineWarning     = "line %d has no branch marker and was skipped: %s"
)

// Options describes one apply or check run over a parsed structure.
type Options struct {
	Materialize materialize.Options
	Structure   treeparse.Structure
	// RootName is the declared root. When set, it is created or checked under
	// Materialize.BaseDirectory and entries are resolved inside it.
	RootName string
}

type emitter struct {
	ctx     context.Context
	out     chan<- Event
	command string
}

func newEmitter(ctx context.Context, out chan<- Event, command string) *emitter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &emitter{ctx: ctx, out: out, command: command}
}

func (e *emitter) send(event Event) error {
	if e.out == nil {
		return fmt.Errorf(nilChannelErrorMessage)
	}
	event.Version = SchemaVersion
	if event.Command == "" {
		event.Command = e.command
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.out <- event:
		return nil
	}
}

func (e *emitter) warn(path, message string) {
	trimmed := strings.TrimRight(message, "\n")
	if trimmed == "" {
		return
	}
	_ = e.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: warningLevel, Message: trimmed},
	})
}

// observer forwards materializer results as entry events. The first send
// failure is kept so the run can report it after the materializer returns.
func (e *emitter) observer(sendError *error) materialize.Observer {
	return func(result materialize.Result) {
		if *sendError != nil {
			return
		}
		*sendError = e.send(entryEvent(result))
	}
}

func entryEvent(result materialize.Result) Event {
	entry := &EntryEvent{
		Path:     result.Path,
		FullPath: result.FullPath,
		Kind:     result.Kind.String(),
		Outcome:  result.Outcome,
		Detail:   result.Detail,
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	return Event{Kind: EventKindEntry, Path: result.Path, Entry: entry}
}

// StreamApply materializes the structure and emits one event per outcome,
// followed by a summary and a done event.
func StreamApply(ctx context.Context, opts Options, out chan<- Event) (materialize.ApplyStats, error) {
	emitter := newEmitter(ctx, out, types.CommandApply)
	if err := emitter.begin(opts); err != nil {
		return materialize.ApplyStats{}, err
	}

	var sendError error
	materializeOptions := opts.Materialize
	materializeOptions.Observer = emitter.observer(&sendError)

	if opts.RootName != "" {
		rootResult := materialize.EnsureDirectory(withoutObserver(materializeOptions), opts.RootName)
		if err := emitter.sendRoot(rootResult); err != nil {
			return materialize.ApplyStats{}, err
		}
		if rootResult.Outcome == types.OutcomeFailed {
			stats := materialize.ApplyStats{Failures: []materialize.Result{rootResult}}
			summary := stats.Summary()
			return stats, emitter.finish(&summary)
		}
		materializeOptions.BaseDirectory = rootResult.FullPath
	}

	stats, applyError := materialize.Apply(ctx, materializeOptions, opts.Structure)
	if applyError != nil {
		return stats, applyError
	}
	if sendError != nil {
		return stats, sendError
	}
	summary := stats.Summary()
	return stats, emitter.finish(&summary)
}

// StreamCheck verifies the structure without mutating the filesystem and emits
// one event per outcome, followed by a summary and a done event.
func StreamCheck(ctx context.Context, opts Options, out chan<- Event) (materialize.CheckStats, error) {
	emitter := newEmitter(ctx, out, types.CommandCheck)
	if err := emitter.begin(opts); err != nil {
		return materialize.CheckStats{}, err
	}

	var sendError error
	materializeOptions := opts.Materialize
	materializeOptions.Observer = emitter.observer(&sendError)

	if opts.RootName != "" {
		rootResult := materialize.CheckDirectory(withoutObserver(materializeOptions), opts.RootName)
		if err := emitter.sendRoot(rootResult); err != nil {
			return materialize.CheckStats{}, err
		}
		materializeOptions.BaseDirectory = rootResult.FullPath
	}

	stats, checkError := materialize.Check(ctx, materializeOptions, opts.Structure)
	if checkError != nil {
		return stats, checkError
	}
	if sendError != nil {
		return stats, sendError
	}
	summary := stats.Summary()
	return stats, emitter.finish(&summary)
}

func (e *emitter) begin(opts Options) error {
	if err := e.send(Event{Kind: EventKindStart, Path: opts.Materialize.BaseDirectory}); err != nil {
		return err
	}
	for _, skipped := range opts.Structure.Skipped() {
		e.warn("", SkippedLineWarning(skipped))
	}
	return e.ctx.Err()
}

// SkippedLineWarning describes a diagram line that produced no entry.
func SkippedLineWarning(skipped treeparse.SkippedLine) string {
	return fmt.Sprintf(skippedLineWarning, skipped.Line, skipped.Content)
}

func (e *emitter) sendRoot(result materialize.Result) error {
	return e.send(Event{
		Kind: EventKindRoot,
		Path: result.Path,
		Root: &RootEvent{Name: result.Path, FullPath: result.FullPath, Outcome: result.Outcome},
	})
}

func (e *emitter) finish(summary *types.OperationSummary) error {
	if err := e.send(Event{Kind: EventKindSummary, Summary: summary}); err != nil {
		return err
	}
	return e.send(Event{Kind: EventKindDone})
}

func withoutObserver(options materialize.Options) materialize.Options {
	options.Observer = nil
	return options
}
