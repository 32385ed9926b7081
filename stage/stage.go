package stage

import (
	"context"
	"fmt"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
)

// RunContext is the pipeline action a pass executes. It decides which
// stages are active and which of a storage stage's operations runs.
type RunContext string

// The four pipeline actions.
const (
	// RunBridge collects, stages and delivers in one pass
	RunBridge RunContext = "bridge"
	// RunInput collects and stages only
	RunInput RunContext = "input"
	// RunOutput delivers staged records only
	RunOutput RunContext = "output"
	// RunCleanup promotes staged records to archive/junk
	RunCleanup RunContext = "cleanup"
)

// RunContexts returns the valid action names for usage text.
func RunContexts() []string {
	return []string{string(RunBridge), string(RunInput), string(RunOutput), string(RunCleanup)}
}

// ParseRunContext validates an action name from the command line.
func ParseRunContext(s string) (RunContext, error) {
	switch RunContext(s) {
	case RunBridge, RunInput, RunOutput, RunCleanup:
		return RunContext(s), nil
	default:
		err := fmt.Errorf("%w: unknown action %q, want one of %v", errors.ErrInvalidConfig, s, RunContexts())
		return "", errors.WrapConfig(err, "Stage", "ParseRunContext", "parse action")
	}
}

// Metadata describes a realized stage instance.
type Metadata struct {
	Segment     string            // configured segment name
	Class       string            // implementation name (e.g. "FileCache")
	Type        config.ModuleType // pipeline capability
	Description string            // human-readable description
	Version     string            // implementation version
}

// Callable is one executable pipeline step: it receives the batch flowing
// through the pass and returns the batch to flow on.
type Callable func(ctx context.Context, batch record.Batch) (record.Batch, error)

// Stage is the contract every pipeline segment implementation satisfies.
// Configure is called exactly once per realization, before any Dispatch.
// Dispatch returns the callable for the given run context, or nil when the
// stage is inactive in that context.
type Stage interface {
	Meta() Metadata
	Configure(cfg *config.Config) error
	Dispatch(rc RunContext) (Callable, error)
}

// Input collects fresh records from a source.
type Input interface {
	Stage
	Collect(ctx context.Context) (record.Batch, error)
}

// Output delivers records to a sink. The returned batch contains only
// records with a definitive outcome: delivered records with status "out",
// rejected records with status "failed". Records without a definitive
// outcome are omitted and remain staged.
type Output interface {
	Stage
	Send(ctx context.Context, batch record.Batch) (record.Batch, error)
}

// Filter transforms or enriches records in place in the flow.
type Filter interface {
	Stage
	Filter(ctx context.Context, batch record.Batch) (record.Batch, error)
}

// Storage stages records durably between passes and promotes them to their
// final disposition.
type Storage interface {
	Stage
	WriteCache(ctx context.Context, batch record.Batch) (record.Batch, error)
	ReadCache(ctx context.Context) (record.Batch, error)
	CleanCache(ctx context.Context, batch record.Batch) (record.Batch, error)
	Store(ctx context.Context, batch record.Batch) (record.Batch, error)
}

// DispatchInput implements the activation table for collectors: active in
// input and bridge contexts. The callable replaces the incoming batch with
// freshly collected records.
func DispatchInput(in Input, rc RunContext) (Callable, error) {
	switch rc {
	case RunInput, RunBridge:
		return func(ctx context.Context, _ record.Batch) (record.Batch, error) {
			return in.Collect(ctx)
		}, nil
	case RunOutput, RunCleanup:
		return nil, nil
	default:
		return nil, unknownContext(in, rc)
	}
}

// DispatchOutput implements the activation table for senders: active in
// output and bridge contexts. The callable skips the sink entirely when the
// incoming batch is empty.
func DispatchOutput(out Output, rc RunContext) (Callable, error) {
	switch rc {
	case RunOutput, RunBridge:
		return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
			if len(batch) == 0 {
				return batch, nil
			}
			return out.Send(ctx, batch)
		}, nil
	case RunInput, RunCleanup:
		return nil, nil
	default:
		return nil, unknownContext(out, rc)
	}
}

// DispatchFilter implements the activation table for filters: active in
// every context that moves records, inactive in cleanup.
func DispatchFilter(f Filter, rc RunContext) (Callable, error) {
	switch rc {
	case RunInput, RunOutput, RunBridge:
		return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
			return f.Filter(ctx, batch)
		}, nil
	case RunCleanup:
		return nil, nil
	default:
		return nil, unknownContext(f, rc)
	}
}

// DispatchStorage implements the activation table for storage stages. The
// declared subtype pins the stage to one role; without a subtype the stage
// plays the buffer role wherever that role is active (write in input and
// bridge, read in output) and the archive role in cleanup. In-pass promotion
// to archive/junk always requires an explicit "archive" subtype.
func DispatchStorage(s Storage, subtype config.Subtype, rc RunContext) (Callable, error) {
	switch rc {
	case RunInput:
		if subtype == config.SubtypeArchive {
			return nil, nil
		}
		return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
			return s.WriteCache(ctx, batch)
		}, nil

	case RunOutput:
		if subtype == config.SubtypeArchive {
			return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
				return s.Store(ctx, batch)
			}, nil
		}
		// Read-buffer: the staged generation replaces the flowing batch.
		return func(ctx context.Context, _ record.Batch) (record.Batch, error) {
			return s.ReadCache(ctx)
		}, nil

	case RunBridge:
		if subtype == config.SubtypeArchive {
			return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
				return s.Store(ctx, batch)
			}, nil
		}
		return func(ctx context.Context, batch record.Batch) (record.Batch, error) {
			return s.WriteCache(ctx, batch)
		}, nil

	case RunCleanup:
		if subtype == config.SubtypeBuffer {
			return nil, nil
		}
		return func(ctx context.Context, _ record.Batch) (record.Batch, error) {
			staged, err := s.ReadCache(ctx)
			if err != nil {
				return nil, err
			}
			return s.Store(ctx, staged)
		}, nil

	default:
		return nil, unknownContext(s, rc)
	}
}

func unknownContext(st Stage, rc RunContext) error {
	err := fmt.Errorf("%w: unknown run context %q", errors.ErrInvalidConfig, string(rc))
	return errors.WrapConfig(err, st.Meta().Class, "Dispatch", "resolve run context")
}
