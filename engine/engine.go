package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/metric"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

// Engine realizes the configured segments for one pipeline action and runs
// single passes over the resulting dispatch graph. Build wires the graph
// once; Run executes one pass. The engine reports failures to the caller
// and never terminates the process itself.
type Engine struct {
	cfg      *config.Config
	registry *stage.Registry
	action   stage.RunContext
	logger   *slog.Logger
	metrics  *metric.Registry

	names   record.Names
	entries map[string]*flowEntry
	flow    []*flowEntry
	built   bool
}

// New creates an engine for one action over a loaded configuration. The
// registry must already hold the factories for every implementation the
// configuration references.
func New(cfg *config.Config, registry *stage.Registry, action stage.RunContext, deps stage.Dependencies) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: registry,
		action:   action,
		logger:   deps.GetLogger().With("action", string(action)),
		metrics:  deps.Metrics,
	}
}

// Build realizes every configured segment and wires the dispatch graph:
// resolve each segment through the registry, check its declared capability,
// configure it, dispatch it for the action, then attach subscriptions and
// assemble the driving flow. Build fails on the first broken segment; a
// configuration that builds is safe to run.
func (e *Engine) Build() error {
	if e.built {
		err := fmt.Errorf("%w: graph already built", errors.ErrInvalidConfig)
		return errors.WrapConfig(err, "Engine", "Build", "check build state")
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	names, err := e.cfg.Names()
	if err != nil {
		return err
	}
	e.names = names

	e.entries = make(map[string]*flowEntry, len(e.cfg.Segments))
	ordered := make([]*flowEntry, 0, len(e.cfg.Segments))
	for _, seg := range e.cfg.Segments {
		st, err := e.registry.Register(seg.Name, seg.Class, seg.Location)
		if err != nil {
			return err
		}
		if err := checkCapability(st, seg); err != nil {
			return err
		}
		if err := st.Configure(e.cfg); err != nil {
			return err
		}
		callable, err := st.Dispatch(e.action)
		if err != nil {
			return err
		}
		entry := &flowEntry{segment: seg, stage: st, callable: callable}
		e.entries[seg.Name] = entry
		ordered = append(ordered, entry)
		e.logger.Debug("segment realized",
			"segment", seg.Name,
			"class", seg.Class,
			"type", string(seg.Type),
			"active", callable != nil)
	}

	if err := wireSubscriptions(ordered, e.entries); err != nil {
		return err
	}
	if err := rejectCycles(ordered, e.entries); err != nil {
		return err
	}

	// The driving flow holds the active segments that observe nothing, in
	// declaration order. Subscribers run via notification only.
	for _, entry := range ordered {
		if entry.callable == nil || len(entry.segment.Subscriptions) > 0 {
			continue
		}
		e.flow = append(e.flow, entry)
	}

	if e.action == stage.RunCleanup && !hasActiveStorage(ordered) {
		err := fmt.Errorf("%w: cleanup needs an active storage segment", errors.ErrInvalidConfig)
		return errors.WrapConfig(err, "Engine", "Build", "check cleanup prerequisites")
	}

	e.built = true
	e.logger.Info("graph built", "segments", len(ordered), "flow", len(e.flow))
	return nil
}

// Run executes one pass: an empty batch is folded through the driving flow,
// each segment's result feeding the next and fanning out to its observers.
// The first segment error aborts the pass.
func (e *Engine) Run(ctx context.Context) error {
	if !e.built {
		err := fmt.Errorf("%w: run before build", errors.ErrInvalidConfig)
		return errors.WrapConfig(err, "Engine", "Run", "check graph")
	}

	passID := uuid.NewString()
	logger := e.logger.With("pass", passID)
	start := time.Now()
	failed := true
	defer func() {
		e.metrics.RecordPass(string(e.action), failed, time.Since(start))
	}()

	logger.Info("pass started", "flow", len(e.flow))

	batch := record.Batch{}
	for _, entry := range e.flow {
		result, err := e.invoke(ctx, logger, entry, batch)
		if err != nil {
			logger.Error("pass failed", "segment", entry.segment.Name, "error", err)
			return err
		}
		batch = result
	}

	failed = false
	logger.Info("pass complete", "records", len(batch), "duration", time.Since(start))
	return nil
}

// invoke runs one segment and fans its result out to the observers. Each
// observer receives a deep clone, so observer branches cannot mutate the
// driving flow's batch, and their results are discarded. Observer chains
// recurse; Build already rejected cycles.
func (e *Engine) invoke(ctx context.Context, logger *slog.Logger, entry *flowEntry, batch record.Batch) (record.Batch, error) {
	result, err := entry.callable(ctx, batch)
	if err != nil {
		return nil, err
	}
	e.observe(entry, result)
	logger.Debug("segment ran", "segment", entry.segment.Name, "in", len(batch), "out", len(result))

	for _, observer := range entry.observers {
		if observer.callable == nil {
			continue
		}
		if _, err := e.invoke(ctx, logger, observer, result.Clone()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// observe translates a segment result into pass metrics. The engine reads
// record statuses instead of asking stages to report, so implementations
// carry no instrumentation of their own.
func (e *Engine) observe(entry *flowEntry, result record.Batch) {
	segment := entry.segment.Name
	switch entry.segment.Type {
	case config.TypeInput:
		e.metrics.RecordCollected(segment, len(result))
	case config.TypeOutput:
		e.metrics.RecordDelivered(segment, e.countStatus(result, record.StatusOut))
		e.metrics.RecordFailed(segment, e.countStatus(result, record.StatusFailed))
	case config.TypeStorage:
		e.observeStorage(entry, result)
	}
}

// observeStorage accounts a storage result according to the operation the
// activation table ran: staging during input and bridge, promotion when the
// archive role was active. Reading the buffer back stamps nothing new.
func (e *Engine) observeStorage(entry *flowEntry, result record.Batch) {
	segment := entry.segment.Name
	archive := entry.segment.Subtype == config.SubtypeArchive

	switch e.action {
	case stage.RunInput, stage.RunBridge:
		if archive {
			e.recordStored(segment, result)
			return
		}
		e.metrics.RecordStaged(segment, len(result))
	case stage.RunOutput:
		if archive {
			e.recordStored(segment, result)
		}
	case stage.RunCleanup:
		e.recordStored(segment, result)
	}
}

func (e *Engine) recordStored(segment string, result record.Batch) {
	e.metrics.RecordArchived(segment, e.countStatus(result, record.StatusDone))
	e.metrics.RecordJunked(segment, e.countStatus(result, record.StatusBroken))
}

func (e *Engine) countStatus(batch record.Batch, status string) int {
	n := 0
	for _, rec := range batch {
		if e.names.Get(rec, record.FieldStatus) == status {
			n++
		}
	}
	return n
}

// Flow returns the driving flow's segment names in execution order. It is
// empty until Build succeeds.
func (e *Engine) Flow() []string {
	names := make([]string, len(e.flow))
	for i, entry := range e.flow {
		names[i] = entry.segment.Name
	}
	return names
}

// Observers returns the names of the segments notified with the named
// segment's result, in notification order.
func (e *Engine) Observers(segment string) []string {
	entry, ok := e.entries[segment]
	if !ok {
		return nil
	}
	names := make([]string, len(entry.observers))
	for i, observer := range entry.observers {
		names[i] = observer.segment.Name
	}
	return names
}
