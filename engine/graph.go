package engine

import (
	"fmt"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/stage"
)

// flowEntry is one realized segment in the dispatch graph.
type flowEntry struct {
	segment   config.Segment
	stage     stage.Stage
	callable  stage.Callable // nil when the segment is inactive in this action
	observers []*flowEntry   // notified with a clone of this entry's result
}

// checkCapability verifies the realized stage provides the capability its
// segment declares. A module_type that the implementation does not satisfy
// is a module-loader error.
func checkCapability(st stage.Stage, seg config.Segment) error {
	var ok bool
	switch seg.Type {
	case config.TypeInput:
		_, ok = st.(stage.Input)
	case config.TypeOutput:
		_, ok = st.(stage.Output)
	case config.TypeFilter:
		_, ok = st.(stage.Filter)
	case config.TypeStorage:
		_, ok = st.(stage.Storage)
	}
	if !ok {
		err := fmt.Errorf("%w: segment %q declares %s but %s/%s does not provide it",
			errors.ErrWrongCapability, seg.Name, string(seg.Type), seg.Location, seg.Class)
		return errors.WrapModuleLoader(err, "Engine", "Build", "check capability")
	}
	return nil
}

// wireSubscriptions attaches every segment to the entries it observes.
// Targets may be declared before or after their subscriber; resolution runs
// over the complete entry set. An unknown target is a configuration error.
// Observers land on a target in subscriber declaration order.
func wireSubscriptions(ordered []*flowEntry, entries map[string]*flowEntry) error {
	for _, entry := range ordered {
		for _, target := range entry.segment.Subscriptions {
			observed, ok := entries[target]
			if !ok {
				err := fmt.Errorf("%w: segment %q subscribes to unknown segment %q",
					errors.ErrInvalidConfig, entry.segment.Name, target)
				return errors.WrapConfig(err, "Engine", "Build", "wire subscriptions")
			}
			observed.observers = append(observed.observers, entry)
		}
	}
	return nil
}

// rejectCycles walks the declared subscription edges from every segment. A
// walk that returns to its origin, or that outlives the segment count, is a
// cycle. The check covers declared edges regardless of which segments the
// current action activates, so a configuration never flips between valid
// and cyclic across actions.
func rejectCycles(ordered []*flowEntry, entries map[string]*flowEntry) error {
	for _, entry := range ordered {
		if err := walkSubscriptions(entry, entries, entry.segment.Name, len(ordered)); err != nil {
			return err
		}
	}
	return nil
}

func walkSubscriptions(entry *flowEntry, entries map[string]*flowEntry, origin string, budget int) error {
	if budget < 0 {
		err := fmt.Errorf("%w: subscription chain from segment %q exceeds the segment count",
			errors.ErrSubscriptionCycle, origin)
		return errors.WrapConfig(err, "Engine", "Build", "reject subscription cycles")
	}
	for _, target := range entry.segment.Subscriptions {
		if target == origin {
			err := fmt.Errorf("%w: segment %q subscription chain returns to itself",
				errors.ErrSubscriptionCycle, origin)
			return errors.WrapConfig(err, "Engine", "Build", "reject subscription cycles")
		}
		if err := walkSubscriptions(entries[target], entries, origin, budget-1); err != nil {
			return err
		}
	}
	return nil
}

// hasActiveStorage reports whether any storage segment dispatched an active
// callable for the current action.
func hasActiveStorage(ordered []*flowEntry) bool {
	for _, entry := range ordered {
		if entry.segment.Type == config.TypeStorage && entry.callable != nil {
			return true
		}
	}
	return false
}
