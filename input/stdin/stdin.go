// Package stdin implements a collector that reads one measurement value per
// line from standard input.
package stdin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/pkg/timestamp"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "StdinCollector"
	location  = "github.com/ategus/bridginghub/input/stdin"
)

// Collector reads one line per registered record-id, in sorted id order:
// the first line becomes the value of the first id, and so on. Lines beyond
// the registered ids are left unread. Fewer lines than registered ids is an
// input error, since every registered data point must get a value.
type Collector struct {
	segment string
	logger  *slog.Logger
	reader  io.Reader

	settings   stage.Settings
	configured bool
}

var _ stage.Input = (*Collector)(nil)

// New creates an unconfigured stdin collector for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Collector{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
		reader:  os.Stdin,
	}, nil
}

// Register adds the StdinCollector implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeInput,
		Description: "Collects one value per registered record-id from standard input",
		Version:     "1.0.0",
		Factory:     New,
	})
}

// Meta describes this stage instance.
func (c *Collector) Meta() stage.Metadata {
	return stage.Metadata{
		Segment:     c.segment,
		Class:       className,
		Type:        config.TypeInput,
		Description: "Collects one value per registered record-id from standard input",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings. The collector has no keys of its
// own beyond the shared data section.
func (c *Collector) Configure(cfg *config.Config) error {
	if c.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, c.segment, config.TypeInput)
	if err != nil {
		return err
	}
	c.settings = settings
	c.configured = true
	return nil
}

// Dispatch returns the collect callable in input and bridge contexts.
func (c *Collector) Dispatch(rc stage.RunContext) (stage.Callable, error) {
	if !c.configured {
		return nil, errors.WrapConfig(errors.ErrMissingConfig, className, "Dispatch", "dispatch unconfigured stage")
	}
	return stage.DispatchInput(c, rc)
}

// Collect reads lines until every registered id has a value. Each record is
// stamped with the current nanosecond timestamp, its id, the trimmed line
// as value, and status in.
func (c *Collector) Collect(_ context.Context) (record.Batch, error) {
	names := c.settings.Names
	batch := record.Batch{}

	scanner := bufio.NewScanner(c.reader)
	for _, id := range c.settings.RegisterIDs() {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, errors.WrapInput(err, className, "Collect", "read line")
			}
			err := fmt.Errorf("%w: no line for record-id %q", errors.ErrInvalidData, id)
			return nil, errors.WrapInput(err, className, "Collect", "assign value to every registered id")
		}

		rec := record.Record{}
		names.Set(rec, record.FieldID, id)
		names.Set(rec, record.FieldTimestamp, timestamp.String(timestamp.Now()))
		names.Set(rec, record.FieldValue, strings.TrimSpace(scanner.Text()))
		names.Set(rec, record.FieldStatus, record.StatusIn)
		batch[id] = rec
	}

	c.logger.Debug("collected from stdin", "records", len(batch))
	return batch, nil
}
