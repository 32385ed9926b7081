// Package static implements a collector that emits configured fixed values,
// falling back to host information when none are configured. Useful for
// wiring tests and heartbeat-style data points.
package static

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/pkg/timestamp"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "StaticCollector"
	location  = "github.com/ategus/bridginghub/input/static"
)

// Collector emits the segment's configured values map, one record per
// entry. With no values configured it emits a single host-info record for
// the first registered id in sorted order.
type Collector struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	values     map[string]string
	configured bool
}

var _ stage.Input = (*Collector)(nil)

// New creates an unconfigured static collector for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Collector{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the StaticCollector implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeInput,
		Description: "Emits configured fixed values or host information",
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
		Description: "Emits configured fixed values or host information",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings and the optional values map.
// Every configured id must be in the value register.
func (c *Collector) Configure(cfg *config.Config) error {
	if c.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, c.segment, config.TypeInput)
	if err != nil {
		return err
	}

	values := config.GetStringMap(settings.Segment.Detail, "values")
	for id := range values {
		if !settings.Registered(id) {
			err := fmt.Errorf("%w: value for unregistered record-id %q", errors.ErrInvalidConfig, id)
			return errors.WrapConfig(err, className, "Configure", "check values against register")
		}
	}

	c.settings = settings
	c.values = values
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

// Collect emits one record per configured value, or the host-info fallback
// record when no values are configured. An empty register collects nothing.
func (c *Collector) Collect(_ context.Context) (record.Batch, error) {
	batch := record.Batch{}

	if len(c.values) == 0 {
		ids := c.settings.RegisterIDs()
		if len(ids) == 0 {
			return batch, nil
		}
		batch[ids[0]] = c.newRecord(ids[0], hostInfo())
		c.logger.Debug("collected host info", "id", ids[0])
		return batch, nil
	}

	ids := make([]string, 0, len(c.values))
	for id := range c.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		batch[id] = c.newRecord(id, c.values[id])
	}

	c.logger.Debug("collected static values", "records", len(batch))
	return batch, nil
}

func (c *Collector) newRecord(id, value string) record.Record {
	names := c.settings.Names
	rec := record.Record{}
	names.Set(rec, record.FieldID, id)
	names.Set(rec, record.FieldTimestamp, timestamp.String(timestamp.Now()))
	names.Set(rec, record.FieldValue, value)
	names.Set(rec, record.FieldStatus, record.StatusIn)
	return rec
}

// hostInfo describes the running system, mirroring a uname-style summary.
func hostInfo() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s %s %s", runtime.GOOS, runtime.GOARCH, hostname)
}
