// Package fieldmap implements a filter applying an ordered list of
// predefined record transformations: merging register metadata, stamping a
// formatted datetime, and renaming fields.
package fieldmap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "FieldMapFilter"
	location  = "github.com/ategus/bridginghub/filter/fieldmap"
)

// Predefined transformation names accepted in the filters list.
const (
	OpMergeRegister = "merge_register"
	OpAddDatetime   = "add_datetime"
	OpRename        = "rename"
)

// Spec is one entry of the ordered filters list.
type Spec struct {
	// Name selects the transformation: merge_register, add_datetime or
	// rename.
	Name string `json:"name"`

	// Field receives the formatted datetime (add_datetime).
	Field string `json:"field"`

	// Layout is the Go time layout for add_datetime. Defaults to RFC3339.
	Layout string `json:"layout"`

	// Mapping renames fields old name to new name (rename). Unmapped
	// fields pass through.
	Mapping map[string]string `json:"mapping"`
}

// parseSpecs reads and validates the ordered filters list from the segment
// detail. Unknown names and malformed entries are configuration errors.
func parseSpecs(detail map[string]any) ([]Spec, error) {
	raw, ok := detail["filters"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: filters must be a list, got %T", errors.ErrInvalidConfig, raw)
	}

	specs := make([]Spec, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: filters[%d] must be a mapping, got %T", errors.ErrInvalidConfig, i, entry)
		}

		spec := Spec{
			Name:    config.GetString(m, "name", ""),
			Field:   config.GetString(m, "field", ""),
			Layout:  config.GetString(m, "layout", time.RFC3339),
			Mapping: config.GetStringMap(m, "mapping"),
		}

		switch spec.Name {
		case OpMergeRegister:
		case OpAddDatetime:
			if spec.Field == "" {
				return nil, fmt.Errorf("%w: filters[%d] %s requires a field", errors.ErrInvalidConfig, i, OpAddDatetime)
			}
		case OpRename:
			if len(spec.Mapping) == 0 {
				return nil, fmt.Errorf("%w: filters[%d] %s requires a mapping", errors.ErrInvalidConfig, i, OpRename)
			}
		default:
			return nil, fmt.Errorf("%w: filters[%d] unknown filter %q", errors.ErrInvalidConfig, i, spec.Name)
		}

		specs = append(specs, spec)
	}
	return specs, nil
}

// Filter applies its specs to every record, in list order.
type Filter struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	specs      []Spec
	configured bool
}

var _ stage.Filter = (*Filter)(nil)

// New creates an unconfigured field-map filter for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Filter{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the FieldMapFilter implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeFilter,
		Description: "Applies ordered predefined record transformations",
		Version:     "1.0.0",
		Factory:     New,
	})
}

// Meta describes this stage instance.
func (f *Filter) Meta() stage.Metadata {
	return stage.Metadata{
		Segment:     f.segment,
		Class:       className,
		Type:        config.TypeFilter,
		Description: "Applies ordered predefined record transformations",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings and validates the filters list.
func (f *Filter) Configure(cfg *config.Config) error {
	if f.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, f.segment, config.TypeFilter)
	if err != nil {
		return err
	}
	specs, err := parseSpecs(settings.Segment.Detail)
	if err != nil {
		return errors.WrapConfig(err, className, "Configure", "parse filters list")
	}

	f.settings = settings
	f.specs = specs
	f.configured = true
	return nil
}

// Dispatch returns the filter callable in every context except cleanup.
func (f *Filter) Dispatch(rc stage.RunContext) (stage.Callable, error) {
	if !f.configured {
		return nil, errors.WrapConfig(errors.ErrMissingConfig, className, "Dispatch", "dispatch unconfigured stage")
	}
	return stage.DispatchFilter(f, rc)
}

// Filter applies every spec in list order to the whole batch.
func (f *Filter) Filter(_ context.Context, batch record.Batch) (record.Batch, error) {
	for _, spec := range f.specs {
		switch spec.Name {
		case OpMergeRegister:
			f.mergeRegister(batch)
		case OpAddDatetime:
			addDatetime(batch, spec.Field, spec.Layout)
		case OpRename:
			rename(batch, spec.Mapping)
		}
	}
	return batch, nil
}

// mergeRegister fills record fields from the register entry of the same id.
// Record values take precedence; the register only fills gaps.
func (f *Filter) mergeRegister(batch record.Batch) {
	for id, rec := range batch {
		for field, value := range f.settings.Register[id] {
			if _, ok := rec[field]; !ok {
				rec[field] = value
			}
		}
	}
}

// addDatetime stamps the current wall-clock time, formatted with the given
// layout, onto every record. One formatting for the whole batch.
func addDatetime(batch record.Batch, field, layout string) {
	formatted := time.Now().Format(layout)
	for _, rec := range batch {
		rec[field] = formatted
	}
}

// rename applies all renames simultaneously: values are taken out first and
// written back second, so a mapping like {a: b, b: c} moves the original
// values rather than chaining.
func rename(batch record.Batch, mapping map[string]string) {
	for _, rec := range batch {
		moved := make(map[string]string, len(mapping))
		for oldName, newName := range mapping {
			if value, ok := rec[oldName]; ok {
				moved[newName] = value
				delete(rec, oldName)
			}
		}
		for newName, value := range moved {
			rec[newName] = value
		}
	}
}
