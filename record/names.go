package record

import (
	"fmt"

	"github.com/ategus/bridginghub/errors"
)

// Field identifies one of the semantic record fields independent of the
// literal key configured for it.
type Field int

const (
	// FieldID is the record's identifier, matching its batch key
	FieldID Field = iota
	// FieldTimestamp is the measurement time, canonically integer nanoseconds
	FieldTimestamp
	// FieldValue is the measured value
	FieldValue
	// FieldUnit is the measurement unit
	FieldUnit
	// FieldType is the measurement type
	FieldType
	// FieldLocation is a human-readable place name
	FieldLocation
	// FieldGeohash is the geohash-encoded position
	FieldGeohash
	// FieldStatus is the pipeline delivery status
	FieldStatus

	numFields
)

var defaultNames = [numFields]string{
	FieldID:        "id",
	FieldTimestamp: "timestamp",
	FieldValue:     "value",
	FieldUnit:      "unit",
	FieldType:      "type",
	FieldLocation:  "location",
	FieldGeohash:   "geohash",
	FieldStatus:    "status",
}

// String returns the field's default literal name.
func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return defaultNames[f]
}

// ConfigKey returns the data-section key that overrides this field's
// literal name, e.g. "timestamp_name".
func (f Field) ConfigKey() string {
	return f.String() + "_name"
}

// Names is the resolved field-name table: a fixed Field-to-literal mapping
// built once from the data section at configure time. The zero value is not
// usable; construct via DefaultNames or ResolveNames.
type Names struct {
	names [numFields]string
}

// DefaultNames returns the table with no overrides applied.
func DefaultNames() Names {
	return Names{names: defaultNames}
}

// ResolveNames builds the table from a data section, merging `<field>_name`
// overrides into the defaults. An override that is not a non-empty string
// is a configuration error.
func ResolveNames(data map[string]any) (Names, error) {
	n := DefaultNames()
	if data == nil {
		return n, nil
	}
	for f := Field(0); f < numFields; f++ {
		raw, ok := data[f.ConfigKey()]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			err := fmt.Errorf("%s: %w: expected non-empty string, got %T", f.ConfigKey(), errors.ErrInvalidConfig, raw)
			return Names{}, errors.WrapConfig(err, "Names", "Resolve", "merge field-name override")
		}
		n.names[f] = s
	}
	return n, nil
}

// Key returns the configured literal name for the field.
func (n Names) Key(f Field) string {
	if f < 0 || f >= numFields {
		return ""
	}
	return n.names[f]
}

// Get returns the field's value from the record, empty when absent.
func (n Names) Get(r Record, f Field) string {
	return r[n.Key(f)]
}

// Set stamps the field onto the record.
func (n Names) Set(r Record, f Field, value string) {
	r[n.Key(f)] = value
}

// Has reports whether the record carries the field.
func (n Names) Has(r Record, f Field) bool {
	_, ok := r[n.Key(f)]
	return ok
}
