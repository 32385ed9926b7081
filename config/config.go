package config

import (
	"fmt"
	"sort"

	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
)

// Reserved configuration keys.
const (
	// KeyData is the reserved top-level section holding the field-name
	// overrides and the value register
	KeyData = "data"
	// KeyRegister is the data-section key holding the record-id register
	KeyRegister = "value_register_map"

	// KeyClass names the implementation inside a segment section
	KeyClass = "module_class_name"
	// KeyLocation names the implementation's import path
	KeyLocation = "module_path"
	// KeyType declares the segment's pipeline capability
	KeyType = "module_type"
	// KeySubscription lists the segments this segment observes
	KeySubscription = "module_subscription"
)

// ModuleType is the pipeline capability a segment declares.
type ModuleType string

// The allowed module types.
const (
	TypeInput   ModuleType = "input"
	TypeOutput  ModuleType = "output"
	TypeFilter  ModuleType = "filter"
	TypeStorage ModuleType = "storage"
)

// Subtype refines a storage segment's pipeline role. Only storage segments
// carry one; an empty subtype means the segment serves both roles.
type Subtype string

// The allowed storage subtypes.
const (
	SubtypeNone    Subtype = ""
	SubtypeBuffer  Subtype = "buffer"
	SubtypeArchive Subtype = "archive"
)

// ParseModuleType splits a declared module_type value on ":" into type and
// subtype and validates both.
func ParseModuleType(raw string) (ModuleType, Subtype, error) {
	typ := raw
	sub := ""
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			typ, sub = raw[:i], raw[i+1:]
			break
		}
	}

	switch ModuleType(typ) {
	case TypeInput, TypeOutput, TypeFilter, TypeStorage:
	default:
		return "", SubtypeNone, fmt.Errorf("%w: unknown module_type %q", errors.ErrInvalidConfig, raw)
	}

	switch Subtype(sub) {
	case SubtypeNone:
	case SubtypeBuffer, SubtypeArchive:
		if ModuleType(typ) != TypeStorage {
			return "", SubtypeNone, fmt.Errorf("%w: subtype %q is only valid for storage segments", errors.ErrInvalidConfig, sub)
		}
	default:
		return "", SubtypeNone, fmt.Errorf("%w: unknown subtype in module_type %q", errors.ErrInvalidConfig, raw)
	}

	return ModuleType(typ), Subtype(sub), nil
}

// Segment describes one configured pipeline position: which implementation
// to load, its declared capability, what it observes, and the raw section
// its implementation parses stage-specific keys from.
type Segment struct {
	Name          string
	Class         string
	Location      string
	Type          ModuleType
	Subtype       Subtype
	Subscriptions []string
	Detail        map[string]any
}

// Config is a loaded pipeline configuration. Segments preserve declaration
// order; that order is the execution order of the driving flow.
type Config struct {
	// Source is the path the configuration was loaded from, empty for
	// configurations assembled in code.
	Source string

	// Data is the reserved data section.
	Data map[string]any

	// Segments are the pipeline segments in declaration order.
	Segments []Segment
}

// Segment returns the named segment.
func (c *Config) Segment(name string) (Segment, bool) {
	for _, s := range c.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// SegmentNames returns the segment names in declaration order.
func (c *Config) SegmentNames() []string {
	names := make([]string, len(c.Segments))
	for i, s := range c.Segments {
		names[i] = s.Name
	}
	return names
}

// Names resolves the field-name table from the data section.
func (c *Config) Names() (record.Names, error) {
	return record.ResolveNames(c.Data)
}

// Register returns the value register: the authoritative mapping from
// expected record-id to that record's default fields. Ids are returned in
// the map; use RegisterIDs for the sorted key list.
func (c *Config) Register() (map[string]record.Record, error) {
	raw, ok := c.Data[KeyRegister]
	if !ok {
		err := fmt.Errorf("%w: %s", errors.ErrMissingSection, KeyRegister)
		return nil, errors.WrapConfig(err, "Config", "Register", "read value register")
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		err := fmt.Errorf("%w: %s: expected mapping, got %T", errors.ErrInvalidConfig, KeyRegister, raw)
		return nil, errors.WrapConfig(err, "Config", "Register", "read value register")
	}

	register := make(map[string]record.Record, len(entries))
	for id, fields := range entries {
		rec := record.Record{}
		if fields != nil {
			m, ok := fields.(map[string]any)
			if !ok {
				err := fmt.Errorf("%w: %s[%s]: expected mapping, got %T", errors.ErrInvalidConfig, KeyRegister, id, fields)
				return nil, errors.WrapConfig(err, "Config", "Register", "read value register")
			}
			for k, v := range m {
				s, ok := v.(string)
				if !ok {
					err := fmt.Errorf("%w: %s[%s].%s: expected string, got %T", errors.ErrInvalidConfig, KeyRegister, id, k, v)
					return nil, errors.WrapConfig(err, "Config", "Register", "read value register")
				}
				rec[k] = s
			}
		}
		register[id] = rec
	}
	return register, nil
}

// RegisterIDs returns the registered record-ids in sorted order.
func (c *Config) RegisterIDs() ([]string, error) {
	register, err := c.Register()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(register))
	for id := range register {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Validate checks the structural invariants every pipeline configuration
// must satisfy: a data section with a well-formed register and name table,
// and complete segment descriptors.
func (c *Config) Validate() error {
	if c == nil {
		err := fmt.Errorf("%w: configuration is nil", errors.ErrMissingConfig)
		return errors.WrapConfig(err, "Config", "Validate", "check configuration")
	}
	if c.Data == nil {
		err := fmt.Errorf("%w: %s", errors.ErrMissingSection, KeyData)
		return errors.WrapConfig(err, "Config", "Validate", "check data section")
	}
	if _, err := c.Names(); err != nil {
		return err
	}
	if _, err := c.Register(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Segments))
	for _, seg := range c.Segments {
		if seg.Name == "" {
			err := fmt.Errorf("%w: segment with empty name", errors.ErrInvalidConfig)
			return errors.WrapConfig(err, "Config", "Validate", "check segments")
		}
		if seen[seg.Name] {
			err := fmt.Errorf("%w: duplicate segment %q", errors.ErrInvalidConfig, seg.Name)
			return errors.WrapConfig(err, "Config", "Validate", "check segments")
		}
		seen[seg.Name] = true
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(seg Segment) error {
	wrap := func(err error) error {
		return errors.WrapConfig(err, "Config", "Validate", fmt.Sprintf("check segment %q", seg.Name))
	}
	if seg.Class == "" {
		return wrap(fmt.Errorf("%w: %s", errors.ErrMissingConfig, KeyClass))
	}
	if seg.Location == "" {
		return wrap(fmt.Errorf("%w: %s", errors.ErrMissingConfig, KeyLocation))
	}
	switch seg.Type {
	case TypeInput, TypeOutput, TypeFilter, TypeStorage:
	default:
		return wrap(fmt.Errorf("%w: unknown module_type %q", errors.ErrInvalidConfig, string(seg.Type)))
	}
	if seg.Subtype != SubtypeNone && seg.Type != TypeStorage {
		return wrap(fmt.Errorf("%w: subtype %q on non-storage segment", errors.ErrInvalidConfig, string(seg.Subtype)))
	}
	subs := make(map[string]bool, len(seg.Subscriptions))
	for _, target := range seg.Subscriptions {
		if target == "" {
			return wrap(fmt.Errorf("%w: empty subscription target", errors.ErrInvalidConfig))
		}
		if subs[target] {
			return wrap(fmt.Errorf("%w: duplicate subscription target %q", errors.ErrInvalidConfig, target))
		}
		subs[target] = true
	}
	return nil
}
