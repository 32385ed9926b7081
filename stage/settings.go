package stage

import (
	"fmt"
	"sort"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
)

// Settings is the slice of the configuration every stage resolves at
// configure time: its own segment section, the field-name table, and the
// value register. Stage implementations keep a copy and read their
// stage-specific keys from Segment.Detail.
type Settings struct {
	Segment  config.Segment
	Names    record.Names
	Register map[string]record.Record
}

// RegisterIDs returns the registered record-ids in sorted order.
func (s Settings) RegisterIDs() []string {
	ids := make([]string, 0, len(s.Register))
	for id := range s.Register {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Registered reports whether an id is in the value register.
func (s Settings) Registered(id string) bool {
	_, ok := s.Register[id]
	return ok
}

// ResolveSettings performs the configure-time validation shared by all
// stages: the data section must be present with a resolvable name table and
// register, and the stage's own segment section must exist and declare the
// stage's module type.
func ResolveSettings(cfg *config.Config, segment string, typ config.ModuleType) (Settings, error) {
	wrap := func(err error) error {
		return errors.WrapConfig(err, "Stage", "Configure", fmt.Sprintf("resolve settings for segment %q", segment))
	}
	if cfg == nil {
		return Settings{}, wrap(fmt.Errorf("%w: configuration is nil", errors.ErrMissingConfig))
	}
	if cfg.Data == nil {
		return Settings{}, wrap(fmt.Errorf("%w: %s", errors.ErrMissingSection, config.KeyData))
	}

	names, err := cfg.Names()
	if err != nil {
		return Settings{}, err
	}
	register, err := cfg.Register()
	if err != nil {
		return Settings{}, err
	}

	seg, ok := cfg.Segment(segment)
	if !ok {
		return Settings{}, wrap(fmt.Errorf("%w: %s", errors.ErrMissingSection, segment))
	}
	if seg.Type != typ {
		return Settings{}, wrap(fmt.Errorf("%w: segment declares %q, implementation provides %q",
			errors.ErrInvalidConfig, string(seg.Type), string(typ)))
	}

	return Settings{Segment: seg, Names: names, Register: register}, nil
}
