// Package luascript implements a filter that runs a sandboxed Lua script
// against every record. The script sees the globals id (string) and record
// (table) and returns the possibly modified record table, true to keep the
// record unchanged, or false/nil to drop it.
package luascript

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "LuaFilter"
	location  = "github.com/ategus/bridginghub/filter/luascript"

	defaultTimeoutMs = 1000
)

// Config holds the script source and execution bounds.
type Config struct {
	// Script is the inline Lua source. Exactly one of Script and
	// ScriptFile must be set.
	Script string `json:"script"`

	// ScriptFile is a path to the Lua source, read once at configure time.
	ScriptFile string `json:"script_file"`

	// TimeoutMs bounds one script execution, per record.
	TimeoutMs int `json:"timeout_ms"`
}

// DefaultConfig returns the default execution bounds.
func DefaultConfig() Config {
	return Config{TimeoutMs: defaultTimeoutMs}
}

func parseConfig(detail map[string]any) Config {
	cfg := DefaultConfig()
	cfg.Script = config.GetString(detail, "script", "")
	cfg.ScriptFile = config.GetString(detail, "script_file", "")
	cfg.TimeoutMs = config.GetInt(detail, "timeout_ms", cfg.TimeoutMs)
	return cfg
}

// Validate checks the script source selection and bounds.
func (c Config) Validate() error {
	if c.Script == "" && c.ScriptFile == "" {
		return fmt.Errorf("%w: one of script or script_file", errors.ErrMissingConfig)
	}
	if c.Script != "" && c.ScriptFile != "" {
		return fmt.Errorf("%w: script and script_file are mutually exclusive", errors.ErrInvalidConfig)
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout_ms must be positive, got %d", errors.ErrInvalidConfig, c.TimeoutMs)
	}
	return nil
}

// Filter runs the configured script once per record, each in a fresh
// sandboxed Lua state so records cannot leak state into each other.
type Filter struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	script     string
	timeout    time.Duration
	configured bool
}

var _ stage.Filter = (*Filter)(nil)

// New creates an unconfigured Lua filter for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Filter{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the LuaFilter implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeFilter,
		Description: "Transforms or drops records with a sandboxed Lua script",
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
		Description: "Transforms or drops records with a sandboxed Lua script",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings, loads the script source and
// compiles it once so syntax errors surface as configuration errors.
func (f *Filter) Configure(cfg *config.Config) error {
	if f.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, f.segment, config.TypeFilter)
	if err != nil {
		return err
	}

	luaCfg := parseConfig(settings.Segment.Detail)
	if err := luaCfg.Validate(); err != nil {
		return errors.WrapConfig(err, className, "Configure", "validate script selection")
	}

	script := luaCfg.Script
	if luaCfg.ScriptFile != "" {
		data, err := os.ReadFile(luaCfg.ScriptFile)
		if err != nil {
			return errors.WrapConfig(err, className, "Configure", "read script_file")
		}
		script = string(data)
	}

	state := newSandboxState()
	defer state.Close()
	if _, err := state.LoadString(script); err != nil {
		return errors.WrapConfig(err, className, "Configure", "compile script")
	}

	f.settings = settings
	f.script = script
	f.timeout = time.Duration(luaCfg.TimeoutMs) * time.Millisecond
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

// Filter runs the script for each record in sorted id order. A runtime
// error in any record aborts the pass.
func (f *Filter) Filter(ctx context.Context, batch record.Batch) (record.Batch, error) {
	out := record.Batch{}
	for _, id := range batch.IDs() {
		rec, keep, err := f.runScript(ctx, id, batch[id])
		if err != nil {
			return nil, errors.WrapFilter(err, className, "Filter", "run script for record "+id)
		}
		if !keep {
			f.logger.Debug("record dropped by script", "id", id)
			continue
		}
		out[id] = rec
	}
	return out, nil
}

// runScript executes the script in a fresh sandbox against one record.
func (f *Filter) runScript(ctx context.Context, id string, rec record.Record) (record.Record, bool, error) {
	state := newSandboxState()
	defer state.Close()

	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	state.SetContext(runCtx)

	state.SetGlobal("id", lua.LString(id))
	state.SetGlobal("record", recordToTable(state, rec))

	fn, err := state.LoadString(f.script)
	if err != nil {
		return nil, false, err
	}
	state.Push(fn)
	if err := state.PCall(0, 1, nil); err != nil {
		return nil, false, err
	}

	ret := state.Get(-1)
	state.Pop(1)

	switch v := ret.(type) {
	case *lua.LTable:
		result, err := tableToRecord(v)
		if err != nil {
			return nil, false, err
		}
		return result, true, nil
	case lua.LBool:
		if bool(v) {
			return rec, true, nil
		}
		return nil, false, nil
	case *lua.LNilType:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: script returned %s, want table, boolean or nil",
			errors.ErrInvalidData, ret.Type())
	}
}

// newSandboxState creates a Lua state with only the base, string, table and
// math libraries opened. os, io, debug and the loaders stay unavailable.
func newSandboxState() *lua.LState {
	state := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	openLib := func(name string, open lua.LGFunction) {
		state.Push(state.NewFunction(open))
		state.Push(lua.LString(name))
		state.Call(1, 0)
	}
	openLib("base", lua.OpenBase)
	openLib("string", lua.OpenString)
	openLib("table", lua.OpenTable)
	openLib("math", lua.OpenMath)
	return state
}

// recordToTable converts a record to a Lua table of string fields.
func recordToTable(state *lua.LState, rec record.Record) *lua.LTable {
	tbl := state.NewTable()
	for field, value := range rec {
		tbl.RawSetString(field, lua.LString(value))
	}
	return tbl
}

// tableToRecord converts a returned Lua table back to a record. Keys must
// be strings; string, number and boolean values are stringified, anything
// else is invalid.
func tableToRecord(tbl *lua.LTable) (record.Record, error) {
	rec := record.Record{}
	var convErr error
	tbl.ForEach(func(key, value lua.LValue) {
		if convErr != nil {
			return
		}
		field, ok := key.(lua.LString)
		if !ok {
			convErr = fmt.Errorf("%w: non-string field name %s in returned table", errors.ErrInvalidData, key.String())
			return
		}
		switch v := value.(type) {
		case lua.LString:
			rec[string(field)] = string(v)
		case lua.LNumber:
			rec[string(field)] = v.String()
		case lua.LBool:
			rec[string(field)] = v.String()
		default:
			convErr = fmt.Errorf("%w: field %q has unsupported type %s in returned table",
				errors.ErrInvalidData, string(field), value.Type())
		}
	})
	if convErr != nil {
		return nil, convErr
	}
	return rec, nil
}
