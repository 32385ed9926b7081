// Package stageregistry registers the bundled stage implementations.
package stageregistry

import (
	"errors"

	pkgerrors "github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/filter/fieldmap"
	"github.com/ategus/bridginghub/filter/luascript"
	"github.com/ategus/bridginghub/input/natsbus"
	"github.com/ategus/bridginghub/input/static"
	"github.com/ategus/bridginghub/input/stdin"
	"github.com/ategus/bridginghub/output/httppost"
	"github.com/ategus/bridginghub/output/stdout"
	"github.com/ategus/bridginghub/stage"
	"github.com/ategus/bridginghub/storage/filecache"
)

// Register adds every bundled implementation to the registry:
//
// Collectors:
//   - StdinCollector (one value per line)
//   - StaticCollector (configured fixed values, host info fallback)
//   - NATSCollector (drains a NATS subject)
//
// Filters:
//   - FieldMapFilter (merge_register, add_datetime, rename)
//   - LuaFilter (sandboxed per-record scripting)
//
// Senders:
//   - StdoutSender (JSON lines)
//   - PostRequestSender (HTTP POST with retries)
//
// Storage:
//   - FileCache (file staging with archive/junk promotion)
//
// Implementations from other modules register themselves next to these
// before the orchestrator realizes the configured segments.
func Register(registry *stage.Registry) error {
	if registry == nil {
		return pkgerrors.WrapModuleLoader(
			errors.New("registry cannot be nil"),
			"StageRegistry", "Register", "registry validation")
	}

	// Collectors
	if err := stdin.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "stdin collector registration")
	}
	if err := static.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "static collector registration")
	}
	if err := natsbus.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "NATS bus collector registration")
	}

	// Filters
	if err := fieldmap.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "field map filter registration")
	}
	if err := luascript.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "Lua filter registration")
	}

	// Senders
	if err := stdout.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "stdout sender registration")
	}
	if err := httppost.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "HTTP POST sender registration")
	}

	// Storage
	if err := filecache.Register(registry); err != nil {
		return pkgerrors.WrapModuleLoader(err, "StageRegistry", "Register", "file cache storage registration")
	}

	return nil
}
