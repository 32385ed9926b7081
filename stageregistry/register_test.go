package stageregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/stage"
)

func TestRegisterAllBundledStages(t *testing.T) {
	registry := stage.NewRegistry(stage.Dependencies{})
	require.NoError(t, Register(registry))

	classes := registry.Classes()
	want := []string{
		"github.com/ategus/bridginghub/filter/fieldmap/FieldMapFilter",
		"github.com/ategus/bridginghub/filter/luascript/LuaFilter",
		"github.com/ategus/bridginghub/input/natsbus/NATSCollector",
		"github.com/ategus/bridginghub/input/static/StaticCollector",
		"github.com/ategus/bridginghub/input/stdin/StdinCollector",
		"github.com/ategus/bridginghub/output/httppost/PostRequestSender",
		"github.com/ategus/bridginghub/output/stdout/StdoutSender",
		"github.com/ategus/bridginghub/storage/filecache/FileCache",
	}
	assert.Equal(t, want, classes)
}

func TestRegisterTwiceFails(t *testing.T) {
	registry := stage.NewRegistry(stage.Dependencies{})
	require.NoError(t, Register(registry))

	err := Register(registry)
	require.Error(t, err)
	assert.True(t, errors.IsModuleLoader(err), "want module loader error, got %v", err)
	assert.ErrorIs(t, err, errors.ErrDuplicateModule)
}

func TestRegisterNilRegistry(t *testing.T) {
	err := Register(nil)
	require.Error(t, err)
	assert.True(t, errors.IsModuleLoader(err))
}
