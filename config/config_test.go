package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSONPreservesSegmentOrder(t *testing.T) {
	testConfig := `{
		"data": {
			"value_register_map": {"p1": {"unit": "°C"}}
		},
		"zeta": {
			"module_class_name": "StdinCollector",
			"module_path": "github.com/ategus/bridginghub/input/stdin",
			"module_type": "input"
		},
		"alpha": {
			"module_class_name": "StdoutSender",
			"module_path": "github.com/ategus/bridginghub/output/stdout",
			"module_type": "output"
		},
		"mid": {
			"module_class_name": "FieldMapFilter",
			"module_path": "github.com/ategus/bridginghub/filter/fieldmap",
			"module_type": "filter"
		}
	}`

	path := writeConfig(t, t.TempDir(), "config.json", testConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	// Declaration order, not lexical order
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, cfg.SegmentNames())
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_YAMLPreservesSegmentOrder(t *testing.T) {
	testConfig := `
data:
  timestamp_name: ts
  value_register_map:
    p1:
      unit: "°C"
    p2: {}
zeta:
  module_class_name: StdinCollector
  module_path: github.com/ategus/bridginghub/input/stdin
  module_type: input
alpha:
  module_class_name: FileCache
  module_path: github.com/ategus/bridginghub/storage/filecache
  module_type: "storage:buffer"
  cache_dir: /var/lib/bridginghub/cache
`
	path := writeConfig(t, t.TempDir(), "config.yaml", testConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha"}, cfg.SegmentNames())

	seg, ok := cfg.Segment("alpha")
	require.True(t, ok)
	assert.Equal(t, TypeStorage, seg.Type)
	assert.Equal(t, SubtypeBuffer, seg.Subtype)
	assert.Equal(t, "/var/lib/bridginghub/cache", GetString(seg.Detail, "cache_dir", ""))

	names, err := cfg.Names()
	require.NoError(t, err)
	rec := record.Record{"ts": "100"}
	assert.Equal(t, "100", names.Get(rec, record.FieldTimestamp))
}

func TestLoad_SegmentDescriptor(t *testing.T) {
	testConfig := `{
		"data": {"value_register_map": {}},
		"deliver": {
			"module_class_name": "PostRequestSender",
			"module_path": "github.com/ategus/bridginghub/output/httppost",
			"module_type": "output",
			"module_subscription": ["buffer", "collect"],
			"host_url": "https://sink.example/api"
		}
	}`

	path := writeConfig(t, t.TempDir(), "config.json", testConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	seg, ok := cfg.Segment("deliver")
	require.True(t, ok)
	assert.Equal(t, "PostRequestSender", seg.Class)
	assert.Equal(t, "github.com/ategus/bridginghub/output/httppost", seg.Location)
	assert.Equal(t, TypeOutput, seg.Type)
	assert.Equal(t, SubtypeNone, seg.Subtype)
	assert.Equal(t, []string{"buffer", "collect"}, seg.Subscriptions)
	assert.Equal(t, "https://sink.example/api", GetString(seg.Detail, "host_url", ""))
}

func TestLoad_FileReference(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "segments")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Relative reference resolves against the referring file's directory.
	writeConfig(t, sub, "collect.yaml", `
module_class_name: StdinCollector
module_path: github.com/ategus/bridginghub/input/stdin
module_type: input
`)
	writeConfig(t, dir, "data.json", `{"value_register_map": {"p1": {}}}`)
	root := writeConfig(t, dir, "config.json", `{
		"data": "data.json",
		"collect": "segments/collect.yaml"
	}`)

	cfg, err := Load(root)
	require.NoError(t, err)

	seg, ok := cfg.Segment("collect")
	require.True(t, ok)
	assert.Equal(t, "StdinCollector", seg.Class)

	register, err := cfg.Register()
	require.NoError(t, err)
	assert.Contains(t, register, "p1")
}

func TestLoad_ReferenceChainBounded(t *testing.T) {
	dir := t.TempDir()
	// a.json -> b.json -> a.json loops forever without the depth bound.
	writeConfig(t, dir, "a.json", `"b.json"`)
	writeConfig(t, dir, "b.json", `"a.json"`)
	root := writeConfig(t, dir, "config.json", `{
		"data": "a.json"
	}`)

	_, err := Load(root)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "missing data section",
			file:    "config.json",
			content: `{"collect": {"module_class_name": "X", "module_path": "p", "module_type": "input"}}`,
		},
		{
			name:    "missing module_class_name",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_path": "p", "module_type": "input"}}`,
		},
		{
			name:    "missing module_path",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_class_name": "X", "module_type": "input"}}`,
		},
		{
			name:    "missing module_type",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_class_name": "X", "module_path": "p"}}`,
		},
		{
			name:    "unknown module_type",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_class_name": "X", "module_path": "p", "module_type": "transmogrifier"}}`,
		},
		{
			name:    "subtype on non-storage segment",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_class_name": "X", "module_path": "p", "module_type": "input:buffer"}}`,
		},
		{
			name:    "unknown storage subtype",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "s": {"module_class_name": "X", "module_path": "p", "module_type": "storage:ring"}}`,
		},
		{
			name:    "scalar section",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": 42}`,
		},
		{
			name:    "subscription not a list",
			file:    "config.json",
			content: `{"data": {"value_register_map": {}}, "collect": {"module_class_name": "X", "module_path": "p", "module_type": "input", "module_subscription": "other"}}`,
		},
		{
			name:    "non-string field name override",
			file:    "config.json",
			content: `{"data": {"timestamp_name": 5, "value_register_map": {}}}`,
		},
		{
			name:    "non-string register field",
			file:    "config.json",
			content: `{"data": {"value_register_map": {"p1": {"unit": 7}}}}`,
		},
		{
			name:    "missing register",
			file:    "config.json",
			content: `{"data": {}}`,
		},
		{
			name:    "top level not an object",
			file:    "config.json",
			content: `[1, 2, 3]`,
		},
		{
			name:    "yaml top level not a mapping",
			file:    "config.yaml",
			content: "- a\n- b\n",
		},
		{
			name:    "unsupported extension",
			file:    "config.toml",
			content: `anything`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsConfig(err), "expected config kind, got %v", err)
		})
	}
}

func TestLoad_DuplicateSectionRejected(t *testing.T) {
	// JSON tolerates duplicate keys at the syntax level; the token walk
	// sees both.
	testConfig := `{
		"data": {"value_register_map": {}},
		"collect": {"module_class_name": "X", "module_path": "p", "module_type": "input"},
		"collect": {"module_class_name": "Y", "module_path": "p", "module_type": "input"}
	}`
	path := writeConfig(t, t.TempDir(), "config.json", testConfig)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestConfig_Register(t *testing.T) {
	cfg := &Config{
		Data: map[string]any{
			KeyRegister: map[string]any{
				"p2": map[string]any{"unit": "%"},
				"p1": map[string]any{"unit": "°C", "location": "cellar"},
			},
		},
	}

	register, err := cfg.Register()
	require.NoError(t, err)
	assert.Equal(t, "cellar", map[string]string(register["p1"])["location"])

	ids, err := cfg.RegisterIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
}

func TestConfig_ValidateDuplicateSubscription(t *testing.T) {
	cfg := &Config{
		Data: map[string]any{KeyRegister: map[string]any{}},
		Segments: []Segment{{
			Name:          "deliver",
			Class:         "StdoutSender",
			Location:      "github.com/ategus/bridginghub/output/stdout",
			Type:          TypeOutput,
			Subscriptions: []string{"buffer", "buffer"},
		}},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConfig(err))
}

func TestParseModuleType(t *testing.T) {
	typ, sub, err := ParseModuleType("storage:archive")
	require.NoError(t, err)
	assert.Equal(t, TypeStorage, typ)
	assert.Equal(t, SubtypeArchive, sub)

	typ, sub, err = ParseModuleType("filter")
	require.NoError(t, err)
	assert.Equal(t, TypeFilter, typ)
	assert.Equal(t, SubtypeNone, sub)

	_, _, err = ParseModuleType("storage:ring")
	require.Error(t, err)

	_, _, err = ParseModuleType("")
	require.Error(t, err)
}
