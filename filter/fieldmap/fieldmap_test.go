package fieldmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

func testConfig(detail map[string]any) *config.Config {
	if detail == nil {
		detail = map[string]any{}
	}
	return &config.Config{
		Data: map[string]any{
			"value_register_map": map[string]any{
				"p1": map[string]any{"unit": "°C", "location": "cellar"},
				"p2": map[string]any{"unit": "%"},
			},
		},
		Segments: []config.Segment{{
			Name:     "enrich",
			Class:    className,
			Location: location,
			Type:     config.TypeFilter,
			Detail:   detail,
		}},
	}
}

func newTestFilter(t *testing.T, detail map[string]any) *Filter {
	t.Helper()
	raw, err := New("enrich", stage.Dependencies{})
	require.NoError(t, err)
	f, ok := raw.(*Filter)
	require.True(t, ok)
	require.NoError(t, f.Configure(testConfig(detail)))
	return f
}

func TestParseSpecsValidation(t *testing.T) {
	tests := []struct {
		name   string
		detail map[string]any
	}{
		{"filters not a list", map[string]any{"filters": "merge_register"}},
		{"entry not a mapping", map[string]any{"filters": []any{"merge_register"}}},
		{"unknown filter", map[string]any{"filters": []any{
			map[string]any{"name": "jinja_template"},
		}}},
		{"add_datetime without field", map[string]any{"filters": []any{
			map[string]any{"name": "add_datetime"},
		}}},
		{"rename without mapping", map[string]any{"filters": []any{
			map[string]any{"name": "rename"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := New("enrich", stage.Dependencies{})
			require.NoError(t, err)
			err = raw.Configure(testConfig(tt.detail))
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "want config error, got %v", err)
		})
	}
}

func TestNoFiltersConfigured(t *testing.T) {
	f := newTestFilter(t, nil)

	batch := record.Batch{"p1": {"value": "21.5"}}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, batch, out)
}

func TestMergeRegister(t *testing.T) {
	f := newTestFilter(t, map[string]any{"filters": []any{
		map[string]any{"name": "merge_register"},
	}})

	batch := record.Batch{
		"p1": {"value": "21.5", "location": "attic"},
		"p2": {"value": "47"},
		"p9": {"value": "unregistered"},
	}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "°C", out["p1"]["unit"], "register fills gaps")
	assert.Equal(t, "attic", out["p1"]["location"], "record value takes precedence")
	assert.Equal(t, "%", out["p2"]["unit"])
	assert.Equal(t, record.Record{"value": "unregistered"}, out["p9"], "unregistered ids pass through")
}

func TestAddDatetime(t *testing.T) {
	f := newTestFilter(t, map[string]any{"filters": []any{
		map[string]any{"name": "add_datetime", "field": "created", "layout": "2006-01-02"},
	}})

	batch := record.Batch{
		"p1": {"value": "21.5"},
		"p2": {"value": "47"},
	}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)

	created := out["p1"]["created"]
	require.NotEmpty(t, created)
	_, err = time.Parse("2006-01-02", created)
	assert.NoError(t, err, "layout applied")
	assert.Equal(t, created, out["p2"]["created"], "one formatting for the whole batch")
}

func TestRename(t *testing.T) {
	f := newTestFilter(t, map[string]any{"filters": []any{
		map[string]any{"name": "rename", "mapping": map[string]any{
			"value": "reading",
			"unit":  "uom",
		}},
	}})

	batch := record.Batch{"p1": {"value": "21.5", "unit": "°C", "status": "in"}}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "21.5", out["p1"]["reading"])
	assert.Equal(t, "°C", out["p1"]["uom"])
	assert.Equal(t, "in", out["p1"]["status"], "unmapped fields pass through")
	assert.NotContains(t, out["p1"], "value")
	assert.NotContains(t, out["p1"], "unit")
}

func TestRenameIsSimultaneous(t *testing.T) {
	f := newTestFilter(t, map[string]any{"filters": []any{
		map[string]any{"name": "rename", "mapping": map[string]any{
			"a": "b",
			"b": "c",
		}},
	}})

	batch := record.Batch{"p1": {"a": "1", "b": "2"}}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "1", out["p1"]["b"], "original a moved to b")
	assert.Equal(t, "2", out["p1"]["c"], "original b moved to c")
	assert.NotContains(t, out["p1"], "a")
}

func TestFiltersApplyInOrder(t *testing.T) {
	f := newTestFilter(t, map[string]any{"filters": []any{
		map[string]any{"name": "merge_register"},
		map[string]any{"name": "rename", "mapping": map[string]any{"location": "place"}},
	}})

	batch := record.Batch{"p1": {"value": "21.5"}}
	out, err := f.Filter(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "cellar", out["p1"]["place"], "merge ran before rename")
	assert.NotContains(t, out["p1"], "location")
}

func TestDispatchActivation(t *testing.T) {
	f := newTestFilter(t, nil)

	for _, rc := range []stage.RunContext{stage.RunInput, stage.RunOutput, stage.RunBridge} {
		callable, err := f.Dispatch(rc)
		require.NoError(t, err)
		assert.NotNil(t, callable, string(rc))
	}

	callable, err := f.Dispatch(stage.RunCleanup)
	require.NoError(t, err)
	assert.Nil(t, callable, "filters are inactive in cleanup")
}
