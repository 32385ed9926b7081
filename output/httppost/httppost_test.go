package httppost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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
	return &config.Config{
		Data: map[string]any{
			"value_register_map": map[string]any{
				"p1": map[string]any{"unit": "°C"},
				"p2": map[string]any{"unit": "%"},
				"p3": map[string]any{"unit": "hPa"},
			},
		},
		Segments: []config.Segment{{
			Name:     "webhook",
			Class:    className,
			Location: location,
			Type:     config.TypeOutput,
			Detail:   detail,
		}},
	}
}

func newTestSender(t *testing.T, detail map[string]any) *Sender {
	t.Helper()
	raw, err := New("webhook", stage.Dependencies{})
	require.NoError(t, err)
	s, ok := raw.(*Sender)
	require.True(t, ok)
	require.NoError(t, s.Configure(testConfig(detail)))
	return s
}

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name   string
		detail map[string]any
	}{
		{"missing host_url", map[string]any{}},
		{"bad scheme", map[string]any{"host_url": "ftp://example.com/upload"}},
		{"bad expected_retval", map[string]any{"host_url": "http://example.com", "expected_retval": 42}},
		{"timeout out of range", map[string]any{"host_url": "http://example.com", "timeout": 301}},
		{"retry_count out of range", map[string]any{"host_url": "http://example.com", "retry_count": 11}},
		{"negative rate_limit", map[string]any{"host_url": "http://example.com", "rate_limit": -1.0}},
		{"username without password", map[string]any{"host_url": "http://example.com", "basic_username": "ops"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := New("webhook", stage.Dependencies{})
			require.NoError(t, err)
			err = raw.Configure(testConfig(tt.detail))
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "want config error, got %v", err)
		})
	}
}

func TestSendExpectedStatus(t *testing.T) {
	var bodies [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":        server.URL,
		"expected_retval": 201,
		"retry_count":     0,
	})

	batch := record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
		"p2": {"id": "p2", "value": "47", "status": record.StatusCached},
	}
	out, err := s.Send(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, record.StatusOut, out["p1"]["status"])
	assert.Equal(t, record.StatusOut, out["p2"]["status"])

	require.Len(t, bodies, 2)
	var first map[string]string
	require.NoError(t, json.Unmarshal(bodies[0], &first))
	assert.Equal(t, "p1", first["id"], "sorted id order")
}

func TestSendSelectSendAs(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 0,
		"select_send_as": map[string]any{
			"value":     "val",
			"timestamp": "ts",
		},
	})

	batch := record.Batch{"p1": {"id": "p1", "value": "21.5", "timestamp": "123", "status": record.StatusCached}}
	out, err := s.Send(context.Background(), batch)
	require.NoError(t, err)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "21.5", sent["val"])
	assert.Equal(t, "123", sent["ts"])
	assert.Equal(t, "p1", sent["id"], "unmapped fields keep their name")
	assert.NotContains(t, sent, "value")

	assert.Equal(t, "21.5", out["p1"]["value"], "the stored record keeps its field names")
}

func TestSendBasicAuthAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ops", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "bridginghub", r.Header.Get("X-Origin"))
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":       server.URL,
		"retry_count":    0,
		"basic_username": "ops",
		"basic_password": "secret",
		"headers":        map[string]any{"X-Origin": "bridginghub"},
	})

	_, err := s.Send(context.Background(), record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
	})
	require.NoError(t, err)
}

func TestSendDefinitiveRejectionStampsFailed(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 3,
	})

	out, err := s.Send(context.Background(), record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
	})
	require.NoError(t, err)

	assert.Equal(t, record.StatusFailed, out["p1"]["status"])
	assert.Equal(t, int32(1), attempts.Load(), "definitive rejections are not retried")
}

func TestSendTransientFailureLeavesRecordStaged(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 1,
	})

	out, err := s.Send(context.Background(), record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
	})
	require.NoError(t, err)

	assert.Empty(t, out, "no definitive outcome, record stays staged")
	assert.Equal(t, int32(2), attempts.Load(), "one retry after the first 503")
}

func TestSendTransportFailureLeavesRecordStaged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 0,
	})

	out, err := s.Send(context.Background(), record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSendMixedOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var sent map[string]string
		assert.NoError(t, json.Unmarshal(body, &sent))
		switch sent["id"] {
		case "p1":
			w.WriteHeader(http.StatusOK)
		case "p2":
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 0,
	})

	batch := record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
		"p2": {"id": "p2", "value": "47", "status": record.StatusCached},
		"p3": {"id": "p3", "value": "1013", "status": record.StatusCached},
	}
	out, err := s.Send(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, out.IDs())
	assert.Equal(t, record.StatusOut, out["p1"]["status"])
	assert.Equal(t, record.StatusFailed, out["p2"]["status"])
}

func TestSendRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 0,
		"rate_limit":  20.0,
	})

	batch := record.Batch{
		"p1": {"id": "p1", "value": "1", "status": record.StatusCached},
		"p2": {"id": "p2", "value": "2", "status": record.StatusCached},
		"p3": {"id": "p3", "value": "3", "status": record.StatusCached},
	}
	start := time.Now()
	out, err := s.Send(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// 20 req/s means 50ms between requests; the second and third wait.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSendCancelledContextAbortsPass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	s := newTestSender(t, map[string]any{
		"host_url":    server.URL,
		"retry_count": 0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.Send(ctx, record.Batch{
		"p1": {"id": "p1", "value": "21.5", "status": record.StatusCached},
	})
	require.Error(t, err)
	assert.True(t, errors.IsOutput(err), "want output error, got %v", err)
	assert.Nil(t, out)
}

func TestDispatchActivation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	s := newTestSender(t, map[string]any{"host_url": server.URL})

	for _, rc := range []stage.RunContext{stage.RunOutput, stage.RunBridge} {
		callable, err := s.Dispatch(rc)
		require.NoError(t, err)
		assert.NotNil(t, callable, string(rc))
	}
	for _, rc := range []stage.RunContext{stage.RunInput, stage.RunCleanup} {
		callable, err := s.Dispatch(rc)
		require.NoError(t, err)
		assert.Nil(t, callable, string(rc))
	}
}
