package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoonforest/ailink/internal/controller"
	"github.com/raccoonforest/ailink/internal/listener"
	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/pkg/component"
	"github.com/raccoonforest/ailink/pkg/config"
	"github.com/raccoonforest/ailink/pkg/events/local"
	"github.com/raccoonforest/ailink/pkg/logger"
	"github.com/raccoonforest/ailink/pkg/session"
)

func newTestServer(t *testing.T, store *recorder.Store) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	bus := local.NewBus()
	t.Cleanup(func() { bus.Close() })

	deps := component.Dependencies{
		EventBus: bus,
		Config:   cfg,
		Sessions: session.NewRegistry(0),
	}

	ctrl, err := controller.New(deps)
	require.NoError(t, err)

	lst, err := listener.New(deps, ctrl)
	require.NoError(t, err)

	c := New(deps, ctrl, lst, store, nil)
	srv := httptest.NewServer(c.routes())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	var status statusResponse
	resp := getJSON(t, srv, "/v1/status", &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, "random", status.Controller.Strategy)
	assert.Equal(t, 0, status.Controller.Iteration)
	assert.Equal(t, "127.0.0.1:5000", status.Listener.Address)
	assert.Equal(t, 5, status.Listener.MaxSessions)
}

func TestSessionsEndpointEmpty(t *testing.T) {
	srv := newTestServer(t, nil)

	var sessions []session.Info
	resp := getJSON(t, srv, "/v1/sessions", &sessions)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, sessions)
}

func TestEpisodesWithoutRecorder(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := getJSON(t, srv, "/v1/episodes", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = getJSON(t, srv, "/v1/episodes/some-id", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEpisodesEndpoint(t *testing.T) {
	store, err := recorder.Open(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.BeginEpisode(ctx, "ep1", "reflex", "127.0.0.1:40000", time.Now()))
	require.NoError(t, store.AppendStep(ctx, "ep1", 1, recorder.StepCommand, []byte("SHOOT")))
	require.NoError(t, store.EndEpisode(ctx, "ep1", "completed", time.Now()))

	srv := newTestServer(t, store)

	var episodes []recorder.Episode
	resp := getJSON(t, srv, "/v1/episodes", &episodes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, episodes, 1)
	assert.Equal(t, "ep1", episodes[0].ID)
	assert.Equal(t, 1, episodes[0].Steps)

	var steps []recorder.Step
	resp = getJSON(t, srv, "/v1/episodes/ep1", &steps)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, steps, 1)
	assert.Equal(t, "SHOOT", steps[0].Payload)

	resp = getJSON(t, srv, "/v1/episodes/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, srv, "/v1/episodes?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEpisodesEmptyList(t *testing.T) {
	store, err := recorder.Open(filepath.Join(t.TempDir(), "episodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/v1/episodes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)), "empty list must encode as [], not null")
}

func TestStrategyEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	var reply strategyResponse
	resp := getJSON(t, srv, "/v1/strategy", &reply)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "random", reply.Strategy)
	assert.Contains(t, reply.Available, "reflex")

	put := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/strategy", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp = put(`{"strategy":"visual"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	json.NewDecoder(resp.Body).Decode(&reply)
	assert.Equal(t, "visual", reply.Strategy)

	assert.Equal(t, http.StatusBadRequest, put(`{"strategy":"psychic"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, put(`{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, put(`{broken`).StatusCode)
}

func TestLoggingEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	put := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/logging", strings.NewReader(body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := put(`{"component":"session","level":"debug"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reply loggingResponse
	resp = getJSON(t, srv, "/v1/logging", &reply)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, logger.LogLevel("debug"), reply.Components["session"])

	// clearing removes the override
	resp = put(`{"component":"session","level":""}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// decode into a fresh value: Decode merges into a non-nil map and would
	// keep the stale "session" entry from the earlier response
	reply = loggingResponse{}
	json.NewDecoder(resp.Body).Decode(&reply)
	assert.NotContains(t, reply.Components, "session")

	assert.Equal(t, http.StatusBadRequest, put(`{"component":"","level":"debug"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, put(`{"component":"session","level":"loud"}`).StatusCode)
}

func TestOpenAPIEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	var doc map[string]any
	resp := getJSON(t, srv, "/openapi.json", &doc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, p := range []string{"/v1/status", "/v1/sessions", "/v1/episodes", "/v1/episodes/{id}", "/v1/strategy", "/v1/logging"} {
		assert.Contains(t, paths, p)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/v1/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
