package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunadb/ateles/internal/infrastructure/config"
	"github.com/fortunadb/ateles/internal/wire"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

// doExecute posts a request body through the router with holder standing
// in for the connection-bound session, the way ConnContext installs it.
func doExecute(t *testing.T, s *Server, holder *sessionHolder, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/Ateles/Execute", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), connSessionKey{}, holder))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *wire.JsResponse {
	t.Helper()
	resp, err := wire.UnmarshalResponse(w.Body.Bytes())
	require.NoError(t, err)
	return resp
}

func TestRootGreeting(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, greeting, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/Health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestUnknownRouteIs404(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteEval(t *testing.T) {
	s := newTestServer(t)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	body := (&wire.JsRequest{Action: 1, Script: "1+1"}).Marshal()
	w := doExecute(t, s, holder, body)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, "2", resp.Result)
}

func TestExecuteMapDocWithoutInit(t *testing.T) {
	s := newTestServer(t)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	body := (&wire.JsRequest{
		Action: 2,
		Script: "mapDoc",
		Args:   []string{`{"_id":"foo","value":1}`},
	}).Marshal()
	w := doExecute(t, s, holder, body)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Result)
}

func TestExecuteSessionStatePersistsAcrossRequests(t *testing.T) {
	s := newTestServer(t)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	w := doExecute(t, s, holder, (&wire.JsRequest{
		Action: 1,
		Script: "function greet(n) { return 'hi ' + n; }",
	}).Marshal())
	require.Equal(t, wire.StatusOK, decodeResponse(t, w).Status)

	w = doExecute(t, s, holder, (&wire.JsRequest{
		Action: 2,
		Script: "greet",
		Args:   []string{"fortuna"},
	}).Marshal())
	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusOK, resp.Status)
	assert.Equal(t, `"hi fortuna"`, resp.Result)
}

func TestExecuteDecodeError(t *testing.T) {
	s := newTestServer(t)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	w := doExecute(t, s, holder, []byte{0x12, 0xff})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Result, "invalid request")
}

func TestExecuteTimeout(t *testing.T) {
	s := newTestServer(t)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	body := (&wire.JsRequest{Action: 1, Script: "for(;;){}", Timeout: 100}).Marshal()
	w := doExecute(t, s, holder, body)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Result, "timeout")

	// The session is discarded; later requests on the same connection
	// report it closed rather than hanging.
	w = doExecute(t, s, holder, (&wire.JsRequest{Action: 1, Script: "1"}).Marshal())
	resp = decodeResponse(t, w)
	assert.Equal(t, wire.StatusError, resp.Status)
}

func TestTimeoutFor(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, "5s", s.timeoutFor(0).String())
	assert.Equal(t, "250ms", s.timeoutFor(250).String())
	assert.Equal(t, "1m0s", s.timeoutFor(600000).String(), "clamped to the configured max")
	assert.Equal(t, "5s", s.timeoutFor(-7).String())
}

func TestExecuteBodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Server.MaxRequestBytes = 64
	s, err := New(cfg)
	require.NoError(t, err)
	holder := s.newHolder()
	t.Cleanup(holder.close)

	big := (&wire.JsRequest{Action: 1, Script: strings.Repeat("1+", 200) + "1"}).Marshal()
	require.Greater(t, len(big), 64)

	w := doExecute(t, s, holder, big)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Result, "invalid request")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
