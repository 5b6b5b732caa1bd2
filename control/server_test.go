package control_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/audioplayer/control"
	"github.com/tailored-agentic-units/audioplayer/observability"
	"github.com/tailored-agentic-units/audioplayer/player"
)

type fakeController struct {
	url     string
	rate    float64
	plays   int
	playErr error
}

func (f *fakeController) PlayURL(_ context.Context, url string) error {
	if f.playErr != nil {
		return f.playErr
	}
	if url != "" {
		f.url = url
	}
	f.plays++
	f.rate = 1
	return nil
}

func (f *fakeController) Stop() { f.rate = 0 }

func (f *fakeController) TogglePlayback() {
	if f.rate > 0 {
		f.rate = 0
	} else {
		f.rate = 1
	}
}

func (f *fakeController) Status() player.Snapshot {
	state := player.StatePaused
	if f.rate > 0 {
		state = player.StatePlaying
	}
	return player.Snapshot{State: state, URL: f.url, Rate: f.rate}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, player.Snapshot) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var snap player.Snapshot
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	}
	return rr, snap
}

func TestPlay(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		playErr  error
		wantCode int
		wantURL  string
	}{
		{name: "empty body", wantCode: http.StatusAccepted},
		{name: "with url", body: `{"url":"http://example.test/a.wav"}`, wantCode: http.StatusAccepted, wantURL: "http://example.test/a.wav"},
		{name: "bad body", body: `{`, wantCode: http.StatusBadRequest},
		{name: "closed", playErr: player.ErrClosed, wantCode: http.StatusConflict},
		{name: "no url", playErr: player.ErrNoURL, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeController{playErr: tt.playErr}
			h := control.NewHandler(c, prometheus.NewRegistry())

			rr, snap := do(t, h, http.MethodPost, "/play", tt.body)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusAccepted {
				assert.Equal(t, 1, c.plays)
				assert.Equal(t, player.StatePlaying, snap.State)
				assert.Equal(t, tt.wantURL, snap.URL)
			}
		})
	}
}

func TestPlay_FailureKeepsURL(t *testing.T) {
	c := &fakeController{url: "http://example.test/a.wav", playErr: player.ErrClosed}
	h := control.NewHandler(c, prometheus.NewRegistry())

	rr, _ := do(t, h, http.MethodPost, "/play", `{"url":"http://example.test/b.wav"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "http://example.test/a.wav", c.url)
}

func TestToggleAndStop(t *testing.T) {
	c := &fakeController{rate: 1}
	h := control.NewHandler(c, prometheus.NewRegistry())

	rr, snap := do(t, h, http.MethodPost, "/toggle", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0.0, snap.Rate)

	_, snap = do(t, h, http.MethodPost, "/toggle", "")
	assert.Equal(t, 1.0, snap.Rate)

	rr, snap = do(t, h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, player.StatePaused, snap.State)
}

func TestStatus(t *testing.T) {
	c := &fakeController{url: "http://example.test/a.wav"}
	h := control.NewHandler(c, prometheus.NewRegistry())

	rr, snap := do(t, h, http.MethodGet, "/status", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://example.test/a.wav", snap.URL)
}

func TestMethodNotAllowed(t *testing.T) {
	h := control.NewHandler(&fakeController{}, prometheus.NewRegistry())

	rr, _ := do(t, h, http.MethodGet, "/play", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewMetricsObserver("audioplayer", reg)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.NewEvent(player.EventPlay, observability.LevelInfo, "test", nil))

	h := control.NewHandler(&fakeController{}, reg)
	rr, _ := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "audioplayer_events_total")
	assert.Contains(t, rr.Body.String(), `type="player.play"`)
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestStatus_EncodeFailureLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := control.NewHandler(&fakeController{}, prometheus.NewRegistry(), control.WithLogger(logger))

	w := failingWriter{httptest.NewRecorder()}
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Contains(t, logs.String(), "status encode failed")
	assert.Contains(t, logs.String(), "connection reset")
}
