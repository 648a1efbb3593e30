package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/engine/enginetest"
	"github.com/kikiluvv/reactionsync/internal/media"
	"github.com/kikiluvv/reactionsync/internal/session"
	"github.com/kikiluvv/reactionsync/internal/topology"
)

type fixture struct {
	srv  *httptest.Server
	sess *session.Session
	dir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	loop := session.NewLoop()
	go loop.Run(ctx)

	rs := media.New(ctx, zerolog.Nop(), "reaction", enginetest.Factory(enginetest.New(600)), engine.Options{})
	ss := media.New(ctx, zerolog.Nop(), "source", enginetest.Factory(enginetest.New(900)), engine.Options{})
	topo, err := topology.New(zerolog.Nop(), topology.VirtualSlots(), topology.Chrome{}, rs, ss)
	require.NoError(t, err)

	sess := session.New(ctx, zerolog.Nop(), session.ConfigFrom(config.Default()), loop, rs, ss, topo, nil)
	hub := NewHub(zerolog.Nop())
	sess.Subscribe(hub.Publish)
	go hub.Run(ctx)

	srv := httptest.NewServer(NewServer(zerolog.Nop(), sess, hub))
	t.Cleanup(func() {
		srv.Close()
		_ = sess.Do(context.Background(), func(s *session.Session) error {
			s.Close()
			return nil
		})
		cancel()
	})
	return &fixture{srv: srv, sess: sess, dir: t.TempDir()}
}

func (f *fixture) video(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, []byte("not really a video"), 0o644))
	return p
}

func (f *fixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	} else {
		buf.WriteString("{}")
	}
	resp, err := http.Post(f.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (f *fixture) state(t *testing.T) session.Snapshot {
	t.Helper()
	resp, err := http.Get(f.srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestStateBeforeLoad(t *testing.T) {
	f := newFixture(t)

	snap := f.state(t)
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, "reaction", snap.Main)
	assert.False(t, snap.OverlayMode)
	assert.Equal(t, "empty", snap.Reaction.State)
}

func TestLoadAndPlay(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, "/api/load", loadRequest{Role: "reaction", Path: f.video(t, "reaction.mp4")})
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "paused", out["state"])

	resp, out = f.post(t, "/api/play-pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["playing"])

	resp, out = f.post(t, "/api/play", playRequest{Playing: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["playing"])
}

func TestLoadMissingFile(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, "/api/load", loadRequest{Role: "source", Path: filepath.Join(f.dir, "nope.mp4")})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, out["error"], "nope.mp4")
}

func TestLoadRejectsNonVideo(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/api/load", loadRequest{Role: "source", Path: f.video(t, "notes.txt")})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestLoadUnknownRole(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/api/load", loadRequest{Role: "narrator", Path: f.video(t, "a.mp4")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOffsetAcceptsSecondsAndTimestamp(t *testing.T) {
	f := newFixture(t)

	secs := 12.5
	resp, out := f.post(t, "/api/offset", timeRequest{Seconds: &secs})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 12.5, out["offset"], 1e-9)

	resp, out = f.post(t, "/api/offset", timeRequest{Timestamp: "-1:30"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, -90.0, out["offset"], 1e-9)

	resp, _ = f.post(t, "/api/offset", timeRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOffsetIsClamped(t *testing.T) {
	f := newFixture(t)

	secs := 99999.0
	_, out := f.post(t, "/api/offset", timeRequest{Seconds: &secs})
	assert.InDelta(t, config.Default().Sync.MaxOffset, out["offset"], 1e-9)
}

func TestSeek(t *testing.T) {
	f := newFixture(t)
	f.post(t, "/api/load", loadRequest{Role: "reaction", Path: f.video(t, "reaction.mp4")})

	ts := "1:40"
	resp, out := f.post(t, "/api/seek", timeRequest{Timestamp: ts})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 100.0, out["position"], 1e-9)
	assert.Equal(t, false, out["seeking"])

	neg := -3.0
	resp, _ = f.post(t, "/api/seek", timeRequest{Seconds: &neg})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSwapAndOverlay(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, "/api/swap", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "source", out["main"])

	resp, out = f.post(t, "/api/overlay", overlayRequest{Enabled: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["overlay_mode"])

	resp, out = f.post(t, "/api/swap", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reaction", out["main"])
	assert.Equal(t, true, out["overlay_mode"])
}

func TestFullscreenAndTheater(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, "/api/fullscreen/reaction", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["theater"])

	_, out = f.post(t, "/api/theater/exit", nil)
	assert.Equal(t, false, out["theater"])

	resp, _ = f.post(t, "/api/fullscreen/nobody", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVolume(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/api/volume/source", volumeRequest{Volume: 140})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, f.state(t).Source.Volume)

	f.post(t, "/api/volume/2", volumeRequest{Volume: 35})
	assert.Equal(t, 35, f.state(t).Source.Volume)
}

func TestInvalidBody(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/api/overlay", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsNonJSONBody(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/api/offset", "text/plain", strings.NewReader(`{"seconds": 42}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Zero(t, f.state(t).Offset)
}

func TestRejectsCrossOriginRequests(t *testing.T) {
	f := newFixture(t)

	send := func(origin string) int {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/offset", strings.NewReader(`{"seconds": 42}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, send("https://evil.example"))
	assert.Zero(t, f.state(t).Offset)

	assert.Equal(t, http.StatusOK, send(f.srv.URL))
	assert.InDelta(t, 42, f.state(t).Offset, 1e-9)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err = websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {f.srv.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://127.0.0.1:9000", true},
		{"other host", "https://evil.example", false},
		{"other port", "http://127.0.0.1:9001", false},
		{"garbage", "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:9000/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, sameOrigin(r))
		})
	}
}

func TestWebsocketReceivesSnapshots(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration happens asynchronously; keep poking until a snapshot arrives
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	done := make(chan session.Snapshot, 1)
	go func() {
		var snap session.Snapshot
		if err := conn.ReadJSON(&snap); err == nil {
			done <- snap
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		f.post(t, "/api/overlay", overlayRequest{Enabled: true})
		select {
		case snap := <-done:
			assert.True(t, snap.OverlayMode)
			return
		case <-deadline:
			t.Fatal("no snapshot received")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(topology.ErrTopologyConfusion))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(session.ErrLoadFailed))
	assert.Equal(t, http.StatusBadRequest, statusFor(session.ErrUnknownRole))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
