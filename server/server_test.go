package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan987/nengo-viz/component"
	"github.com/cchan987/nengo-viz/metric"
	"github.com/cchan987/nengo-viz/model"
	"github.com/cchan987/nengo-viz/viz"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	m := model.New("test")
	require.NoError(t, m.AddNode(&model.Node{
		Name:       "stim",
		Dimensions: 1,
		Output:     func(float64) []float64 { return []float64{0} },
	}))

	org, err := viz.New(m)
	require.NoError(t, err)
	require.NoError(t, org.AddSlider("stim", -1, 1))

	opts = append([]Option{WithAddr("127.0.0.1:0")}, opts...)
	srv, err := New(org, opts...)
	require.NoError(t, err)

	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, srv.Stop(5*time.Second))
	})
	return srv
}

// pageUIDs fetches the index page and extracts the component uids
// embedded in the payload
func pageUIDs(t *testing.T, srv *Server) []string {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var uids []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var decoded struct {
			UID string `json:"uid"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
		uids = append(uids, decoded.UID)
	}
	return uids
}

func TestServer_StartStop(t *testing.T) {
	srv := newTestServer(t)
	assert.NotEmpty(t, srv.Addr())

	// Double start is rejected
	err := srv.Start(context.Background())
	assert.Error(t, err)
}

func TestServer_IndexStartsSession(t *testing.T) {
	srv := newTestServer(t)

	uids := pageUIDs(t, srv)
	require.Len(t, uids, 2, "control plus slider")

	// Each page load gets its own session with fresh ids
	more := pageUIDs(t, srv)
	require.Len(t, more, 2)
	assert.NotEqual(t, uids, more)
}

func TestServer_ComponentHandoff(t *testing.T) {
	srv := newTestServer(t)
	uids := pageUIDs(t, srv)

	url := fmt.Sprintf("ws://%s/viz_component?uid=%s", srv.Addr(), uids[0])
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First message is the component payload
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, uids[0], decoded["uid"])
	assert.Equal(t, "simcontrol", decoded["type"])
}

func TestServer_ClaimIsOneShot(t *testing.T) {
	srv := newTestServer(t)
	uids := pageUIDs(t, srv)

	url := fmt.Sprintf("ws://%s/viz_component?uid=%s", srv.Addr(), uids[1])
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// A second connection for the same uid is rejected with 404
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_UnknownUID(t *testing.T) {
	srv := newTestServer(t)

	url := fmt.Sprintf("ws://%s/viz_component?uid=no-such-id", srv.Addr())
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MissingUID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/viz_component", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SliderMessages(t *testing.T) {
	srv := newTestServer(t)
	uids := pageUIDs(t, srv)

	// uids[1] is the slider (template order: control, slider)
	url := fmt.Sprintf("ws://%s/viz_component?uid=%s", srv.Addr(), uids[1])
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	srv.mu.Lock()
	sess := srv.sessions[len(srv.sessions)-1]
	srv.mu.Unlock()
	slider := sess.Components()[1].(*component.Slider)

	require.NoError(t, conn.WriteJSON(map[string]any{"value": 0.5}))
	require.Eventually(t, func() bool {
		return slider.Value() == 0.5
	}, 5*time.Second, time.Millisecond)

	// Malformed messages are ignored, the connection stays up
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"value": -0.25}))
	require.Eventually(t, func() bool {
		return slider.Value() == -0.25
	}, 5*time.Second, time.Millisecond)
}

func TestServer_MetricsRoute(t *testing.T) {
	metrics := metric.NewRegistry()
	srv := newTestServer(t, WithMetrics(metrics))

	pageUIDs(t, srv)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nengoviz_session_created_total")
}

func TestServer_ControlDisconnectFinishesSession(t *testing.T) {
	srv := newTestServer(t)
	uids := pageUIDs(t, srv)

	srv.mu.Lock()
	sess := srv.sessions[0]
	srv.mu.Unlock()

	// uids[0] is the control component; closing its socket ends the
	// session.
	url := fmt.Sprintf("ws://%s/viz_component?uid=%s", srv.Addr(), uids[0])
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	_, _, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case <-sess.Done():
		assert.Equal(t, viz.StateFinished, sess.State())
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish after control disconnect")
	}
}

func TestServer_HealthRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Component   string `json:"component"`
		Status      string `json:"status"`
		SubStatuses []struct {
			Component string `json:"component"`
			Status    string `json:"status"`
		} `json:"sub_statuses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "nengoviz", status.Component)
	assert.Equal(t, "healthy", status.Status)
	require.NotEmpty(t, status.SubStatuses)
	assert.Equal(t, "server", status.SubStatuses[0].Component)
}

func TestServer_HealthIncludesSessions(t *testing.T) {
	srv := newTestServer(t)

	// Starting a session makes it show up in the aggregate.
	pageUIDs(t, srv)

	srv.mu.Lock()
	sess := srv.sessions[0]
	srv.mu.Unlock()
	sess.Finish()
	<-sess.Done()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", srv.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Status      string `json:"status"`
		SubStatuses []struct {
			Component string `json:"component"`
			Message   string `json:"message"`
		} `json:"sub_statuses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Len(t, status.SubStatuses, 2)
	assert.Equal(t, "server", status.SubStatuses[0].Component)
	assert.Equal(t, "session-0", status.SubStatuses[1].Component)
	assert.Equal(t, "finished", status.SubStatuses[1].Message)
}

func TestServer_StopFinishesSessions(t *testing.T) {
	m := model.New("test")
	require.NoError(t, m.AddNode(&model.Node{
		Name:   "stim",
		Output: func(float64) []float64 { return []float64{0} },
	}))
	org, err := viz.New(m)
	require.NoError(t, err)

	srv, err := New(org, WithAddr("127.0.0.1:0"))
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))

	resp, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()

	srv.mu.Lock()
	require.Len(t, srv.sessions, 1)
	sess := srv.sessions[0]
	srv.mu.Unlock()

	require.NoError(t, srv.Stop(5*time.Second))

	select {
	case <-sess.Done():
		assert.Equal(t, viz.StateFinished, sess.State())
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish on server stop")
	}
}
