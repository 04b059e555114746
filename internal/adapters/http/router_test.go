package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/channel/memory"
	"github.com/dkeye/Presence/internal/collab"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func setup(t *testing.T) (*httptest.Server, *app.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := memory.New()
	t.Cleanup(bus.Close)
	orch := &app.Orchestrator{
		Registry:  app.NewRegistry(),
		Rooms:     app.NewRoomManager(),
		Policy:    app.SimplePolicy{MaxDrops: 16},
		Transport: bus,
		Refresh:   10 * time.Millisecond,
		Options:   []collab.Option{collab.WithHeartbeatInterval(50 * time.Millisecond)},
	}
	cfg := &config.Config{
		Mode:       "test",
		Secret:     "test-secret",
		RateLimit:  100,
		RateBurst:  100,
		SendBuffer: 64,
		ReadLimit:  32768,
		PingPeriod: time.Second,
	}
	srv := httptest.NewServer(SetupRouter(ctx, cfg, orch))
	t.Cleanup(srv.Close)
	return srv, orch
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 2 * time.Second}
}

func do(t *testing.T, c *http.Client, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, sb.String()
}

func TestRouter_Health(t *testing.T) {
	srv, _ := setup(t)
	code, body := do(t, newClient(t), http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, body)
}

func TestRouter_ClientTokenCookie(t *testing.T) {
	srv, _ := setup(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == clientTokenCookie {
			token = ck.Value
		}
	}
	assert.Len(t, token, 36)
}

func TestRouter_KV(t *testing.T) {
	srv, _ := setup(t)
	c := newClient(t)
	url := srv.URL + "/api/kv/layout"

	code, _ := do(t, c, http.MethodGet, url, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, c, http.MethodPut, url, `{"panels":["activity","status"]}`)
	assert.Equal(t, http.StatusNoContent, code)

	code, body := do(t, c, http.MethodGet, url, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"panels":["activity","status"]}`, body)

	// Another browser has its own store.
	code, _ = do(t, newClient(t), http.MethodGet, url, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, c, http.MethodDelete, url, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, c, http.MethodGet, url, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_KVRejects(t *testing.T) {
	srv, _ := setup(t)
	c := newClient(t)

	code, _ := do(t, c, http.MethodPut, srv.URL+"/api/kv/layout", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, c, http.MethodPut, srv.URL+"/api/kv/"+strings.Repeat("k", maxKeyLen+1), `1`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, c, http.MethodPut, srv.URL+"/api/kv/big", `"`+strings.Repeat("x", maxValueSize)+`"`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestRouter_Rooms(t *testing.T) {
	srv, orch := setup(t)
	c := newClient(t)

	code, body := do(t, c, http.MethodGet, srv.URL+"/api/rooms", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)

	code, _ = do(t, c, http.MethodGet, srv.URL+"/api/rooms/lobby/peers", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, c, http.MethodDelete, srv.URL+"/api/rooms/lobby", "")
	assert.Equal(t, http.StatusNotFound, code)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws/signal?room=lobby", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var welcome struct {
		Type     string          `json:"type"`
		ClientID domain.ClientID `json:"clientId"`
	}
	require.NoError(t, ws.ReadJSON(&welcome))
	assert.Equal(t, "welcome", welcome.Type)

	code, body = do(t, c, http.MethodGet, srv.URL+"/api/rooms", "")
	assert.Equal(t, http.StatusOK, code)
	var rooms []core.RoomInfo
	require.NoError(t, json.Unmarshal([]byte(body), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, core.RoomInfo{Name: "lobby", Sessions: 1, Peers: 1, Online: true}, rooms[0])

	code, body = do(t, c, http.MethodGet, srv.URL+"/api/rooms/lobby/peers", "")
	assert.Equal(t, http.StatusOK, code)
	var peers []domain.PeerInfo
	require.NoError(t, json.Unmarshal([]byte(body), &peers))
	assert.Equal(t, []domain.PeerInfo{{ID: welcome.ClientID, Self: true}}, peers)

	code, body = do(t, c, http.MethodDelete, srv.URL+"/api/rooms/lobby", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"kicked":1}`, body)
	require.Eventually(t, func() bool { return orch.Registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
