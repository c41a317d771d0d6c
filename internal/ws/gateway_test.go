package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chenghao-Wen/NoteTree/internal/auth"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

func newTestGateway(t *testing.T) (*Hub, *httptest.Server, *auth.TokenService) {
	t.Helper()

	hub := NewHub(zerolog.Nop())
	tokens := auth.NewTokenService("test-secret", time.Hour)
	srv := httptest.NewServer(NewGateway(hub, tokens, zerolog.Nop()))
	t.Cleanup(srv.Close)

	return hub, srv, tokens
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, rawURL string, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(rawURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForGroup(t *testing.T, hub *Hub, userID string, size int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.GroupSize(userID) == size
	}, time.Second, 5*time.Millisecond)
}

func TestConnectWithQueryToken(t *testing.T) {
	hub, srv, tokens := newTestGateway(t)

	token, err := tokens.Issue("user-123", "u@example.com")
	require.NoError(t, err)

	dial(t, wsURL(srv)+"?token="+token, nil)
	waitForGroup(t, hub, "user-123", 1)
}

func TestConnectWithAuthorizationHeader(t *testing.T) {
	hub, srv, tokens := newTestGateway(t)

	token, err := tokens.Issue("user-456", "")
	require.NoError(t, err)

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	dial(t, wsURL(srv), header)
	waitForGroup(t, hub, "user-456", 1)
}

func TestConnectWithoutTokenRejected(t *testing.T) {
	hub, srv, _ := newTestGateway(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, 0, hub.GroupSize(""), "rejected connections never join a group")
}

func TestConnectWithInvalidTokenRejected(t *testing.T) {
	hub, srv, _ := newTestGateway(t)

	other := auth.NewTokenService("different-secret", time.Hour)
	token, err := other.Issue("user-123", "")
	require.NoError(t, err)

	_, resp, dialErr := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	require.Error(t, dialErr)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.GroupSize("user-123"))
}

func TestDispatchReachesOnlyTargetUser(t *testing.T) {
	hub, srv, tokens := newTestGateway(t)

	tokenA, err := tokens.Issue("user-123", "")
	require.NoError(t, err)
	tokenB, err := tokens.Issue("user-999", "")
	require.NoError(t, err)

	connA := dial(t, wsURL(srv)+"?token="+tokenA, nil)
	connB := dial(t, wsURL(srv)+"?token="+tokenB, nil)
	waitForGroup(t, hub, "user-123", 1)
	waitForGroup(t, hub, "user-999", 1)

	hub.Dispatch("user-123", models.EventNoteStatusChanged, json.RawMessage(`{"noteId":"1","status":"READY"}`))

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(time.Second)))
	_, frame, err := connA.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &got))
	assert.Equal(t, "note.status_changed", got.Event)
	assert.JSONEq(t, `{"noteId":"1","status":"READY"}`, string(got.Data))

	// The other user's connection sees nothing
	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "expected read timeout, not a delivered frame")
}

func TestDispatchToDisconnectedUserIsNoOp(t *testing.T) {
	hub, _, _ := newTestGateway(t)

	// Must not panic or block
	hub.Dispatch("nobody-home", models.EventSearchResult, json.RawMessage(`{}`))
	assert.Equal(t, 0, hub.GroupSize("nobody-home"))
}

func TestDisconnectLeavesGroup(t *testing.T) {
	hub, srv, tokens := newTestGateway(t)

	token, err := tokens.Issue("user-123", "")
	require.NoError(t, err)

	conn := dial(t, wsURL(srv)+"?token="+token, nil)
	waitForGroup(t, hub, "user-123", 1)

	conn.Close()
	waitForGroup(t, hub, "user-123", 0)
}

func TestMultipleConnectionsSameUserAllReceive(t *testing.T) {
	hub, srv, tokens := newTestGateway(t)

	token, err := tokens.Issue("user-123", "")
	require.NoError(t, err)

	conn1 := dial(t, wsURL(srv)+"?token="+token, nil)
	conn2 := dial(t, wsURL(srv)+"?token="+token, nil)
	waitForGroup(t, hub, "user-123", 2)

	hub.Dispatch("user-123", models.EventSearchResult, json.RawMessage(`{"jobId":"j1","summary":"s","relatedNotes":[]}`))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(frame), `"search.result"`)
	}
}
