// ABOUTME: Tests for the WebSocket relay over real connections.
// ABOUTME: Covers reply dispatch, malformed frames, and broadcast fan-out.

package relay

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegate/framegate/internal/agent"
	"github.com/framegate/framegate/internal/correlate"
	"github.com/framegate/framegate/internal/protocol"
)

type testRelay struct {
	relay    *Relay
	registry *agent.Registry
	table    *correlate.Table
	server   *httptest.Server
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := agent.NewRegistry(logger)
	table := correlate.NewTable()
	relay := New(registry, table, logger)

	server := httptest.NewServer(http.HandlerFunc(relay.HandleWS))
	t.Cleanup(server.Close)

	return &testRelay{relay: relay, registry: registry, table: table, server: server}
}

func (tr *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(tr.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (tr *testRelay) waitForPanels(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tr.registry.Count() == n
	}, time.Second, 5*time.Millisecond)
}

func TestReplyResolvesWaiter(t *testing.T) {
	tr := newTestRelay(t)
	panel := tr.dial(t)
	tr.waitForPanels(t, 1)

	id := tr.table.NextID()
	waiter := tr.table.Create(id)

	require.NoError(t, panel.WriteJSON(&protocol.Result{
		RequestID:   id,
		Status:      protocol.StatusSuccess,
		ProjectName: "Demo",
	}))

	select {
	case out := <-waiter.Done():
		require.NoError(t, out.Err)
		assert.Equal(t, "Demo", out.Result.ProjectName)
	case <-time.After(time.Second):
		t.Fatal("reply never dispatched")
	}
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	tr := newTestRelay(t)
	panel := tr.dial(t)
	tr.waitForPanels(t, 1)

	// Garbage must not break the read loop or the table.
	require.NoError(t, panel.WriteMessage(websocket.TextMessage, []byte("not json{{")))
	require.NoError(t, panel.WriteMessage(websocket.TextMessage, []byte(`{"status":"success"}`))) // no requestId

	id := tr.table.NextID()
	waiter := tr.table.Create(id)
	require.NoError(t, panel.WriteJSON(&protocol.Result{RequestID: id, Status: protocol.StatusSuccess}))

	select {
	case out := <-waiter.Done():
		require.NoError(t, out.Err)
	case <-time.After(time.Second):
		t.Fatal("connection no longer dispatching after malformed frames")
	}
}

func TestUnmatchedReplyHasNoEffect(t *testing.T) {
	tr := newTestRelay(t)
	panel := tr.dial(t)
	tr.waitForPanels(t, 1)

	pendingID := tr.table.NextID()
	waiter := tr.table.Create(pendingID)

	// A forged id is silently dropped and leaves the pending entry intact.
	require.NoError(t, panel.WriteJSON(&protocol.Result{RequestID: 9999, Status: protocol.StatusSuccess}))

	require.Never(t, func() bool {
		return tr.table.Len() != 1
	}, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, panel.WriteJSON(&protocol.Result{RequestID: pendingID, Status: protocol.StatusSuccess}))
	select {
	case out := <-waiter.Done():
		require.NoError(t, out.Err)
	case <-time.After(time.Second):
		t.Fatal("pending entry was corrupted by the forged reply")
	}
}

func TestBroadcastReachesAllPanels(t *testing.T) {
	tr := newTestRelay(t)
	first := tr.dial(t)
	second := tr.dial(t)
	tr.waitForPanels(t, 2)

	cmd := &protocol.Command{
		RequestID: tr.table.NextID(),
		Action:    protocol.ActionCreateProject,
		Data:      &protocol.ProjectData{ProjectName: "Broadcast Test"},
	}
	attempted, err := tr.relay.Broadcast(cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, attempted)

	for _, panel := range []*websocket.Conn{first, second} {
		require.NoError(t, panel.SetReadDeadline(time.Now().Add(time.Second)))
		var got protocol.Command
		require.NoError(t, panel.ReadJSON(&got))
		assert.Equal(t, cmd.RequestID, got.RequestID)
		assert.Equal(t, protocol.ActionCreateProject, got.Action)
		assert.Equal(t, "Broadcast Test", got.Data.ProjectName)
	}
}

func TestDisconnectUnregistersPanel(t *testing.T) {
	tr := newTestRelay(t)
	panel := tr.dial(t)
	tr.waitForPanels(t, 1)

	require.NoError(t, panel.Close())
	tr.waitForPanels(t, 0)
}

func TestPingCarriesFreshID(t *testing.T) {
	tr := newTestRelay(t)
	panel := tr.dial(t)
	tr.waitForPanels(t, 1)

	attempted, err := tr.relay.Ping()
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	require.NoError(t, panel.SetReadDeadline(time.Now().Add(time.Second)))
	var got protocol.Command
	require.NoError(t, panel.ReadJSON(&got))
	assert.Equal(t, protocol.ActionPing, got.Action)
	assert.NotZero(t, got.RequestID)

	// The pong comes back as an unmatched reply and is dropped.
	require.NoError(t, panel.WriteJSON(&protocol.Result{RequestID: got.RequestID, Status: protocol.StatusPong}))
	assert.Equal(t, 0, tr.table.Len())
}
