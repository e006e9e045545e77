// ABOUTME: Tests for the panel-side connector against a fake relay server.
// ABOUTME: Covers command handling, pong replies, and error folding.

package hostagent

import (
	"context"
	"errors"
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

	"github.com/framegate/framegate/internal/protocol"
)

// fakeRelay accepts one panel connection and exposes it to the test.
type fakeRelay struct {
	server *httptest.Server
	conns  chan *websocket.Conn
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	fr := &fakeRelay{conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}

	fr.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fr.conns <- conn
	}))
	t.Cleanup(fr.server.Close)
	return fr
}

func (fr *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(fr.server.URL, "http")
}

// waitConn returns the next accepted panel connection.
func (fr *fakeRelay) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-fr.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("panel never connected")
		return nil
	}
}

type stubCreator struct {
	outcome *ProjectOutcome
	err     error
}

func (s *stubCreator) CreateProject(context.Context, protocol.ProjectData) (*ProjectOutcome, error) {
	return s.outcome, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startConnector(t *testing.T, url string, creator ProjectCreator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	connector := NewConnector(url, creator, 50*time.Millisecond, testLogger())
	done := make(chan struct{})
	go func() {
		_ = connector.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("connector did not stop")
		}
	})
}

func roundTrip(t *testing.T, conn *websocket.Conn, cmd *protocol.Command) *protocol.Result {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var res protocol.Result
	require.NoError(t, conn.ReadJSON(&res))
	return &res
}

func TestConnectorAnswersCreateProject(t *testing.T) {
	relay := newFakeRelay(t)
	startConnector(t, relay.url(), &stubCreator{outcome: &ProjectOutcome{
		ProjectName:  "Demo_2024",
		ProjectPath:  "/tmp/Demo_2024.prproj",
		SequenceName: "Cut 1",
		PresetUsed:   "1080p25",
	}})
	conn := relay.waitConn(t)

	res := roundTrip(t, conn, &protocol.Command{
		RequestID: 7,
		Action:    protocol.ActionCreateProject,
		Data:      &protocol.ProjectData{ProjectName: "Demo"},
	})

	assert.Equal(t, int64(7), res.RequestID)
	assert.Equal(t, protocol.StatusSuccess, res.Status)
	assert.Equal(t, "Demo_2024", res.ProjectName)
	assert.Equal(t, "/tmp/Demo_2024.prproj", res.ProjectPath)
	assert.Equal(t, "Cut 1", res.SequenceName)
	assert.Equal(t, "1080p25", res.PresetUsed)
}

func TestConnectorFoldsCreatorErrorIntoReply(t *testing.T) {
	relay := newFakeRelay(t)
	startConnector(t, relay.url(), &stubCreator{err: errors.New("preset library missing")})
	conn := relay.waitConn(t)

	res := roundTrip(t, conn, &protocol.Command{
		RequestID: 3,
		Action:    protocol.ActionCreateProject,
	})

	assert.Equal(t, int64(3), res.RequestID)
	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Equal(t, "preset library missing", res.Error)
}

func TestConnectorAnswersPing(t *testing.T) {
	relay := newFakeRelay(t)
	startConnector(t, relay.url(), &stubCreator{outcome: &ProjectOutcome{}})
	conn := relay.waitConn(t)

	res := roundTrip(t, conn, &protocol.Command{RequestID: 11, Action: protocol.ActionPing})

	assert.Equal(t, int64(11), res.RequestID)
	assert.Equal(t, protocol.StatusPong, res.Status)
}

func TestConnectorIgnoresMalformedCommands(t *testing.T) {
	relay := newFakeRelay(t)
	startConnector(t, relay.url(), &stubCreator{outcome: &ProjectOutcome{}})
	conn := relay.waitConn(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage{{")))

	// The connection survives; the next valid command still gets a reply.
	res := roundTrip(t, conn, &protocol.Command{RequestID: 5, Action: protocol.ActionPing})
	assert.Equal(t, int64(5), res.RequestID)
}

func TestConnectorReconnects(t *testing.T) {
	relay := newFakeRelay(t)
	startConnector(t, relay.url(), &stubCreator{outcome: &ProjectOutcome{}})

	first := relay.waitConn(t)
	require.NoError(t, first.Close())

	// After the redial interval the panel comes back.
	second := relay.waitConn(t)
	res := roundTrip(t, second, &protocol.Command{RequestID: 9, Action: protocol.ActionPing})
	assert.Equal(t, int64(9), res.RequestID)
}
