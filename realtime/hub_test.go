package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// addTestClient puts a connection-less client into a room so tests can read its buffer.
func addTestClient(h *Hub, room string) *Client {
	c := &Client{hub: h, send: make(chan []byte, sendBufferSize), room: room}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_PublishGoesToTournamentRoomOnly(t *testing.T) {
	hub := NewHub(discardLogger())
	tournament := uuid.New()
	inRoom := addTestClient(hub, RoomForTournament(tournament))
	elsewhere := addTestClient(hub, RoomForTournament(uuid.New()))

	hub.Publish(context.Background(), tournament, "MATCH_UPDATED", map[string]string{"id": "m1"})

	msg := receive(t, inRoom)
	assert.Equal(t, "MATCH_UPDATED", msg.Type)
	assert.Equal(t, RoomForTournament(tournament), msg.RoomID)
	assert.Equal(t, map[string]interface{}{"id": "m1"}, msg.Payload)
	assert.Empty(t, elsewhere.send)
}

func TestHub_FullBufferDropsMessage(t *testing.T) {
	hub := NewHub(discardLogger())
	room := RoomForTournament(uuid.New())
	c := addTestClient(hub, room)
	for i := 0; i < sendBufferSize; i++ {
		c.send <- []byte("{}")
	}
	assert.Equal(t, 0, hub.BroadcastToRoom(room, []byte(`{"type":"X"}`)))
}

func TestHub_WebsocketSubscriber(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	tournament := uuid.New()
	room := RoomForTournament(tournament)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, room)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), tournament, "ROUND_UPDATED", map[string]int{"number": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ROUND_UPDATED", msg.Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount(room) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_AttachAfterShutdown(t *testing.T) {
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	upgrader := websocket.Upgrader{}
	attached := make(chan bool, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		attached <- hub.Attach(conn, "room")
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.False(t, <-attached)
}
