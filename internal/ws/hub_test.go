package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{hub: hub, send: make(chan Message, buffer), done: make(chan struct{})}
}

func waitForCount(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count(room) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d member(s)", room, want)
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHubRoutesToJoinedRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	ana := newTestClient(hub, 4)
	bo := newTestClient(hub, 4)
	hub.register <- ana
	hub.register <- bo
	hub.joins <- joinRequest{client: ana, room: "31"}
	hub.joins <- joinRequest{client: bo, room: "32"}
	waitForCount(t, hub, "31", 1)
	waitForCount(t, hub, "32", 1)

	hub.Publish("31", Message{Type: MessageTypeNotification, Data: "leak"})

	msg := recvMessage(t, ana)
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.Equal(t, "leak", msg.Data)

	select {
	case msg := <-bo.send:
		t.Fatalf("message leaked into another room: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRejoinMovesRooms(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	c := newTestClient(hub, 4)
	hub.register <- c
	hub.joins <- joinRequest{client: c, room: "31"}
	waitForCount(t, hub, "31", 1)

	hub.joins <- joinRequest{client: c, room: "32"}
	waitForCount(t, hub, "32", 1)
	assert.Equal(t, 0, hub.Count("31"))
}

func TestHubPublishToEmptyRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	// no members, nothing to deliver, nothing blocks
	hub.Publish("nobody", Message{Type: MessageTypeNotification})
	assert.Equal(t, 0, hub.Count("nobody"))
}

func TestHubSlowClientDoesNotStallDelivery(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	slow := newTestClient(hub, 1)
	fast := newTestClient(hub, 8)
	hub.register <- slow
	hub.register <- fast
	hub.joins <- joinRequest{client: slow, room: "31"}
	hub.joins <- joinRequest{client: fast, room: "31"}
	waitForCount(t, hub, "31", 2)

	// the slow client's buffer fills after one message; later deliveries
	// drop for it but keep flowing to the fast client
	for i := 0; i < 5; i++ {
		hub.Publish("31", Message{Type: MessageTypeNotification, Data: i})
	}
	for i := 0; i < 5; i++ {
		recvMessage(t, fast)
	}
	require.LessOrEqual(t, len(slow.send), 1)
}

func TestHubUnregisterLeavesRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	c := newTestClient(hub, 1)
	hub.register <- c
	hub.joins <- joinRequest{client: c, room: "31"}
	waitForCount(t, hub, "31", 1)

	hub.unregister <- c
	waitForCount(t, hub, "31", 0)

	// send channel is closed so the write pump can exit
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubShutdownStopsClients(t *testing.T) {
	hub, cancel := startHub(t)

	c := newTestClient(hub, 1)
	hub.register <- c
	hub.joins <- joinRequest{client: c, room: "31"}
	waitForCount(t, hub, "31", 1)

	cancel()

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("client not stopped on shutdown")
	}

	// the read pump may still be mid-loop when the hub shuts down; its
	// pong reply goes through send, which therefore must stay open
	select {
	case c.send <- Message{Type: MessageTypePong}:
	default:
	}
}

func TestHubShutdownUnblocksLateLifecycleSends(t *testing.T) {
	hub, cancel := startHub(t)

	c := newTestClient(hub, 1)
	hub.register <- c
	cancel()
	<-c.done

	// a read pump exiting after shutdown must not hang on its
	// unregister handoff
	finished := make(chan struct{})
	go func() {
		select {
		case hub.unregister <- c:
		case <-hub.stopped:
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked after shutdown")
	}
}
