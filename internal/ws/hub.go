// Package ws implements the live-connection layer.  Plumber dashboards
// connect over a websocket, join a delivery room keyed by their plumber id,
// and receive notification events pushed by the dispatcher.  Delivery is
// fire-and-forget: the persisted notification row is the durable record and
// offline plumbers catch up through the read endpoint.
package ws

import (
	"context"
	"log"
	"sync"
)

// Message types exchanged with clients.
const (
	MessageTypeJoin         = "join"
	MessageTypeNotification = "notification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is the JSON envelope for every websocket frame.
type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

type joinRequest struct {
	client *Client
	room   string
}

type publishRequest struct {
	room string
	msg  Message
}

// Hub maintains the set of active clients and routes messages to rooms.
// All membership mutation happens on the Run goroutine; the mutex only
// guards the reads done by Publish and Count.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	roomOf  map[*Client]string
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	joins      chan joinRequest
	publishes  chan publishRequest

	// closed when Run returns; lifecycle sends select on it so no pump
	// ever blocks against a hub that stopped listening
	stopped chan struct{}
}

// NewHub creates an empty hub.  Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		roomOf:     make(map[*Client]string),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan joinRequest, 64),
		publishes:  make(chan publishRequest, 256),
		stopped:    make(chan struct{}),
	}
}

// Run processes lifecycle and publish events until the context is
// cancelled, then stops every client.  Stopping closes the client's done
// channel and its connection; both pumps exit on their own.  The send
// channel is never closed here because a read pump may still be replying
// to a ping.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			close(h.stopped)
			for client := range h.clients {
				client.stop()
				delete(h.clients, client)
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.roomOf = make(map[*Client]string)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("ws: client connected (total=%d)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.leaveLocked(client)
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("ws: client disconnected (total=%d)", n)

		case req := <-h.joins:
			h.mu.Lock()
			if h.clients[req.client] {
				h.leaveLocked(req.client)
				members, ok := h.rooms[req.room]
				if !ok {
					members = make(map[*Client]bool)
					h.rooms[req.room] = members
				}
				members[req.client] = true
				h.roomOf[req.client] = req.room
			}
			h.mu.Unlock()
			log.Printf("ws: client joined room %s", req.room)

		case req := <-h.publishes:
			h.deliver(req.room, req.msg)
		}
	}
}

// Publish enqueues a message for every client in the room.  It never
// blocks: when the hub's queue is full the message is dropped, because the
// persisted notification remains the source of truth.
func (h *Hub) Publish(room string, msg Message) {
	select {
	case h.publishes <- publishRequest{room: room, msg: msg}:
	default:
		log.Printf("ws: publish queue full, dropping message for room %s", room)
	}
}

// Count returns the number of connected clients in a room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) deliver(room string, msg Message) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		select {
		case c.send <- msg:
		default:
			// slow client: drop rather than stall the hub
		}
	}
}

// leaveLocked removes a client from its current room.  Caller holds h.mu.
func (h *Hub) leaveLocked(c *Client) {
	room, ok := h.roomOf[c]
	if !ok {
		return
	}
	delete(h.roomOf, c)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}
