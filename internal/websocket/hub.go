// Package websocket pushes live seat-availability events to clients
// watching a flight, so a user can see seats disappear while deciding.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType labels a hub broadcast.
type MessageType string

const (
	MessageTypeSeatsTaken MessageType = "seats_taken"
	MessageTypeSeatsFreed MessageType = "seats_freed"
)

// Message is a capacity change event for one flight.
type Message struct {
	Type          MessageType `json:"type"`
	Fid           int         `json:"fid"`
	ReservationID int         `json:"reservationId,omitempty"`
	Day           int         `json:"day,omitempty"`
	Timestamp     int64       `json:"timestamp"`
}

// Hub fans capacity events out to the clients watching each flight.
type Hub struct {
	clients    map[int]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	log        *slog.Logger
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call Run in a goroutine to start it.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.fid] == nil {
				h.clients[client.fid] = make(map[*Client]bool)
			}
			h.clients[client.fid][client] = true
			h.log.Debug("websocket client registered", "fid", client.fid, "watchers", len(h.clients[client.fid]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.fid]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.fid)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.log.Error("failed to marshal broadcast", "error", err)
				continue
			}

			h.mu.RLock()
			clients := h.clients[message.Fid]
			h.mu.RUnlock()

			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.mu.Lock()
					delete(h.clients[message.Fid], client)
					close(client.send)
					h.mu.Unlock()
				}
			}
		}
	}
}

// BroadcastSeatsTaken notifies watchers of each leg that a booking took a
// seat on their flight.
func (h *Hub) BroadcastSeatsTaken(fids []int, reservationID, day int) {
	for _, fid := range fids {
		h.broadcast <- &Message{
			Type:          MessageTypeSeatsTaken,
			Fid:           fid,
			ReservationID: reservationID,
			Day:           day,
			Timestamp:     time.Now().UnixMilli(),
		}
	}
}

// BroadcastSeatsFreed notifies watchers of each leg that a cancellation
// freed a seat on their flight.
func (h *Hub) BroadcastSeatsFreed(fids []int, reservationID int) {
	for _, fid := range fids {
		h.broadcast <- &Message{
			Type:          MessageTypeSeatsFreed,
			Fid:           fid,
			ReservationID: reservationID,
			Timestamp:     time.Now().UnixMilli(),
		}
	}
}

// WatcherCount returns the number of clients watching a flight.
func (h *Hub) WatcherCount(fid int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[fid])
}
