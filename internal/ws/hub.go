package ws

import (
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// patientEvent is an internal struct for routing events to one patient's room
type patientEvent struct {
	PatientRef string
	Event      Event
}

// Hub maintains the set of active clients and broadcasts order events to
// them. Rooms are keyed by the scanned patient identifier so the history
// view of one patient only sees that patient's status changes.
type Hub struct {
	// Registered clients by patient identifier
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *patientEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *patientEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.patientRef] == nil {
				h.rooms[client.patientRef] = make(map[*Client]bool)
			}
			h.rooms[client.patientRef][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.patientRef]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.patientRef)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.PatientRef]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this patient's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.PatientRef], client)
					if len(h.rooms[event.PatientRef]) == 0 {
						delete(h.rooms, event.PatientRef)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToPatient sends an event to all clients watching one patient's
// order history. This is the public API for handlers to broadcast events.
func (h *Hub) BroadcastToPatient(patientRef string, event Event) {
	h.broadcast <- &patientEvent{
		PatientRef: patientRef,
		Event:      event,
	}
}
