package websocket

import (
	"context"
	"encoding/json"

	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/rs/zerolog/log"
)

const outboundBuffer = 256

// outbound is addressed either to every client of userID or, when client is
// set, to that one client.
type outbound struct {
	userID  string
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and routes note events to the
// connections of the user who owns the note.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages addressed to one user.
	outbound chan outbound

	// A map of user IDs to the set of their connected clients.
	subscriptions map[string]map[*Client]bool

	// Closed when Run returns.
	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		outbound:      make(chan outbound, outboundBuffer),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is done,
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client)
			log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case out := <-h.outbound:
			if out.client != nil {
				if h.clients[out.client] {
					h.send(out.client, out.message)
				}
				continue
			}
			for client := range h.subscriptions[out.userID] {
				h.send(client, out.message)
			}
		}
	}
}

// Publish queues a note event for the connections of its owner. Events are
// dropped when the queue is full.
func (h *Hub) Publish(event models.NoteEvent) {
	message, err := json.Marshal(NewNoteEventMessage(event))
	if err != nil {
		log.Error().Err(err).Str("event", event.Type).Msg("Failed to encode note event")
		return
	}

	h.enqueue(outbound{userID: event.UserID, message: message})
}

// Attach registers a client. It does not block once the hub has stopped.
func (h *Hub) Attach(client *Client) {
	select {
	case h.Register <- client:
	case <-h.done:
	}
}

// Detach unregisters a client. It does not block once the hub has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.outbound <- out:
	default:
		log.Warn().Str("user_id", out.userID).Msg("Websocket queue full, dropping message")
	}
}

// send delivers message to one client. Slow clients are dropped.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
