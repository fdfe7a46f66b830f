package websocket

import "github.com/isdelr/skillnotes-be/internal/models"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewNoteEventMessage wraps a note event; the action is the event type.
func NewNoteEventMessage(event models.NoteEvent) Message {
	return Message{Action: event.Type, Payload: event}
}

// NewErrorMessage builds an error reply for a client.
func NewErrorMessage(message string) Message {
	return Message{Action: "error", Payload: map[string]string{"message": message}}
}

// NewPongMessage answers a client ping.
func NewPongMessage() Message {
	return Message{Action: "pong"}
}
