package notifications

import (
	"encoding/json"
	"time"
)

// Board event types.
const (
	EventPostCreated    = "post_created"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
	EventCommentUpdated = "comment_updated"
	EventCommentDeleted = "comment_deleted"
	EventPostLiked      = "post_liked"
	EventPostUnliked    = "post_unliked"

	// EventConnected greets a new websocket connection.
	EventConnected = "connected"
)

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"post_id,omitempty"`
	ActorID   uint      `json:"actor_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, postID, actorID uint, payload any) Event {
	return Event{
		Type:      eventType,
		PostID:    postID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Encode marshals the event to its wire form.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
