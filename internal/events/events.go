package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePostCreated   = "post.created"
	TypePostUpdated   = "post.updated"
	TypePostReverted  = "post.reverted"
	TypePostDeleted   = "post.deleted"
	TypePostPublished = "post.published"
)

type PostPayload struct {
	PostID   uuid.UUID `json:"post_id"`
	Title    string    `json:"title,omitempty"`
	Brand    string    `json:"brand,omitempty"`
	Platform string    `json:"platform,omitempty"`
	Status   string    `json:"status,omitempty"`
}

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   PostPayload `json:"payload"`
}

func New(eventType string, payload PostPayload) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
