package models

import "time"

// Turn is a single conversational exchange entry within a session.
type Turn struct {
	Role      string    `bson:"role" json:"role"` // "user" or "assistant"
	Message   string    `bson:"message" json:"message"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Session holds the ordered per-client conversation history.
// Turns are append-only; a session disappears only through whole-session
// eviction after the inactivity TTL.
type Session struct {
	ID         string    `bson:"_id" json:"session_id"`
	Turns      []Turn    `bson:"turns" json:"turns"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	LastActive time.Time `bson:"last_active" json:"last_active"`
}
