package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRequest is the inbound payload for /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" binding:"required,min=1,max=2000"`
}

// ChatResponse is the outbound payload for /api/chat.
type ChatResponse struct {
	Answer       string    `json:"answer"`
	CitedSources []string  `json:"cited_sources"`
	SessionID    string    `json:"session_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Message is the durable archive record of one answered turn.
type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    string             `bson:"session_id" json:"session_id"`
	Question     string             `bson:"question" json:"question"`
	Answer       string             `bson:"answer" json:"answer"`
	CitedSources []string           `bson:"cited_sources,omitempty" json:"cited_sources,omitempty"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}

// DeviceToken is a registered push-notification target.
type DeviceToken struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Token        string             `bson:"token" json:"token"`
	RegisteredAt time.Time          `bson:"registered_at" json:"registered_at"`
}

// NotificationRequest is the inbound payload for /api/send-notification.
type NotificationRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// TokenRequest is the inbound payload for /api/register-token.
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}
