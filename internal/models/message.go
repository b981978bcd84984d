package models

import "time"

// ChatMessage represents a direct message between two users. Conversation
// identity is the unordered pair {UserID, RecipientID}.
type ChatMessage struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Message     string    `db:"message" json:"message"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// SenderName is joined from users when listing a conversation.
	SenderName string `db:"sender_name" json:"sender_name,omitempty"`
}

// ChatEvent is pushed over websocket feeds.
type ChatEvent struct {
	Type      string       `json:"type"`
	Message   *ChatMessage `json:"message,omitempty"`
	MessageID string       `json:"message_id,omitempty"`
}
