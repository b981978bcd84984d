package models

import (
	"database/sql"
	"time"
)

// Notification priorities. Unrecognised values fall back to normal.
const (
	PriorityNormal = "normal"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification categories.
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeSuccess = "success"
	TypeError   = "error"
	TypeAdmin   = "admin"
	TypeSystem  = "system"
)

// Notification is a directed message to exactly one recipient. Read state
// lives in the read_notifications join table, not on this row, so one
// broadcast row per recipient can be read independently.
type Notification struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	SenderID   sql.NullString `db:"sender_id" json:"-"`
	SenderName string         `db:"sender_name" json:"sender_name,omitempty"`
	Title      string         `db:"title" json:"title"`
	Message    string         `db:"message" json:"message"`
	Priority   string         `db:"priority" json:"priority"`
	Type       string         `db:"type" json:"type"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`

	// IsRead is derived from the read_notifications join when listing.
	IsRead bool `db:"is_read" json:"is_read"`
	// RecipientName is populated only on admin history queries.
	RecipientName string `db:"recipient_name" json:"recipient_name,omitempty"`
}

// NormalizePriority maps arbitrary input onto a known priority.
func NormalizePriority(p string) string {
	switch p {
	case PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityNormal
	}
}

// NotificationEvent is pushed over websocket feeds.
type NotificationEvent struct {
	Type           string        `json:"type"`
	Notification   *Notification `json:"notification,omitempty"`
	NotificationID string        `json:"notification_id,omitempty"`
}
