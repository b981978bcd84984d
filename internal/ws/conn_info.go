package ws

import "time"

// ConnInfo carries identity and tracing context for one feed connection.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
