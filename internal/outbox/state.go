package outbox

import "fmt"

// StateKind enumerates delivery states for a queued chat message.
type StateKind string

const (
	StatePending StateKind = "pending"
	StateSent    StateKind = "sent"
	StateFailed  StateKind = "failed"
)

// DeliveryState is a tagged variant: Pending, Sent(server id), or
// Failed(reason). Transitions go through the methods below so an illegal
// move is an error instead of a silent overwrite.
type DeliveryState struct {
	Kind     StateKind `json:"kind"`
	ServerID string    `json:"server_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Pending is the initial state of every queued message.
func Pending() DeliveryState {
	return DeliveryState{Kind: StatePending}
}

// MarkSent transitions pending -> sent, recording the id the store assigned.
func (s DeliveryState) MarkSent(serverID string) (DeliveryState, error) {
	if s.Kind != StatePending {
		return s, fmt.Errorf("outbox: cannot mark %s message sent", s.Kind)
	}
	return DeliveryState{Kind: StateSent, ServerID: serverID}, nil
}

// MarkFailed transitions pending -> failed with the failure reason.
func (s DeliveryState) MarkFailed(reason string) (DeliveryState, error) {
	if s.Kind != StatePending {
		return s, fmt.Errorf("outbox: cannot mark %s message failed", s.Kind)
	}
	return DeliveryState{Kind: StateFailed, Reason: reason}, nil
}

// Retry transitions failed -> pending for the next flush attempt.
func (s DeliveryState) Retry() (DeliveryState, error) {
	if s.Kind != StateFailed {
		return s, fmt.Errorf("outbox: cannot retry %s message", s.Kind)
	}
	return DeliveryState{Kind: StatePending}, nil
}
