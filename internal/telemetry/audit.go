package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Publisher is satisfied by the rabbitmq publisher.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter records admin actions (broadcasts, role changes, blocks) onto
// the event exchange for downstream audit consumers.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	log         *zap.Logger
}

// AuditEnvelope is the audit event wire shape.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	ActorID       string       `json:"actor_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

// AuditPayload carries the action description.
type AuditPayload struct {
	Action string         `json:"action"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewAuditEmitter constructs an AuditEmitter.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, log *zap.Logger) *AuditEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		log:         log,
	}
}

// Emit publishes one audit event. Failures are logged, never surfaced to the
// admin action that triggered them.
func (e *AuditEmitter) Emit(ctx context.Context, action, requestID, actorID string, detail map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		ActorID:       actorID,
		Payload: AuditPayload{
			Action: action,
			Detail: detail,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		e.log.Error("audit publish failed", zap.String("action", action), zap.Error(err))
	}
}
