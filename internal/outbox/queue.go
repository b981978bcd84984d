package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/observability"
)

const defaultKey = "cdstock:outbox:chat"

// Message is one chat message waiting to reach the store.
type Message struct {
	ID          string        `json:"id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Body        string        `json:"body"`
	QueuedAt    time.Time     `json:"queued_at"`
	Attempts    int           `json:"attempts"`
	State       DeliveryState `json:"state"`
}

// SendFunc attempts to deliver one queued message to the store, returning
// the id the store assigned.
type SendFunc func(ctx context.Context, msg Message) (string, error)

// Queue buffers chat messages that failed to reach the store and replays
// them in insertion order. Backed by a Redis list; single process writer.
type Queue struct {
	rdb *redis.Client
	key string
	log *zap.Logger

	// serializes flushes so two triggers cannot double-send
	flushMu sync.Mutex
}

// NewQueue constructs a Queue on the given Redis client.
func NewQueue(rdb *redis.Client, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{rdb: rdb, key: defaultKey, log: log}
}

// Enqueue appends one message to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}
	if msg.State.Kind == "" {
		msg.State = Pending()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, q.key, payload).Err(); err != nil {
		return err
	}
	q.reportDepth(ctx)
	return nil
}

// Depth returns the number of queued messages.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	return int(n), err
}

// Flush walks the queue in insertion order, attempting each message once.
// Successes are popped, failures rotate to the tail for the next trigger.
// A message is only ever removed from Redis after it was delivered (or its
// updated copy re-queued), so a crash mid-flush leaves every undelivered
// message in place. Only one flush runs at a time; a concurrent call returns
// immediately.
func (q *Queue) Flush(ctx context.Context, send SendFunc) (sent int, remaining int, err error) {
	if !q.flushMu.TryLock() {
		n, _ := q.Depth(ctx)
		return 0, n, nil
	}
	defer q.flushMu.Unlock()

	depth, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, 0, err
	}

	// Attempt only the entries present at flush start so rotated failures
	// are not retried within the same pass.
	for i := int64(0); i < depth; i++ {
		item, err := q.rdb.LIndex(ctx, q.key, 0).Result()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			q.log.Warn("dropping undecodable outbox entry", zap.Error(err))
			q.rdb.LPop(ctx, q.key)
			continue
		}

		serverID, sendErr := send(ctx, msg)
		if sendErr != nil {
			failed, _ := msg.State.MarkFailed(sendErr.Error())
			msg.State, _ = failed.Retry()
			msg.Attempts++
			q.log.Warn("outbox send failed, keeping message queued",
				zap.String("message_id", msg.ID),
				zap.Int("attempts", msg.Attempts),
				zap.Error(sendErr))
			// Re-queue the updated copy before removing the head so a crash
			// between the two duplicates instead of losing the message.
			payload, _ := json.Marshal(msg)
			if err := q.rdb.RPush(ctx, q.key, payload).Err(); err != nil {
				q.log.Warn("outbox rotate failed, leaving head in place", zap.Error(err))
				break
			}
			q.rdb.LPop(ctx, q.key)
			continue
		}

		msg.State, _ = msg.State.MarkSent(serverID)
		q.rdb.LPop(ctx, q.key)
		sent++
	}

	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return sent, 0, err
	}
	observability.SetOutboxDepth(int(n))
	return sent, int(n), nil
}

// RunFlusher flushes at startup and then on every tick until the context is
// cancelled. Stands in for the browser's online event.
func (q *Queue) RunFlusher(ctx context.Context, every time.Duration, send SendFunc) {
	flush := func() {
		sent, remaining, err := q.Flush(ctx, send)
		if err != nil {
			q.log.Warn("outbox flush failed", zap.Error(err))
			return
		}
		if sent > 0 || remaining > 0 {
			q.log.Info("outbox flush", zap.Int("sent", sent), zap.Int("remaining", remaining))
		}
	}

	flush()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flush()
		}
	}
}

func (q *Queue) reportDepth(ctx context.Context) {
	if n, err := q.Depth(ctx); err == nil {
		observability.SetOutboxDepth(n)
	}
}
