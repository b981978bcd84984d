package notify

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/apperrors"
	"github.com/TrevorThebe/cdstock/internal/models"
	"github.com/TrevorThebe/cdstock/internal/observability"
	"github.com/TrevorThebe/cdstock/internal/repositories"
)

// Target selector kinds for a broadcast.
const (
	TargetAll    = "all"
	TargetAdmins = "admins"
	TargetUser   = "user"
)

// Template is the notification template expanded per recipient.
type Template struct {
	Title    string
	Message  string
	Priority string
}

// Target selects the recipient set. UserID is required only for TargetUser.
type Target struct {
	Kind   string
	UserID string
}

// Summary reports the outcome of one fan-out.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// FeedPusher delivers realtime events to user feeds.
type FeedPusher interface {
	BroadcastToUser(userID string, event any)
}

// Broadcaster expands an admin-authored notification into one row per
// recipient. Fan-out is best effort: a failed insert for one recipient is
// counted and logged, never aborts the loop.
type Broadcaster struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	feed          FeedPusher
	log           *zap.Logger
}

// NewBroadcaster constructs a Broadcaster. feed may be nil.
func NewBroadcaster(users repositories.UserRepository, notifications repositories.NotificationRepository, feed FeedPusher, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{users: users, notifications: notifications, feed: feed, log: log}
}

// Send authorizes the sender, resolves the target set, and fans the template
// out sequentially. Validation and authorization failures are raised before
// any insert; per-recipient failures only reduce the succeeded count.
func (b *Broadcaster) Send(ctx context.Context, template Template, target Target, sender models.User) (Summary, error) {
	if !sender.IsAdmin() {
		return Summary{}, apperrors.Forbidden("only admins can send broadcasts")
	}
	if strings.TrimSpace(template.Title) == "" {
		return Summary{}, apperrors.Validation("title is required")
	}
	if strings.TrimSpace(template.Message) == "" {
		return Summary{}, apperrors.Validation("message is required")
	}

	recipients, err := b.resolveTarget(ctx, target, sender.ID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Attempted: len(recipients)}
	for _, recipientID := range recipients {
		created, err := b.notifications.Create(ctx, models.Notification{
			UserID:     recipientID,
			SenderID:   sql.NullString{String: sender.ID, Valid: true},
			SenderName: senderDisplayName(sender),
			Title:      strings.TrimSpace(template.Title),
			Message:    strings.TrimSpace(template.Message),
			Priority:   template.Priority,
			Type:       models.TypeAdmin,
		})
		if err != nil {
			b.log.Warn("broadcast insert failed",
				zap.String("recipient_id", recipientID),
				zap.Error(err))
			continue
		}
		summary.Succeeded++

		if b.feed != nil {
			b.feed.BroadcastToUser(recipientID, models.NotificationEvent{
				Type:         "notification.created",
				Notification: &created,
			})
		}
	}

	observability.ObserveBroadcast(summary.Succeeded, summary.Attempted-summary.Succeeded)
	return summary, nil
}

func (b *Broadcaster) resolveTarget(ctx context.Context, target Target, senderID string) ([]string, error) {
	switch target.Kind {
	case TargetAll:
		ids, err := b.users.ListIDsExcept(ctx, senderID)
		if err != nil {
			return nil, apperrors.Backend("resolve recipients", err)
		}
		return ids, nil
	case TargetAdmins:
		ids, err := b.users.ListAdminIDs(ctx)
		if err != nil {
			return nil, apperrors.Backend("resolve recipients", err)
		}
		return ids, nil
	case TargetUser:
		if strings.TrimSpace(target.UserID) == "" {
			return nil, apperrors.Validation("target user id is required")
		}
		exists, err := b.users.Exists(ctx, target.UserID)
		if err != nil {
			return nil, apperrors.Backend("resolve recipients", err)
		}
		if !exists {
			return nil, apperrors.Validation("target user does not exist")
		}
		return []string{target.UserID}, nil
	default:
		return nil, apperrors.Validation("unknown target kind")
	}
}

func senderDisplayName(sender models.User) string {
	if sender.Name != "" {
		return sender.Name
	}
	return sender.Email
}
