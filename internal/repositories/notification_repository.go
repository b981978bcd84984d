package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrevorThebe/cdstock/internal/models"
)

// NotificationRepository abstracts notification persistence. Read state is a
// separate receipt row per (recipient, notification), so one broadcast row
// per recipient carries independent read state.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	ListForRecipient(ctx context.Context, recipientID string) ([]models.Notification, error)
	ListBySender(ctx context.Context, senderID string) ([]models.Notification, error)
	ListAll(ctx context.Context, typeFilter, priorityFilter string) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create inserts one notification row, generating an id when absent.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Priority = models.NormalizePriority(n.Priority)
	if n.Type == "" {
		n.Type = models.TypeInfo
	}

	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (id, user_id, sender_id, sender_name, title, message, priority, type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, user_id, sender_id, sender_name, title, message, priority, type, created_at`,
		n.ID, n.UserID, n.SenderID, n.SenderName, n.Title, n.Message, n.Priority, n.Type).
		Scan(&n.ID, &n.UserID, &n.SenderID, &n.SenderName, &n.Title, &n.Message, &n.Priority, &n.Type, &n.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// ListForRecipient returns notifications newest first, each annotated with
// is_read derived from the receipt table. An unknown recipient yields an
// empty list, not an error.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	query := `SELECT n.id, n.user_id, n.sender_id, n.sender_name, n.title, n.message, n.priority, n.type, n.created_at,
            (rn.notification_id IS NOT NULL) AS is_read
        FROM notifications n
        LEFT JOIN read_notifications rn
            ON rn.notification_id = n.id AND rn.user_id = n.user_id
        WHERE n.user_id = $1
        ORDER BY n.created_at DESC`
	var rows []models.Notification
	err := r.db.SelectContext(ctx, &rows, query, recipientID)
	return rows, err
}

// ListBySender returns admin-typed notifications the sender authored, newest
// first, annotated with the recipient name when that user still exists.
func (r *NotificationRepo) ListBySender(ctx context.Context, senderID string) ([]models.Notification, error) {
	query := `SELECT n.id, n.user_id, n.sender_id, n.sender_name, n.title, n.message, n.priority, n.type, n.created_at,
            COALESCE(u.name, '') AS recipient_name
        FROM notifications n
        LEFT JOIN users u ON u.id = n.user_id
        WHERE n.sender_id = $1 AND n.type = 'admin'
        ORDER BY n.created_at DESC`
	var rows []models.Notification
	err := r.db.SelectContext(ctx, &rows, query, senderID)
	return rows, err
}

// ListAll returns every notification across all recipients, newest first,
// optionally filtered by type and priority. Backs the admin overview.
func (r *NotificationRepo) ListAll(ctx context.Context, typeFilter, priorityFilter string) ([]models.Notification, error) {
	query := `SELECT n.id, n.user_id, n.sender_id, n.sender_name, n.title, n.message, n.priority, n.type, n.created_at,
            COALESCE(u.name, '') AS recipient_name
        FROM notifications n
        LEFT JOIN users u ON u.id = n.user_id`

	var conds []string
	var args []interface{}
	if typeFilter != "" {
		args = append(args, typeFilter)
		conds = append(conds, fmt.Sprintf("n.type = $%d", len(args)))
	}
	if priorityFilter != "" {
		args = append(args, priorityFilter)
		conds = append(conds, fmt.Sprintf("n.priority = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY n.created_at DESC"

	var rows []models.Notification
	err := r.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

// MarkRead upserts a read receipt. Calling it twice is a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO read_notifications (user_id, notification_id, read_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, notification_id) DO NOTHING`,
		recipientID, notificationID, time.Now().UTC())
	return err
}

// MarkAllRead inserts receipts for every unread notification of the recipient.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO read_notifications (user_id, notification_id, read_at)
        SELECT n.user_id, n.id, $2 FROM notifications n
        WHERE n.user_id = $1
        ON CONFLICT (user_id, notification_id) DO NOTHING`,
		recipientID, time.Now().UTC())
	return err
}

// UnreadCount counts notifications with no matching receipt.
func (r *NotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications n
        LEFT JOIN read_notifications rn
            ON rn.notification_id = n.id AND rn.user_id = n.user_id
        WHERE n.user_id = $1 AND rn.notification_id IS NULL`, recipientID)
	return count, err
}

// Delete removes the receipt (if any) then the notification row. Deleting an
// absent id is a no-op success.
func (r *NotificationRepo) Delete(ctx context.Context, recipientID, notificationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM read_notifications WHERE user_id=$1 AND notification_id=$2`,
		recipientID, notificationID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`,
		notificationID, recipientID)
	return err
}
