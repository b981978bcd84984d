package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TrevorThebe/cdstock/internal/models"
)

// ChatRepository abstracts chat message persistence.
type ChatRepository interface {
	Create(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	ListConversation(ctx context.Context, userA, userB string) ([]models.ChatMessage, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkConversationRead(ctx context.Context, readerID, peerID string) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Create stores a chat message, generating an id when absent.
func (r *ChatRepo) Create(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_messages (id, user_id, recipient_id, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, recipient_id, message, is_read, created_at`,
		msg.ID, msg.UserID, msg.RecipientID, msg.Message).
		Scan(&msg.ID, &msg.UserID, &msg.RecipientID, &msg.Message, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// ListConversation returns the union of messages in either direction between
// the two ids, oldest first. The arguments are symmetric.
func (r *ChatRepo) ListConversation(ctx context.Context, userA, userB string) ([]models.ChatMessage, error) {
	query := `SELECT m.id, m.user_id, m.recipient_id, m.message, m.is_read, m.created_at,
            COALESCE(u.name, '') AS sender_name
        FROM chat_messages m
        LEFT JOIN users u ON u.id = m.user_id
        WHERE (m.user_id = $1 AND m.recipient_id = $2)
           OR (m.user_id = $2 AND m.recipient_id = $1)
        ORDER BY m.created_at ASC`
	var msgs []models.ChatMessage
	err := r.db.SelectContext(ctx, &msgs, query, userA, userB)
	return msgs, err
}

// UnreadCount counts messages addressed to the recipient not yet marked read.
func (r *ChatRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_messages
        WHERE recipient_id = $1 AND is_read = FALSE`, recipientID)
	return count, err
}

// MarkConversationRead flips the read flag on messages from peer to reader.
func (r *ChatRepo) MarkConversationRead(ctx context.Context, readerID, peerID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_messages SET is_read = TRUE
        WHERE recipient_id = $1 AND user_id = $2 AND is_read = FALSE`, readerID, peerID)
	return err
}
