package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrevorThebe/cdstock/internal/models"
)

func TestChatCreateGeneratesID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs(sqlmock.AnyArg(), "alice", "bob", "hi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "recipient_id", "message", "is_read", "created_at"}).
			AddRow("m1", "alice", "bob", "hi", false, now))

	msg, err := repo.Create(context.Background(), models.ChatMessage{UserID: "alice", RecipientID: "bob", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.False(t, msg.IsRead)
}

func TestListConversationOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "recipient_id", "message", "is_read", "created_at", "sender_name"}).
		AddRow("m1", "alice", "bob", "hi", true, now.Add(-time.Minute), "Alice").
		AddRow("m2", "bob", "alice", "hello", false, now, "Bob")
	mock.ExpectQuery(`FROM chat_messages m`).
		WithArgs("alice", "bob").
		WillReturnRows(rows)

	msgs, err := repo.ListConversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Message)
	assert.Equal(t, "hello", msgs[1].Message)
}

func TestChatUnreadCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM chat_messages`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.UnreadCount(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMarkConversationRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectExec(`UPDATE chat_messages SET is_read = TRUE`).
		WithArgs("bob", "alice").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkConversationRead(context.Background(), "bob", "alice"))
	require.NoError(t, mock.ExpectationsWereMet())
}
