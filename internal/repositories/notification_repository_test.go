package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrevorThebe/cdstock/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestNotificationCreateDefaultsPriorityAndID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg(), "", "Maintenance", "System down 10pm", "normal", "info").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "sender_id", "sender_name", "title", "message", "priority", "type", "created_at"}).
			AddRow("n1", "u1", nil, "", "Maintenance", "System down 10pm", "normal", "info", now))

	created, err := repo.Create(context.Background(), models.Notification{
		UserID:   "u1",
		Title:    "Maintenance",
		Message:  "System down 10pm",
		Priority: "bogus",
	})
	require.NoError(t, err)
	assert.Equal(t, "n1", created.ID)
	assert.Equal(t, models.PriorityNormal, created.Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForRecipientDerivesReadState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT n\.id, n\.user_id`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "sender_id", "sender_name", "title", "message", "priority", "type", "created_at", "is_read"}).
			AddRow("n2", "u1", nil, "", "b", "bb", "high", "admin", now, false).
			AddRow("n1", "u1", nil, "", "a", "aa", "normal", "info", now.Add(-time.Hour), true))

	rows, err := repo.ListForRecipient(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].IsRead)
	assert.True(t, rows[1].IsRead)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForRecipientEmptyForUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectQuery(`SELECT n\.id, n\.user_id`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "sender_id", "sender_name", "title", "message", "priority", "type", "created_at", "is_read"}))

	rows, err := repo.ListForRecipient(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListAllAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	now := time.Now()
	mock.ExpectQuery(`LEFT JOIN users u ON u\.id = n\.user_id WHERE n\.type = \$1 AND n\.priority = \$2`).
		WithArgs("admin", "high").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "sender_id", "sender_name", "title", "message", "priority", "type", "created_at", "recipient_name"}).
			AddRow("n1", "u2", "u1", "Admin", "t", "m", "high", "admin", now, "Bob"))

	rows, err := repo.ListAll(context.Background(), "admin", "high")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob", rows[0].RecipientName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllUnfiltered(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	now := time.Now()
	mock.ExpectQuery(`LEFT JOIN users u ON u\.id = n\.user_id ORDER BY n\.created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "sender_id", "sender_name", "title", "message", "priority", "type", "created_at", "recipient_name"}).
			AddRow("n2", "u2", nil, "", "b", "bb", "normal", "info", now, "Bob").
			AddRow("n1", "u3", nil, "", "a", "aa", "high", "admin", now.Add(-time.Hour), "Carol"))

	rows, err := repo.ListAll(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadUpsertsReceipt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectExec(`INSERT INTO read_notifications`).
		WithArgs("u1", "n1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// second call hits the conflict clause and affects zero rows
	mock.ExpectExec(`INSERT INTO read_notifications`).
		WithArgs("u1", "n1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkRead(context.Background(), "u1", "n1"))
	require.NoError(t, repo.MarkRead(context.Background(), "u1", "n1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnreadCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDeleteMissingNotificationIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepo(db)

	mock.ExpectExec(`DELETE FROM read_notifications`).
		WithArgs("u1", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM notifications`).
		WithArgs("gone", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "u1", "gone"))
	require.NoError(t, mock.ExpectationsWereMet())
}
