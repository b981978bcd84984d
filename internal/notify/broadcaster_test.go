package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TrevorThebe/cdstock/internal/apperrors"
	"github.com/TrevorThebe/cdstock/internal/mocks"
	"github.com/TrevorThebe/cdstock/internal/models"
)

var admin = models.User{ID: "admin1", Name: "Admin", Email: "admin@cdstock.local", Role: models.RoleAdmin}

func TestSendRejectsNonAdmin(t *testing.T) {
	b := NewBroadcaster(new(mocks.UserRepositoryMock), new(mocks.NotificationRepositoryMock), nil, nil)

	_, err := b.Send(context.Background(), Template{Title: "t", Message: "m"},
		Target{Kind: TargetAll}, models.User{ID: "u1", Role: models.RoleNormal})

	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSendRejectsEmptyTemplate(t *testing.T) {
	b := NewBroadcaster(new(mocks.UserRepositoryMock), new(mocks.NotificationRepositoryMock), nil, nil)

	_, err := b.Send(context.Background(), Template{Title: "  ", Message: "m"}, Target{Kind: TargetAll}, admin)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = b.Send(context.Background(), Template{Title: "t", Message: ""}, Target{Kind: TargetAll}, admin)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSendFansOutToAllUsers(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	feed := new(mocks.FeedPusherMock)
	b := NewBroadcaster(users, notifications, feed, nil)

	users.On("ListIDsExcept", mock.Anything, "admin1").Return([]string{"u1", "u2", "u3"}, nil).Once()
	for _, id := range []string{"u1", "u2", "u3"} {
		id := id
		notifications.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
			return n.UserID == id && n.Title == "Maintenance" && n.Type == models.TypeAdmin
		})).Return(models.Notification{ID: "n-" + id, UserID: id, Title: "Maintenance"}, nil).Once()
		feed.On("BroadcastToUser", id, mock.Anything).Once()
	}

	summary, err := b.Send(context.Background(),
		Template{Title: "Maintenance", Message: "System down 10pm", Priority: "high"},
		Target{Kind: TargetAll}, admin)

	require.NoError(t, err)
	assert.Equal(t, Summary{Attempted: 3, Succeeded: 3}, summary)
	users.AssertExpectations(t)
	notifications.AssertExpectations(t)
	feed.AssertExpectations(t)
}

func TestSendCountsPartialFailures(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	b := NewBroadcaster(users, notifications, nil, nil)

	users.On("ListIDsExcept", mock.Anything, "admin1").Return([]string{"u1", "u2", "u3"}, nil).Once()
	notifications.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == "u1"
	})).Return(models.Notification{ID: "n1"}, nil).Once()
	notifications.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == "u2"
	})).Return(models.Notification{}, assert.AnError).Once()
	notifications.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == "u3"
	})).Return(models.Notification{ID: "n3"}, nil).Once()

	summary, err := b.Send(context.Background(), Template{Title: "t", Message: "m"}, Target{Kind: TargetAll}, admin)

	require.NoError(t, err)
	assert.Equal(t, Summary{Attempted: 3, Succeeded: 2}, summary)
	notifications.AssertExpectations(t)
}

func TestSendToAdminsOnly(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	b := NewBroadcaster(users, notifications, nil, nil)

	users.On("ListAdminIDs", mock.Anything).Return([]string{"admin2"}, nil).Once()
	notifications.On("Create", mock.Anything, mock.Anything).Return(models.Notification{ID: "n1"}, nil).Once()

	summary, err := b.Send(context.Background(), Template{Title: "t", Message: "m"}, Target{Kind: TargetAdmins}, admin)

	require.NoError(t, err)
	assert.Equal(t, Summary{Attempted: 1, Succeeded: 1}, summary)
	users.AssertExpectations(t)
}

func TestSendToUnknownSingleUserFailsBeforeInsert(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	b := NewBroadcaster(users, notifications, nil, nil)

	users.On("Exists", mock.Anything, "ghost").Return(false, nil).Once()

	_, err := b.Send(context.Background(), Template{Title: "t", Message: "m"},
		Target{Kind: TargetUser, UserID: "ghost"}, admin)

	require.ErrorIs(t, err, apperrors.ErrValidation)
	notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendUnknownTargetKind(t *testing.T) {
	b := NewBroadcaster(new(mocks.UserRepositoryMock), new(mocks.NotificationRepositoryMock), nil, nil)

	_, err := b.Send(context.Background(), Template{Title: "t", Message: "m"}, Target{Kind: "everyone"}, admin)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
