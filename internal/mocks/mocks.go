package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/TrevorThebe/cdstock/internal/models"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var out []models.User
	if val := args.Get(0); val != nil {
		out = val.([]models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) ListIDsExcept(ctx context.Context, excludeID string) ([]string, error) {
	args := m.Called(ctx, excludeID)
	var out []string
	if val := args.Get(0); val != nil {
		out = val.([]string)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) ListAdminIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var out []string
	if val := args.Get(0); val != nil {
		out = val.([]string)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateRole(ctx context.Context, id, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetBlocked(ctx context.Context, id string, blocked bool) error {
	args := m.Called(ctx, id, blocked)
	return args.Error(0)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var out models.Notification
	if val := args.Get(0); val != nil {
		out = val.(models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	args := m.Called(ctx, recipientID)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) ListBySender(ctx context.Context, senderID string) ([]models.Notification, error) {
	args := m.Called(ctx, senderID)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) ListAll(ctx context.Context, typeFilter, priorityFilter string) ([]models.Notification, error) {
	args := m.Called(ctx, typeFilter, priorityFilter)
	var out []models.Notification
	if val := args.Get(0); val != nil {
		out = val.([]models.Notification)
	}
	return out, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	args := m.Called(ctx, recipientID, notificationID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, recipientID string) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) Delete(ctx context.Context, recipientID, notificationID string) error {
	args := m.Called(ctx, recipientID, notificationID)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) Create(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	args := m.Called(ctx, msg)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) ListConversation(ctx context.Context, userA, userB string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, userA, userB)
	var out []models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.([]models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *ChatRepositoryMock) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *ChatRepositoryMock) MarkConversationRead(ctx context.Context, readerID, peerID string) error {
	args := m.Called(ctx, readerID, peerID)
	return args.Error(0)
}

// FeedPusherMock records realtime pushes without a live hub.
type FeedPusherMock struct {
	mock.Mock
}

func (m *FeedPusherMock) BroadcastToUser(userID string, event any) {
	m.Called(userID, event)
}
