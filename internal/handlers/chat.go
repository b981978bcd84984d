package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/models"
	"github.com/TrevorThebe/cdstock/internal/notify"
	"github.com/TrevorThebe/cdstock/internal/outbox"
	"github.com/TrevorThebe/cdstock/internal/repositories"
)

// ChatHandler manages direct message endpoints. A message that fails to reach
// the store is parked in the outbox for a later flush instead of being lost.
type ChatHandler struct {
	chats  repositories.ChatRepository
	users  repositories.UserRepository
	feed   notify.FeedPusher
	outbox *outbox.Queue
	log    *zap.Logger
}

// NewChatHandler builds a ChatHandler. feed and outbox may be nil.
func NewChatHandler(chats repositories.ChatRepository, users repositories.UserRepository, feed notify.FeedPusher, queue *outbox.Queue, log *zap.Logger) *ChatHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{chats: chats, users: users, feed: feed, outbox: queue, log: log}
}

// Send stores a direct message for the recipient in the path and pushes it to
// both participants' feeds.
func (h *ChatHandler) Send(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body := strings.TrimSpace(req.Message)
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}

	senderID := currentUserID(c)
	recipientID := c.Param("user_id")
	if recipientID == senderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	exists, err := h.users.Exists(c.Request.Context(), recipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify recipient"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
		return
	}

	msg, err := h.chats.Create(c.Request.Context(), models.ChatMessage{
		UserID:      senderID,
		RecipientID: recipientID,
		Message:     body,
	})
	if err != nil {
		h.queueForRetry(c, senderID, recipientID, body, err)
		return
	}

	if h.feed != nil {
		event := models.ChatEvent{Type: "chat.message", Message: &msg}
		h.feed.BroadcastToUser(recipientID, event)
		h.feed.BroadcastToUser(senderID, event)
	}

	c.JSON(http.StatusCreated, msg)
}

// queueForRetry parks a message the store rejected. The client gets a 202 so
// it can render the message as pending rather than failed.
func (h *ChatHandler) queueForRetry(c *gin.Context, senderID, recipientID, body string, cause error) {
	if h.outbox == nil {
		h.log.Error("chat store failed, no outbox configured", zap.Error(cause))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	queued := outbox.Message{SenderID: senderID, RecipientID: recipientID, Body: body}
	if err := h.outbox.Enqueue(c.Request.Context(), queued); err != nil {
		h.log.Error("chat store and outbox both failed", zap.Error(cause), zap.NamedError("outbox_error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	h.log.Warn("chat store failed, message queued for retry",
		zap.String("recipient_id", recipientID), zap.Error(cause))
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// Conversation returns every message between the caller and the peer in the
// path, oldest first.
func (h *ChatHandler) Conversation(c *gin.Context) {
	msgs, err := h.chats.ListConversation(c.Request.Context(), currentUserID(c), c.Param("user_id"))
	if err != nil {
		h.log.Error("list conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// UnreadCount returns the number of messages addressed to the caller not yet
// marked read.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	count, err := h.chats.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkConversationRead flags every message from the peer to the caller read.
func (h *ChatHandler) MarkConversationRead(c *gin.Context) {
	if err := h.chats.MarkConversationRead(c.Request.Context(), currentUserID(c), c.Param("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark conversation read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StoreSender adapts the chat repository into the outbox send function used
// by the flusher.
func (h *ChatHandler) StoreSender() outbox.SendFunc {
	return func(ctx context.Context, msg outbox.Message) (string, error) {
		stored, err := h.chats.Create(ctx, models.ChatMessage{
			ID:          msg.ID,
			UserID:      msg.SenderID,
			RecipientID: msg.RecipientID,
			Message:     msg.Body,
		})
		if err != nil {
			return "", err
		}
		if h.feed != nil {
			event := models.ChatEvent{Type: "chat.message", Message: &stored}
			h.feed.BroadcastToUser(stored.RecipientID, event)
			h.feed.BroadcastToUser(stored.UserID, event)
		}
		return stored.ID, nil
	}
}
