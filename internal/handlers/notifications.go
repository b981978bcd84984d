package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/notify"
	"github.com/TrevorThebe/cdstock/internal/repositories"
	"github.com/TrevorThebe/cdstock/internal/telemetry"
)

// NotificationHandler manages the per-user inbox and the admin broadcast
// endpoints.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	broadcaster   *notify.Broadcaster
	audit         *telemetry.AuditEmitter
	log           *zap.Logger
}

// NewNotificationHandler builds a NotificationHandler. audit may be nil.
func NewNotificationHandler(notifications repositories.NotificationRepository, users repositories.UserRepository, broadcaster *notify.Broadcaster, audit *telemetry.AuditEmitter, log *zap.Logger) *NotificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationHandler{
		notifications: notifications,
		users:         users,
		broadcaster:   broadcaster,
		audit:         audit,
		log:           log,
	}
}

// List returns the caller's notifications newest first, each carrying its
// derived read state.
func (h *NotificationHandler) List(c *gin.Context) {
	rows, err := h.notifications.ListForRecipient(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.log.Error("list notifications failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// UnreadCount returns how many of the caller's notifications lack a receipt.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead records a read receipt for one notification. Repeats are no-ops.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllRead records receipts for every unread notification of the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notifications read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete removes one of the caller's notifications. Absent ids succeed.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete notification"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Broadcast fans a notification template out to the selected recipients.
// Admin only. The response carries the delivery summary so partial failures
// are visible to the sender.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req struct {
		Title        string `json:"title" binding:"required"`
		Message      string `json:"message" binding:"required"`
		Priority     string `json:"priority"`
		Target       string `json:"target" binding:"required"`
		TargetUserID string `json:"target_user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown sender"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load sender"})
		return
	}

	summary, err := h.broadcaster.Send(c.Request.Context(),
		notify.Template{Title: req.Title, Message: req.Message, Priority: req.Priority},
		notify.Target{Kind: req.Target, UserID: req.TargetUserID},
		sender)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "notification.broadcast", requestIDFromContext(c), sender.ID,
		map[string]any{"target": req.Target, "attempted": summary.Attempted, "succeeded": summary.Succeeded})
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// ListAll returns every user's notifications, newest first, optionally
// filtered by type and priority. Admin only.
func (h *NotificationHandler) ListAll(c *gin.Context) {
	rows, err := h.notifications.ListAll(c.Request.Context(), c.Query("type"), c.Query("priority"))
	if err != nil {
		h.log.Error("list all notifications failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// History returns the admin-typed notifications the caller has sent, newest
// first, annotated with the recipient name where the user still exists.
func (h *NotificationHandler) History(c *gin.Context) {
	rows, err := h.notifications.ListBySender(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.log.Error("broadcast history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}
