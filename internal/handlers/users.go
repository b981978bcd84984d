package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/models"
	"github.com/TrevorThebe/cdstock/internal/repositories"
	"github.com/TrevorThebe/cdstock/internal/telemetry"
)

// UserHandler manages user listing and the admin user-management endpoints.
type UserHandler struct {
	users repositories.UserRepository
	audit *telemetry.AuditEmitter
	log   *zap.Logger
}

// NewUserHandler builds a UserHandler. audit may be nil.
func NewUserHandler(users repositories.UserRepository, audit *telemetry.AuditEmitter, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{users: users, audit: audit, log: log}
}

// List returns every user except the caller. Feeds the chat recipient picker.
func (h *UserHandler) List(c *gin.Context) {
	callerID := currentUserID(c)

	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.log.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load users"})
		return
	}

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != callerID {
			out = append(out, u)
		}
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// UpdateRole changes a user's role. Admin only.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	targetID := c.Param("id")
	if err := h.users.UpdateRole(c.Request.Context(), targetID, req.Role); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Error("role update failed", zap.String("target_id", targetID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update role"})
		return
	}

	h.audit.Emit(c.Request.Context(), "user.role_changed", requestIDFromContext(c), currentUserID(c),
		map[string]any{"target_id": targetID, "role": req.Role})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetBlocked toggles the blocked flag. Admin only.
func (h *UserHandler) SetBlocked(c *gin.Context) {
	var req struct {
		Blocked *bool `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetID := c.Param("id")
	if targetID == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block your own account"})
		return
	}

	if err := h.users.SetBlocked(c.Request.Context(), targetID, *req.Blocked); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Error("block update failed", zap.String("target_id", targetID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
		return
	}

	h.audit.Emit(c.Request.Context(), "user.blocked", requestIDFromContext(c), currentUserID(c),
		map[string]any{"target_id": targetID, "blocked": *req.Blocked})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete removes a user account. Admin only, never the caller's own.
func (h *UserHandler) Delete(c *gin.Context) {
	targetID := c.Param("id")
	if targetID == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.users.Delete(c.Request.Context(), targetID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Error("user delete failed", zap.String("target_id", targetID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
		return
	}

	h.audit.Emit(c.Request.Context(), "user.deleted", requestIDFromContext(c), currentUserID(c),
		map[string]any{"target_id": targetID})
	c.Status(http.StatusNoContent)
}
