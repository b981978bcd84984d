package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TrevorThebe/cdstock/internal/auth"
	"github.com/TrevorThebe/cdstock/internal/models"
	"github.com/TrevorThebe/cdstock/internal/observability"
	"github.com/TrevorThebe/cdstock/internal/repositories"
	"github.com/TrevorThebe/cdstock/internal/telemetry"
)

// AuthHandler manages registration, login and the current-user endpoint.
type AuthHandler struct {
	users  repositories.UserRepository
	tokens *auth.TokenService
	audit  *telemetry.AuditEmitter
	log    *zap.Logger
}

// NewAuthHandler builds an AuthHandler. audit may be nil.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenService, audit *telemetry.AuditEmitter, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{users: users, tokens: tokens, audit: audit, log: log}
}

// Register creates an account. New accounts always start with the normal role.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process password"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         models.RoleNormal,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
			return
		}
		h.log.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// Login verifies credentials. Blocked accounts are rejected even when the
// password is correct.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.log.Error("login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.IsBlocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is blocked"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.audit.Emit(c.Request.Context(), "user.login", requestIDFromContext(c), user.ID, map[string]any{
		"ip":         observability.IPFromRequest(c.Request),
		"user_agent": c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me returns the profile behind the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
