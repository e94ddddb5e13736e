package auth

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
)

// EventLogger records authentication events.
type EventLogger interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type setupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       uint              `json:"id"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Role     entities.UserRole `json:"role"`
}

func toUserResponse(u *entities.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Controller serves the /api/auth endpoints.
type Controller struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	events         EventLogger
	mode           config.AuthMode

	setupMu sync.Mutex
}

// NewController creates the auth controller. events may be nil.
func NewController(service *Service, sessionManager *SessionManager, cfg config.Auth, events EventLogger) *Controller {
	return &Controller{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		events: events,
		mode:   cfg.Mode,
	}
}

// RegisterRoutes mounts the auth endpoints on group.
func (ac *Controller) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/status", ac.Status)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.POST("/setup", ac.Setup)
	group.POST("/tokens", ac.GenerateToken)
	group.DELETE("/tokens", ac.RevokeToken)
}

// Stop releases the rate limiter's background goroutine.
func (ac *Controller) Stop() {
	ac.rateLimiter.Stop()
}

// Status reports the auth mode and the current user, if any.
func (ac *Controller) Status(c *gin.Context) {
	resp := gin.H{
		"mode":          ac.mode,
		"authenticated": GetAuthType(c) != AuthTypeNone || ac.mode != config.AuthModeLocal,
		"csrfToken":     GetCSRFToken(c),
	}
	if ac.mode == config.AuthModeLocal {
		hasUsers, err := ac.service.HasUsers()
		if err != nil {
			logging.Error().Err(err).Msg("Failed to count users")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load auth status"})
			return
		}
		resp["setupRequired"] = !hasUsers
		if userID := GetUserID(c); userID != AnonymousUserID {
			resp["user"] = gin.H{"id": userID, "username": GetUsername(c), "role": GetUserRole(c)}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Login signs a user in with a session cookie.
func (ac *Controller) Login(c *gin.Context) {
	if ac.mode != config.AuthModeLocal {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	ip := c.ClientIP()
	if allowed, retryAfter := ac.rateLimiter.Allow(ip, req.Username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many login attempts. Please try again later.",
			"retry_after": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(ip, req.Username)
		ac.logEvent(0, "login_failed", c, false)

		status, msg := http.StatusUnauthorized, "Invalid username or password"
		switch {
		case errors.Is(err, ErrAccountLocked):
			status, msg = http.StatusLocked, "Account is locked. Please try again later."
		case !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrInvalidPassword):
			logging.Error().Err(err).Msg("Login failed")
			status, msg = http.StatusInternalServerError, "Login failed"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	ac.rateLimiter.RecordSuccess(ip, req.Username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		logging.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	ac.logEvent(user.ID, "login", c, true)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// Logout ends the current session.
func (ac *Controller) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		if err := ac.sessionManager.DestroySession(c.Request); err != nil {
			logging.Warn().Err(err).Msg("Failed to destroy session")
		}
	}
	ac.logEvent(GetUserID(c), "logout", c, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Setup creates the first admin user and signs them in.
func (ac *Controller) Setup(c *gin.Context) {
	if ac.mode != config.AuthModeLocal {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authentication is disabled"})
		return
	}

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	ac.setupMu.Lock()
	defer ac.setupMu.Unlock()

	user, err := ac.service.Setup(req.Username, req.Email, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrSetupDone), errors.Is(err, ErrUserExists):
			status = http.StatusConflict
		case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong),
			errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrUsernameInvalid),
			errors.Is(err, ErrEmailRequired), errors.Is(err, ErrEmailInvalid),
			errors.Is(err, ErrPasswordRequired):
		default:
			logging.Error().Err(err).Msg("Setup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		logging.Warn().Err(err).Msg("Failed to create session after setup")
	}
	ac.logEvent(user.ID, "setup", c, true)
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

// GenerateToken issues a new API token for the caller.
func (ac *Controller) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if ac.mode != config.AuthModeLocal || userID == AnonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := ac.service.GenerateToken(userID)
	if err != nil {
		logging.Error().Err(err).Uint("user_id", userID).Msg("Failed to generate API token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	ac.logEvent(userID, "token_generate", c, true)
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken removes the caller's API token.
func (ac *Controller) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if ac.mode != config.AuthModeLocal || userID == AnonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := ac.service.RevokeToken(userID); err != nil {
		logging.Error().Err(err).Uint("user_id", userID).Msg("Failed to revoke API token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	ac.logEvent(userID, "token_revoke", c, true)
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func (ac *Controller) logEvent(userID uint, action string, c *gin.Context, success bool) {
	if ac.events == nil {
		return
	}
	ac.events.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}
