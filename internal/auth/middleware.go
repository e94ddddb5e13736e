package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/entities"
)

const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated.
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

const (
	// DefaultUserID owns the library when authentication is disabled.
	DefaultUserID = uint(1)
	// AnonymousUserID marks a request without a signed-in user.
	AnonymousUserID = uint(0)
)

// Middleware resolves the caller of each request.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	mode           config.AuthMode
	publicPaths    map[string]bool
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		mode:           cfg.Mode,
		publicPaths: map[string]bool{
			"/health":              true,
			"/api/auth/login":      true,
			"/api/auth/setup":      true,
			"/api/auth/status":     true,
			"/api/profile/options": true,
		},
	}
}

// Handler returns the gin middleware for the configured mode.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.mode != config.AuthModeLocal {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if user := m.bearerUser(c); user != nil {
			setUserContext(c, user, AuthTypeBearer)
			c.Next()
			return
		}
		if user := m.sessionUser(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
			c.Next()
			return
		}

		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyUserID, AnonymousUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
			"code":  "unauthenticated",
		})
	}
}

func (m *Middleware) bearerUser(c *gin.Context) *entities.User {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil
	}
	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) sessionUser(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[strings.TrimSuffix(path, "/")] || m.publicPaths[path]
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// RequireRole rejects signed-in users without one of roles. It is a no-op
// when authentication is disabled.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		if m.mode != config.AuthModeLocal {
			c.Next()
			return
		}
		if !allowed[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "forbidden",
			})
			return
		}
		c.Next()
	}
}

// GetUserID returns the caller's user ID, or AnonymousUserID.
func GetUserID(c *gin.Context) uint {
	if id, ok := c.Get(ContextKeyUserID); ok {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return AnonymousUserID
}

// GetUsername returns the caller's username, if signed in.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetUserRole returns the caller's role, if signed in.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, ok := c.Get(ContextKeyRole); ok {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType returns how the caller was authenticated.
func GetAuthType(c *gin.Context) AuthType {
	if t, ok := c.Get(ContextKeyAuthType); ok {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
