package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/readnext/internal/config"
	"github.com/mrlokans/readnext/internal/entities"
)

const testPassword = "correct-horse-battery"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestService_CreateUser(t *testing.T) {
	svc := NewService(setupTestDB(t), config.Auth{BcryptCost: 4})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{"valid admin", "admin", "admin@example.com", testPassword, entities.UserRoleAdmin, nil},
		{"missing username", "", "a@example.com", testPassword, entities.UserRoleViewer, ErrUsernameRequired},
		{"missing email", "reader", "", testPassword, entities.UserRoleViewer, ErrEmailRequired},
		{"missing password", "reader", "r@example.com", "", entities.UserRoleViewer, ErrPasswordRequired},
		{"bad username", "a b", "r@example.com", testPassword, entities.UserRoleViewer, ErrUsernameInvalid},
		{"bad email", "reader", "not-an-email", testPassword, entities.UserRoleViewer, ErrEmailInvalid},
		{"bad role", "reader", "r@example.com", testPassword, "owner", ErrInvalidRole},
		{"short password", "reader", "r@example.com", "short", entities.UserRoleViewer, ErrPasswordTooShort},
		{"duplicate username", "admin", "other@example.com", testPassword, entities.UserRoleViewer, ErrUserExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CreateUser(tt.username, tt.email, tt.password, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && (user.ID == 0 || user.PasswordHash == tt.password) {
				t.Errorf("unexpected user: %+v", user)
			}
		})
	}
}

func TestService_Setup(t *testing.T) {
	svc := NewService(setupTestDB(t), config.Auth{BcryptCost: 4})

	user, err := svc.Setup("admin", "admin@example.com", testPassword)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if user.Role != entities.UserRoleAdmin {
		t.Errorf("expected admin role, got %s", user.Role)
	}

	if _, err := svc.Setup("second", "second@example.com", testPassword); !errors.Is(err, ErrSetupDone) {
		t.Errorf("expected ErrSetupDone, got %v", err)
	}

	hasUsers, err := svc.HasUsers()
	if err != nil || !hasUsers {
		t.Errorf("expected users to exist, got %v, %v", hasUsers, err)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := NewService(setupTestDB(t), config.Auth{BcryptCost: 4, LockoutDuration: time.Hour})
	if _, err := svc.CreateUser("reader", "reader@example.com", testPassword, entities.UserRoleViewer); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	t.Run("by username", func(t *testing.T) {
		user, err := svc.Authenticate("reader", testPassword)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if user.LastLoginAt == nil {
			t.Error("expected last login to be recorded")
		}
	})

	t.Run("by email", func(t *testing.T) {
		if _, err := svc.Authenticate("reader@example.com", testPassword); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.Authenticate("nobody", testPassword); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("locks after repeated failures", func(t *testing.T) {
		for i := 0; i < accountLockThreshold; i++ {
			if _, err := svc.Authenticate("reader", "wrong-password-123"); !errors.Is(err, ErrInvalidPassword) {
				t.Fatalf("attempt %d: expected ErrInvalidPassword, got %v", i+1, err)
			}
		}
		if _, err := svc.Authenticate("reader", testPassword); !errors.Is(err, ErrAccountLocked) {
			t.Errorf("expected ErrAccountLocked, got %v", err)
		}
	})
}

func TestService_Tokens(t *testing.T) {
	svc := NewService(setupTestDB(t), config.Auth{BcryptCost: 4, TokenExpiry: time.Hour})
	user, err := svc.CreateUser("reader", "reader@example.com", testPassword, entities.UserRoleViewer)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := svc.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	found, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, found.ID)
	}

	if _, err := svc.ValidateToken("bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.ValidateToken(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
	if _, err := svc.GenerateToken(999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	t.Run("expired", func(t *testing.T) {
		old := time.Now().Add(-2 * time.Hour)
		svc.db.Model(&entities.User{}).Where("id = ?", user.ID).Update("token_created_at", old)
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("revoked", func(t *testing.T) {
		if err := svc.RevokeToken(user.ID); err != nil {
			t.Fatalf("RevokeToken: %v", err)
		}
		if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken after revoke, got %v", err)
		}
	})
}
