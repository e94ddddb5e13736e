// Package users provides read access to user accounts.
//
// Account creation and credential handling live in the auth package; this
// repository serves lookups for CLI commands and background jobs.
package users

import (
	"gorm.io/gorm"

	"github.com/mrlokans/readnext/internal/entities"
)

// Repository handles user lookups.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUserIDs returns the IDs of all active users.
func (r *Repository) ListUserIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}
