package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/readnext/internal/entities"
	"github.com/mrlokans/readnext/internal/logging"
)

// LocalUsername is the account that owns the library when authentication is disabled.
const LocalUsername = "reader"

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logging.Info().Str("path", dbPath).Msg("Database initialized")

	return &Database{DB: db}, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.LibraryEntry{},
		&entities.TasteProfile{},
		&entities.ReadingGoal{},
		&entities.AuditEvent{},
		&entities.SyncProgress{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureLocalUser returns the user with the given ID, creating the local
// account if it does not exist yet.
func (d *Database) EnsureLocalUser(id uint) (*entities.User, error) {
	var user entities.User
	err := d.DB.First(&user, id).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up local user: %w", err)
	}

	user = entities.User{
		ID:       id,
		Username: LocalUsername,
		Email:    LocalUsername + "@localhost",
		Role:     entities.UserRoleAdmin,
	}
	if err := d.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create local user: %w", err)
	}

	logging.Info().Uint("user_id", id).Msg("Created local user for unauthenticated mode")
	return &user, nil
}
