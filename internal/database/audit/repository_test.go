package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/readnext/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	return db
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventImport,
		Action:      "goodreads_import",
		Description: "Imported 10 books from Goodreads",
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 6; i++ {
		eventType := entities.AuditEventImport
		if i%2 == 1 {
			eventType = entities.AuditEventLibrary
		}
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: eventType, Status: entities.AuditStatusSuccess}))
	}
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 2, EventType: entities.AuditEventImport}))

	t.Run("all types", func(t *testing.T) {
		events, total, err := repo.GetEvents(1, "", 4, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Len(t, events, 4)
	})

	t.Run("filtered by type", func(t *testing.T) {
		events, total, err := repo.GetEvents(1, entities.AuditEventLibrary, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, e := range events {
			assert.Equal(t, entities.AuditEventLibrary, e.EventType)
		}
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1}))

	deleted, err := repo.DeleteOldEvents(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.GetEvents(1, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
