package profiles

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/readnext/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_profiles_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.TasteProfile{}, &entities.ReadingGoal{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return NewRepository(db), cleanup
}

func TestRepository_TasteProfileRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetTasteProfile(1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	genres := []entities.GenreWeight{{Name: "Mystery", Percentage: 80}, {Name: "Romance", Percentage: 90}}
	_, err = repo.SaveTasteProfile(1, genres, []string{"Slow Burn"})
	require.NoError(t, err)

	_, err = repo.SaveTasteProfile(1, genres[:1], []string{"Whodunit"})
	require.NoError(t, err)

	profile, err := repo.GetTasteProfile(1)
	require.NoError(t, err)
	assert.Equal(t, genres[:1], profile.Genres)
	assert.Equal(t, []string{"Whodunit"}, profile.Tropes)
}

func TestRepository_ReadingGoalPerYear(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.SaveReadingGoal(1, 2026, 24)
	require.NoError(t, err)
	_, err = repo.SaveReadingGoal(1, 2026, 30)
	require.NoError(t, err)
	_, err = repo.SaveReadingGoal(1, 2025, 12)
	require.NoError(t, err)

	goal, err := repo.GetReadingGoal(1, 2026)
	require.NoError(t, err)
	assert.Equal(t, 30, goal.Target)

	_, err = repo.GetReadingGoal(1, 2024)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
