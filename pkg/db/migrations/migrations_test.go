package migrations

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/modbot/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	m := NewMigrator(db)

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.Description)
	}

	assert.True(t, db.Migrator().HasTable(&models.Tag{}))
	assert.True(t, db.Migrator().HasTable(&models.Alias{}))
	assert.True(t, db.Migrator().HasTable(&models.Name{}))
}

func TestBackfillRegistersExistingNames(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	// schema from before the name registry existed
	require.NoError(t, db.AutoMigrate(&models.Tag{}, &models.Alias{}))
	require.NoError(t, db.Exec(`INSERT INTO tags (name, content, creator_id, created_at, times_used, restricted)
		VALUES ('ask', 'Just ask.', '1', CURRENT_TIMESTAMP, 0, false)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO tag_aliases (alias, tag_name, created_at)
		VALUES ('question', 'ask', CURRENT_TIMESTAMP)`).Error)

	require.NoError(t, NewMigrator(db).Migrate(ctx))

	var names []models.Name
	require.NoError(t, db.Order("name ASC").Find(&names).Error)
	assert.Equal(t, []models.Name{
		{Name: "ask", Kind: models.NameKindTag},
		{Name: "question", Kind: models.NameKindAlias},
	}, names)
}

func TestRollback(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	m := NewMigrator(db)

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Rollback(ctx))
	require.NoError(t, m.Rollback(ctx))

	assert.False(t, db.Migrator().HasTable(&models.Tag{}))
	assert.False(t, db.Migrator().HasTable(&models.Name{}))

	err := m.Rollback(ctx)
	assert.Error(t, err)
}
