package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/postfeed/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserConnection{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Notification{},
		&models.PendingAssetDeletion{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, name string) models.User {
	t.Helper()
	u := models.User{
		ID:        id,
		Username:  strings.ToLower(name),
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		AvatarURL: "https://cdn.example.com/" + id + ".png",
		Headline:  name + " at Example",
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, authorID, content string, at time.Time) models.Post {
	t.Helper()
	p := models.Post{UserID: authorID, Content: content, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, db.Omit("User", "Comments").Create(&p).Error)
	return p
}
