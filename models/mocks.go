package models

import (
	"fmt"
	"testing"

	"github.com/nettle-social/nettle/internal/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockDB returns an in-memory database migrated to the current schema.
// It lives outside the test files so tests in other packages can use it.
func MockDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	// cache=shared keeps the in-memory database alive across pooled
	// connections; the test name keeps databases distinct across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

// MockActor creates a remote actor in the database.
func MockActor(t *testing.T, tx *gorm.DB, name, domain string) *Actor {
	t.Helper()
	require := require.New(t)

	actor := &Actor{
		ID:       snowflake.Now(),
		URI:      fmt.Sprintf("https://%s/users/%s", domain, name),
		Handle:   fmt.Sprintf("@%s@%s", name, domain),
		Name:     name,
		InboxURL: fmt.Sprintf("https://%s/users/%s/inbox", domain, name),
	}
	require.NoError(tx.Create(actor).Error)
	return actor
}

// MockUser creates a local user with its actor.
func MockUser(t *testing.T, tx *gorm.DB, username, domain string) *User {
	t.Helper()
	require := require.New(t)

	actor := MockActor(t, tx, username, domain)
	user := &User{
		ID:       snowflake.Now(),
		Username: username,
		ActorID:  actor.ID,
		Actor:    actor,
	}
	require.NoError(tx.Create(user).Error)
	return user
}

// MockPost creates a post owned by the given actor.
func MockPost(t *testing.T, tx *gorm.DB, actor *Actor, content string) *Post {
	t.Helper()
	require := require.New(t)

	id := snowflake.Now()
	post := &Post{
		ID:      id,
		ActorID: actor.ID,
		URI:     fmt.Sprintf("%s/posts/%d", actor.URI, id),
		Content: content,
	}
	require.NoError(tx.Create(post).Error)
	return post
}
