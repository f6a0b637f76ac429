package database

import (
	"context"
	"fmt"
	"testing"

	"connector/internal/config"
	"connector/internal/middleware"
	"connector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	assert.Contains(t, pg.Config.DSN, "sslmode=disable")
	assert.Contains(t, pg.Config.DSN, "host=db")

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestOpen_MigratesSchema(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := Open(sqlite.Open(dsn), NewGormLogger(middleware.Logger, logger.Silent))
	require.NoError(t, err)

	for _, m := range []any{&models.User{}, &models.Post{}, &models.Like{}, &models.Comment{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Like{}, "idx_likes_post_user"))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:   "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	db, err := Connect(cfg)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
