package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"connector/internal/auth"
	"connector/internal/database"
	"connector/internal/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-that-is-long-enough-1234"

type testEnv struct {
	db     *gorm.DB
	auth   *AuthService
	posts  *PostService
	tokens *auth.TokenService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnv(t, setupTestDB(t))
}

func newEnv(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, 100*time.Hour)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	return &testEnv{
		db:     db,
		auth:   NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost, 4), tokens),
		posts:  NewPostService(repository.NewPostRepository(db), users),
		tokens: tokens,
	}
}

// register creates a user and returns its id, resolved through the token.
func (e *testEnv) register(t *testing.T, name, email, password string) uint {
	t.Helper()
	token, err := e.auth.Register(t.Context(), RegisterInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	id, err := e.tokens.Verify(token)
	require.NoError(t, err)
	return id
}
