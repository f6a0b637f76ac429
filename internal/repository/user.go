package repository

import (
	"context"
	"errors"

	"connector/internal/cache"
	"connector/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID loads a user through the cache. The cached copy never carries the
// password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (_ *models.User, err error) {
	ctx, finish := observe(ctx, "UserRepository.GetByID", "users")
	defer finish(&err)

	var user models.User
	key := cache.UserKey(id)

	err = cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User")
			}
			return asAppError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// GetByEmail returns nil, nil when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := observe(ctx, "UserRepository.GetByEmail", "users")
	defer finish(&err)

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, asAppError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, finish := observe(ctx, "UserRepository.Create", "users")
	defer finish(&err)

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateUserError()
		}
		return asAppError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}
