// Package seed populates the database with demo data for development.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"connector/internal/auth"
	"connector/internal/models"
	"connector/internal/repository"
	"connector/internal/service"
	"connector/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options tunes the generated data set.
type Options struct {
	// MaxDays spreads post dates over this many days back from now.
	MaxDays int
	// Seed makes generation deterministic when non-zero.
	Seed int64
	// BcryptCost for seeded passwords. Zero uses the bcrypt default.
	BcryptCost int
}

// Factory builds users, posts, likes and comments. Likes and comments go
// through the post repository so seeded data obeys the same rules as the API.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	users  repository.UserRepository
	posts  repository.PostRepository
	hasher *auth.PasswordHasher

	passwordHash string
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db),
		hasher: auth.NewPasswordHasher(opts.BcryptCost, 0),
	}
}

// CreateUser persists a user with a unique fake email and DefaultPassword.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	// One hash is shared by every seeded user.
	if f.passwordHash == "" {
		hash, err := f.hasher.Hash(ctx, DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		f.passwordHash = hash
	}

	email := validation.NormalizeEmail(fmt.Sprintf("%s.%d@%s",
		f.faker.Username(), f.faker.Number(1000, 9999), f.faker.DomainName()))
	user := &models.User{
		Name:     f.faker.Name(),
		Email:    email,
		Password: f.passwordHash,
		Avatar:   service.GravatarURL(email),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a post by author dated somewhere in the last MaxDays.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	post := &models.Post{
		UserID:    author.ID,
		Text:      f.faker.Paragraph(1, 3, 12, " "),
		Name:      author.Name,
		Avatar:    author.Avatar,
		CreatedAt: time.Now().Add(-back),
	}
	for _, override := range overrides {
		override(post)
	}

	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Like records user's like on post. An existing like is not an error.
func (f *Factory) Like(ctx context.Context, user *models.User, post *models.Post) error {
	_, err := f.posts.AddLike(ctx, post.ID, user.ID)
	if models.IsCode(err, models.CodeAlreadyLiked) {
		return nil
	}
	return err
}

// Comment adds a fake comment by user on post.
func (f *Factory) Comment(ctx context.Context, user *models.User, post *models.Post) error {
	_, err := f.posts.AddComment(ctx, &models.Comment{
		PostID: post.ID,
		UserID: user.ID,
		Text:   f.faker.Sentence(f.faker.Number(3, 14)),
		Name:   user.Name,
		Avatar: user.Avatar,
	})
	return err
}

// pick returns a random element of users.
func (f *Factory) pick(users []*models.User) *models.User {
	return users[f.faker.Number(0, len(users)-1)]
}

// chance reports true with probability percent/100.
func (f *Factory) chance(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}

func logf(format string, args ...any) {
	log.Printf("[seed] "+format, args...)
}
