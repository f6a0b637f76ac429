package seed

import (
	"context"
	"errors"
	"fmt"

	"connector/internal/models"

	"gorm.io/gorm"
)

// Seeder fills a database with users and engagement on their posts.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Result summarizes what Run created.
type Result struct {
	Users    int
	Posts    int
	Likes    int
	Comments int
}

// ClearAll removes all content and accounts, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run creates numUsers users and numPosts posts. Each post gets likes from
// about a third of the users and a handful of comments.
func (s *Seeder) Run(ctx context.Context, numUsers, numPosts int) (Result, error) {
	var res Result
	if numUsers <= 0 {
		return res, errors.New("at least one user is required")
	}

	users := make([]*models.User, 0, numUsers)
	for range numUsers {
		u, err := s.factory.CreateUser(ctx)
		if err != nil {
			return res, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	logf("created %d users", res.Users)

	for range numPosts {
		post, err := s.factory.CreatePost(ctx, s.factory.pick(users))
		if err != nil {
			return res, fmt.Errorf("create post: %w", err)
		}
		res.Posts++

		for _, u := range users {
			if !s.factory.chance(33) {
				continue
			}
			if err := s.factory.Like(ctx, u, post); err != nil {
				return res, fmt.Errorf("like post %d: %w", post.ID, err)
			}
			res.Likes++
		}

		comments := s.factory.faker.Number(0, 4)
		for range comments {
			if err := s.factory.Comment(ctx, s.factory.pick(users), post); err != nil {
				return res, fmt.Errorf("comment on post %d: %w", post.ID, err)
			}
			res.Comments++
		}
	}
	logf("created %d posts, %d likes, %d comments", res.Posts, res.Likes, res.Comments)
	return res, nil
}
