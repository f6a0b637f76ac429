package repository

import (
	"context"
	"errors"

	"connector/internal/cache"
	"connector/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository persists posts together with their likes and comments.
// Every method that touches a post's likes or comments runs in a single
// transaction scoped to that post and reports a missing post as NotFound.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Post, error)
	// Delete removes the post, its likes and its comments if userID authored it.
	Delete(ctx context.Context, postID, userID uint) error
	AddLike(ctx context.Context, postID, userID uint) ([]models.Like, error)
	RemoveLike(ctx context.Context, postID, userID uint) ([]models.Like, error)
	AddComment(ctx context.Context, comment *models.Comment) ([]models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, userID uint) ([]models.Comment, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func withSequences(db *gorm.DB) *gorm.DB {
	return db.Preload("Likes", newestFirst).Preload("Comments", newestFirst)
}

func normalize(p *models.Post) {
	if p.Likes == nil {
		p.Likes = []models.Like{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, finish := observe(ctx, "PostRepository.Create", "posts")
	defer finish(&err)

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return asAppError(err)
	}
	normalize(post)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (_ *models.Post, err error) {
	ctx, finish := observe(ctx, "PostRepository.GetByID", "posts")
	defer finish(&err)

	var post models.Post
	err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := withSequences(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post")
			}
			return asAppError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	normalize(&post)
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) (_ []*models.Post, err error) {
	ctx, finish := observe(ctx, "PostRepository.List", "posts")
	defer finish(&err)

	return r.find(ctx, newestFirst(withSequences(r.db.WithContext(ctx))))
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint) (_ []*models.Post, err error) {
	ctx, finish := observe(ctx, "PostRepository.ListByUser", "posts")
	defer finish(&err)

	return r.find(ctx, newestFirst(withSequences(r.db.WithContext(ctx))).Where("user_id = ?", userID))
}

func (r *postRepository) find(_ context.Context, q *gorm.DB) ([]*models.Post, error) {
	posts := []*models.Post{}
	if err := q.Find(&posts).Error; err != nil {
		return nil, asAppError(err)
	}
	for _, p := range posts {
		normalize(p)
	}
	return posts, nil
}

// lockPost loads the post's id and author inside tx, taking a row lock where
// the dialect supports it.
func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	if err := forUpdate(tx).Select("id", "user_id").Take(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, postID, userID uint) (err error) {
	ctx, finish := observe(ctx, "PostRepository.Delete", "posts")
	defer finish(&err)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return models.NewForbiddenError("User not authorized")
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
	if err != nil {
		return asAppError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID uint) (_ []models.Like, err error) {
	ctx, finish := observe(ctx, "PostRepository.AddLike", "likes")
	defer finish(&err)

	likes := []models.Like{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		like := models.Like{PostID: postID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewAlreadyLikedError()
		}
		return newestFirst(tx).Where("post_id = ?", postID).Find(&likes).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return likes, nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uint) (_ []models.Like, err error) {
	ctx, finish := observe(ctx, "PostRepository.RemoveLike", "likes")
	defer finish(&err)

	likes := []models.Like{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotLikedError()
		}
		return newestFirst(tx).Where("post_id = ?", postID).Find(&likes).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return likes, nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) (_ []models.Comment, err error) {
	ctx, finish := observe(ctx, "PostRepository.AddComment", "comments")
	defer finish(&err)

	comments := []models.Comment{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, comment.PostID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return newestFirst(tx).Where("post_id = ?", comment.PostID).Find(&comments).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return comments, nil
}

func (r *postRepository) DeleteComment(ctx context.Context, postID, commentID, userID uint) (_ []models.Comment, err error) {
	ctx, finish := observe(ctx, "PostRepository.DeleteComment", "comments")
	defer finish(&err)

	comments := []models.Comment{}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}

		var existing models.Comment
		err := tx.Select("id", "user_id").
			Where("id = ? AND post_id = ?", commentID, postID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment")
		}
		if err != nil {
			return err
		}
		if existing.UserID != userID {
			return models.NewForbiddenError("User not authorized")
		}

		res := tx.Where("id = ? AND post_id = ? AND user_id = ?", commentID, postID, userID).
			Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment")
		}
		return newestFirst(tx).Where("post_id = ?", postID).Find(&comments).Error
	})
	if err != nil {
		return nil, asAppError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return comments, nil
}
