package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"connector/internal/models"
	"connector/internal/observability"
	"connector/internal/repository"
)

// MaxTextLength bounds post and comment text, in characters.
const MaxTextLength = 5000

// PostService is the content mutation engine. Ownership and existence are
// checked by the repository inside the same transaction as the write.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

type CreatePostInput struct {
	UserID uint
	Text   string
}

type CreateCommentInput struct {
	UserID uint
	PostID uint
	Text   string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
	}
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError("Text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return models.NewValidationError("Text must not exceed 5000 characters")
	}
	return nil
}

func track(operation string, err error) {
	observability.ContentMutations.WithLabelValues(operation, outcome(err)).Inc()
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() {
		track("create_post", err)
		observability.EndSpan(span, err)
	}()

	if err := validateText(in.Text); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		UserID:   author.ID,
		Text:     in.Text,
		Name:     author.Name,
		Avatar:   author.Avatar,
		Likes:    []models.Like{},
		Comments: []models.Comment{},
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.List(ctx)
}

func (s *PostService) ListPostsByUser(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID)
}

func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// DeletePost removes the post with its likes and comments. Only the author may delete it.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeletePost")
	defer func() {
		track("delete_post", err)
		observability.EndSpan(span, err)
	}()

	return s.postRepo.Delete(ctx, postID, userID)
}

func (s *PostService) LikePost(ctx context.Context, userID, postID uint) (likes []models.Like, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "LikePost")
	defer func() {
		track("like", err)
		observability.EndSpan(span, err)
	}()

	return s.postRepo.AddLike(ctx, postID, userID)
}

func (s *PostService) UnlikePost(ctx context.Context, userID, postID uint) (likes []models.Like, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "UnlikePost")
	defer func() {
		track("unlike", err)
		observability.EndSpan(span, err)
	}()

	return s.postRepo.RemoveLike(ctx, postID, userID)
}

func (s *PostService) AddComment(ctx context.Context, in CreateCommentInput) (comments []models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "AddComment")
	defer func() {
		track("comment", err)
		observability.EndSpan(span, err)
	}()

	if err := validateText(in.Text); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	return s.postRepo.AddComment(ctx, &models.Comment{
		PostID: in.PostID,
		UserID: author.ID,
		Text:   in.Text,
		Name:   author.Name,
		Avatar: author.Avatar,
	})
}

func (s *PostService) DeleteComment(ctx context.Context, in DeleteCommentInput) (comments []models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeleteComment")
	defer func() {
		track("delete_comment", err)
		observability.EndSpan(span, err)
	}()

	return s.postRepo.DeleteComment(ctx, in.PostID, in.CommentID, in.UserID)
}
