package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"connector/internal/config"
	"connector/internal/database"
	"connector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func likeUsers(likes []models.Like) []uint {
	ids := make([]uint, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.UserID)
	}
	return ids
}

func commentIDs(comments []models.Comment) []uint {
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestPostService_CreatePost(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")

	tests := []struct {
		name     string
		text     string
		wantCode string
	}{
		{"empty", "", models.CodeValidation},
		{"blank", "   \n", models.CodeValidation},
		{"too long", strings.Repeat("x", MaxTextLength+1), models.CodeValidation},
		{"at limit", strings.Repeat("x", MaxTextLength), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: tt.text})
			if tt.wantCode != "" {
				assert.True(t, models.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, post.ID)
		})
	}

	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", post.Name)
	assert.Equal(t, GravatarURL("a@x.com"), post.Avatar)
	assert.Equal(t, ann, post.UserID)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	_, err = env.posts.CreatePost(ctx, CreatePostInput{UserID: 9999, Text: "ghost"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_AuthorSnapshot(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")

	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", ann).Update("name", "Annie").Error)

	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestPostService_LikeTwice(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	likes, err := env.posts.LikePost(ctx, ann, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{ann}, likeUsers(likes))

	_, err = env.posts.LikePost(ctx, ann, post.ID)
	assert.True(t, models.IsCode(err, models.CodeAlreadyLiked))

	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, 1)
}

func TestPostService_UnlikeRoundTrip(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	bob := env.register(t, "Bob", "b@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	_, err = env.posts.UnlikePost(ctx, bob, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotLiked))

	before, err := env.posts.LikePost(ctx, ann, post.ID)
	require.NoError(t, err)

	_, err = env.posts.LikePost(ctx, bob, post.ID)
	require.NoError(t, err)
	after, err := env.posts.UnlikePost(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, likeUsers(before), likeUsers(after))

	_, err = env.posts.LikePost(ctx, bob, 9999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = env.posts.UnlikePost(ctx, bob, 9999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_DeleteComment(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	bob := env.register(t, "Bob", "b@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	_, err = env.posts.AddComment(ctx, CreateCommentInput{UserID: bob, PostID: post.ID, Text: "first"})
	require.NoError(t, err)
	comments, err := env.posts.AddComment(ctx, CreateCommentInput{UserID: bob, PostID: post.ID, Text: "second"})
	require.NoError(t, err)
	comments, err = env.posts.AddComment(ctx, CreateCommentInput{UserID: ann, PostID: post.ID, Text: "reply"})
	require.NoError(t, err)
	require.Len(t, comments, 3)

	target := comments[1]
	require.Equal(t, "second", target.Text)

	_, err = env.posts.DeleteComment(ctx, DeleteCommentInput{UserID: ann, PostID: post.ID, CommentID: target.ID})
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Contains(t, commentIDs(got.Comments), target.ID)

	remaining, err := env.posts.DeleteComment(ctx, DeleteCommentInput{UserID: bob, PostID: post.ID, CommentID: target.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{comments[0].ID, comments[2].ID}, commentIDs(remaining))

	_, err = env.posts.DeleteComment(ctx, DeleteCommentInput{UserID: bob, PostID: post.ID, CommentID: target.ID})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_AddComment_Validation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	_, err = env.posts.AddComment(ctx, CreateCommentInput{UserID: ann, PostID: post.ID, Text: " "})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = env.posts.AddComment(ctx, CreateCommentInput{UserID: ann, PostID: post.ID, Text: strings.Repeat("y", MaxTextLength+1)})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = env.posts.AddComment(ctx, CreateCommentInput{UserID: ann, PostID: 9999, Text: "hi"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_DeletePost(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	bob := env.register(t, "Bob", "b@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	err = env.posts.DeletePost(ctx, bob, post.ID)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	err = env.posts.DeletePost(ctx, bob, 9999)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "missing post is NotFound, never Forbidden")

	require.NoError(t, env.posts.DeletePost(ctx, ann, post.ID))
	_, err = env.posts.GetPost(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_ListPosts(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	bob := env.register(t, "Bob", "b@x.com", "longpass1")

	empty, err := env.posts.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	p1, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "one"})
	require.NoError(t, err)
	p2, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: bob, Text: "two"})
	require.NoError(t, err)

	all, err := env.posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, p2.ID, all[0].ID)
	assert.Equal(t, p1.ID, all[1].ID)

	byBob, err := env.posts.ListPostsByUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, byBob, 1)
	assert.Equal(t, p2.ID, byBob[0].ID)
}

func TestPostService_ConcurrentLikesDifferentUsers(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.posts.LikePost(ctx, uint(1000+i), post.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, n, "no like is lost")
}

// Goes through database.Connect so the production sqlite pool settings apply.
func TestPostService_ConcurrentMutations_FileSQLite(t *testing.T) {
	db, err := database.Connect(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "connector.db"),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	env := newEnv(t, db)
	ctx := context.Background()
	ann := env.register(t, "Ann", "a@x.com", "longpass1")
	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: ann, Text: "hello"})
	require.NoError(t, err)

	const n = 30
	users := make([]uint, n)
	for i := range users {
		users[i] = env.register(t, fmt.Sprintf("User %d", i), fmt.Sprintf("u%d@x.com", i), "longpass1")
	}

	var wg sync.WaitGroup
	errs := make([]error, 2*n)
	for i, uid := range users {
		wg.Add(2)
		go func(i int, uid uint) {
			defer wg.Done()
			_, errs[i] = env.posts.LikePost(ctx, uid, post.ID)
		}(i, uid)
		go func(i int, uid uint) {
			defer wg.Done()
			_, errs[n+i] = env.posts.AddComment(ctx, CreateCommentInput{UserID: uid, PostID: post.ID, Text: "hi"})
		}(i, uid)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, n)
	assert.Len(t, got.Comments, n)
}

func TestScenario_AnnAndBob(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	tokenA, err := env.auth.Register(ctx, RegisterInput{Name: "Ann", Email: "a@x.com", Password: "longpass1"})
	require.NoError(t, err)
	a, err := env.tokens.Verify(tokenA)
	require.NoError(t, err)

	post, err := env.posts.CreatePost(ctx, CreatePostInput{UserID: a, Text: "hello"})
	require.NoError(t, err)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	likes, err := env.posts.LikePost(ctx, a, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a}, likeUsers(likes))

	_, err = env.posts.LikePost(ctx, a, post.ID)
	assert.True(t, models.IsCode(err, models.CodeAlreadyLiked))
	got, err := env.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, 1)

	b := env.register(t, "B", "b@x.com", "longpass1")
	comments, err := env.posts.AddComment(ctx, CreateCommentInput{UserID: b, PostID: post.ID, Text: "nice"})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, b, comments[0].UserID)
	assert.Equal(t, "nice", comments[0].Text)

	_, err = env.posts.DeleteComment(ctx, DeleteCommentInput{UserID: a, PostID: post.ID, CommentID: comments[0].ID})
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	remaining, err := env.posts.DeleteComment(ctx, DeleteCommentInput{UserID: b, PostID: post.ID, CommentID: comments[0].ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.NotNil(t, remaining)
}
