package server

import (
	"connector/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description All posts, newest first, with likes and comments
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	posts, err := s.postService.ListPosts(ctx)
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /api/posts/user/:userId
// @Summary List posts by author
// @Tags posts
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.Post
// @Security ApiKeyAuth
// @Router /posts/user/{userId} [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId", "User")
	if err != nil {
		return respondError(c, err, nil)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	posts, err := s.postService.ListPostsByUser(ctx, userID)
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	post, err := s.postService.GetPost(ctx, postID)
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Post"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	text, err := bindText(c)
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID: currentUserID(c),
		Text:   text,
	})
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	if err := s.postService.DeletePost(ctx, currentUserID(c), postID); err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(fiber.Map{"message": "Post removed"})
}

// LikePost handles PUT /api/posts/like/:id
// @Summary Like post
// @Tags likes
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Like
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts/like/{id} [put]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	likes, err := s.postService.LikePost(ctx, currentUserID(c), postID)
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(likes)
}

// UnlikePost handles PUT /api/posts/unlike/:id
// @Summary Unlike post
// @Tags likes
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Like
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts/unlike/{id} [put]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	likes, err := s.postService.UnlikePost(ctx, currentUserID(c), postID)
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(likes)
}
