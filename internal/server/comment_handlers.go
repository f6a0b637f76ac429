package server

import (
	"connector/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/comment/:id
// @Summary Comment on post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{text=string} true "Comment"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts/comment/{id} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	text, err := bindText(c)
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	comments, err := s.postService.AddComment(ctx, service.CreateCommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   text,
	})
	if err != nil {
		return respondError(c, err, postRouteStatus)
	}
	return c.JSON(comments)
}

// DeleteComment handles DELETE /api/posts/comment/:id/:commentId
// @Summary Delete comment
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {array} models.Comment
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /posts/comment/{id}/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post")
	if err != nil {
		return respondError(c, err, deleteCommentStatus)
	}
	commentID, err := parseID(c, "commentId", "Comment")
	if err != nil {
		return respondError(c, err, deleteCommentStatus)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	comments, err := s.postService.DeleteComment(ctx, service.DeleteCommentInput{
		UserID:    currentUserID(c),
		PostID:    postID,
		CommentID: commentID,
	})
	if err != nil {
		return respondError(c, err, deleteCommentStatus)
	}
	return c.JSON(comments)
}
