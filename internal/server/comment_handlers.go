package server

import (
	"newsboard/internal/notifications"
	"newsboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// ListComments handles GET /api/comments/on/:postId
// @Summary Comments on a post, newest first
// @Description Each comment carries its direct replies and reply count
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Comment,pagination=pagination.Meta}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/on/{postId} [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.commentService.ListComments(c.UserContext(), postID, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateComment handles POST /api/comments/on/:postId
// @Summary Comment on a post or reply to a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} object{data=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/on/{postId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:   userID,
		PostID:   postID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishCommentEvent(c.UserContext(), notifications.EventCommentCreated, comment, userID)
	return respondData(c, fiber.StatusCreated, comment)
}

// GetComment handles GET /api/comments/:commentId
// @Summary Comment detail
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 200 {object} object{data=models.Comment}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.GetComment(c.UserContext(), commentID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, comment)
}

// ListReplies handles GET /api/comments/:commentId/replies
// @Summary Direct replies to a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Comment,pagination=pagination.Meta}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId}/replies [get]
func (s *Server) ListReplies(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.commentService.ListReplies(c.UserContext(), commentID, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// UpdateComment handles PATCH /api/comments/:commentId
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Param request body updateCommentRequest true "New content"
// @Success 200 {object} object{data=models.Comment}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req updateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    userID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishCommentEvent(c.UserContext(), notifications.EventCommentUpdated, comment, userID)
	return respondData(c, fiber.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
// @Summary Delete a comment without replies
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 200 {object} object{data=models.Comment}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	comment, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		CommentID: commentID,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishCommentEvent(c.UserContext(), notifications.EventCommentDeleted, comment, userID)
	return respondData(c, fiber.StatusOK, comment)
}
