package server

import (
	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// ListLikes handles GET /api/likes/on/:postId
// @Summary Likes on a post, newest first
// @Tags likes
// @Produce json
// @Param postId path int true "Post ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Like,pagination=pagination.Meta}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/on/{postId} [get]
func (s *Server) ListLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.likeService.ListLikes(c.UserContext(), postID, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// LikePost handles POST /api/likes/on/:postId
// @Summary Like a post
// @Description Idempotent: liking again returns the existing like with 200
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 201 {object} object{data=models.Like}
// @Success 200 {object} object{data=models.Like}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/on/{postId} [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	like, created, err := s.likeService.Like(c.UserContext(), postID, userID)
	if err != nil {
		return respondError(c, err)
	}
	if !created {
		return respondData(c, fiber.StatusOK, like)
	}

	s.publishLikeEvent(c.UserContext(), notifications.EventPostLiked, postID, userID, s.likeTotal(c, postID))
	return respondData(c, fiber.StatusCreated, like)
}

// UnlikePost handles DELETE /api/likes/on/:postId
// @Summary Remove a like
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{data=models.LikeStatus}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/on/{postId} [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	if err := s.likeService.Unlike(c.UserContext(), postID, userID); err != nil {
		return respondError(c, err)
	}
	status, err := s.likeService.Status(c.UserContext(), postID, userID)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "like removed but status lookup failed",
			"post_id", postID, "error", err)
		status = &models.LikeStatus{}
	}

	s.publishLikeEvent(c.UserContext(), notifications.EventPostUnliked, postID, userID, status.TotalLikes)
	return respondData(c, fiber.StatusOK, status)
}

// LikeStatus handles GET /api/likes/status/:postId
// @Summary Like count and whether the current user likes the post
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{data=models.LikeStatus}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/status/{postId} [get]
func (s *Server) LikeStatus(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	status, err := s.likeService.Status(c.UserContext(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, status)
}

// LikeCount handles GET /api/likes/count/:postId
// @Summary Total likes on a post
// @Tags likes
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} object{data=object{total_likes=int}}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/count/{postId} [get]
func (s *Server) LikeCount(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	total, err := s.likeService.Count(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, fiber.Map{"total_likes": total})
}

// likeTotal is the post's like count for event payloads; -1 if unavailable.
func (s *Server) likeTotal(c *fiber.Ctx, postID uint) int64 {
	total, err := s.likeService.Count(c.UserContext(), postID)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to count likes", "post_id", postID, "error", err)
		return -1
	}
	return total
}
