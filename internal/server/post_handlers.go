package server

import (
	"newsboard/internal/models"
	"newsboard/internal/notifications"
	"newsboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title   string  `json:"title"`
	URL     *string `json:"url"`
	Content *string `json:"content"`
}

// updatePostRequest fields are optional; omitted fields are left unchanged
// and null clears url or content.
type updatePostRequest struct {
	Title   models.Optional[string] `json:"title" swaggertype:"string"`
	URL     models.Optional[string] `json:"url" swaggertype:"string"`
	Content models.Optional[string] `json:"content" swaggertype:"string"`
}

// ListPosts handles GET /api/posts
// @Summary List posts, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Post,pagination=pagination.Meta}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.ListPosts(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListPastPosts handles GET /api/posts/past
// @Summary List posts, oldest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Post,pagination=pagination.Meta}
// @Router /posts/past [get]
func (s *Server) ListPastPosts(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.ListPastPosts(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListMyPosts handles GET /api/posts/me
// @Summary List the current user's posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Post,pagination=pagination.Meta}
// @Router /posts/me [get]
func (s *Server) ListMyPosts(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.ListMyPosts(c.UserContext(), currentUserID(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Description Case-insensitive match on title, content, url, author or comment text
// @Tags posts
// @Produce json
// @Param q query string true "Search text"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Post,pagination=pagination.Meta}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.SearchPosts(c.UserContext(), c.Query("q"), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:postId
// @Summary Post detail with author and comments
// @Tags posts
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {object} object{data=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post"
// @Success 201 {object} object{data=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  userID,
		Title:   req.Title,
		URL:     req.URL,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishPostEvent(c.UserContext(), notifications.EventPostCreated, post, userID)
	return respondData(c, fiber.StatusCreated, post)
}

// UpdatePost handles PATCH /api/posts/:postId
// @Summary Update a post
// @Description Partial update; only the author may edit
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body updatePostRequest true "Fields to change"
// @Success 200 {object} object{data=models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  userID,
		PostID:  postID,
		Title:   req.Title,
		URL:     req.URL,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishPostEvent(c.UserContext(), notifications.EventPostUpdated, post, userID)
	return respondData(c, fiber.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/:postId
// @Summary Delete a post with its comments and likes
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{data=object{id=int}}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: userID,
		PostID: postID,
	}); err != nil {
		return respondError(c, err)
	}

	s.publish(c.UserContext(), audienceFeed, 0,
		notifications.NewEvent(notifications.EventPostDeleted, postID, userID, nil))
	return respondData(c, fiber.StatusOK, fiber.Map{"id": postID})
}
