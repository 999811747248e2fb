package server

import (
	"context"
	"time"

	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/notifications"
	"newsboard/internal/observability"
)

const publishTimeout = 2 * time.Second

type audience int

const (
	audienceFeed audience = iota
	audiencePost
	audienceUser
)

// publish records the board event and fans it out. Delivery is best effort:
// failures are logged and never fail the request.
func (s *Server) publish(ctx context.Context, to audience, target uint, event notifications.Event) {
	observability.RecordBoardEvent(event.Type)

	message, err := event.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode board event", "type", event.Type, "error", err)
		return
	}

	if !s.notifier.Enabled() {
		switch to {
		case audienceFeed:
			s.hub.BroadcastAll(message)
		case audiencePost:
			s.hub.BroadcastPost(target, message)
		case audienceUser:
			s.hub.Broadcast(target, message)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	switch to {
	case audienceFeed:
		err = s.notifier.PublishFeed(ctx, message)
	case audiencePost:
		err = s.notifier.PublishPost(ctx, target, message)
	case audienceUser:
		err = s.notifier.PublishUser(ctx, target, message)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish board event", "type", event.Type, "error", err)
	}
}

func (s *Server) publishPostEvent(ctx context.Context, eventType string, post *models.Post, actorID uint) {
	s.publish(ctx, audienceFeed, 0, notifications.NewEvent(eventType, post.ID, actorID, post))
}

// publishCommentEvent reaches the post's watchers and, for new comments by
// someone else, the post's author.
func (s *Server) publishCommentEvent(ctx context.Context, eventType string, comment *models.Comment, actorID uint) {
	event := notifications.NewEvent(eventType, comment.PostID, actorID, comment)
	s.publish(ctx, audiencePost, comment.PostID, event)

	if eventType != notifications.EventCommentCreated {
		return
	}
	post, err := s.postRepo.GetByID(ctx, comment.PostID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load post for comment notification", "post_id", comment.PostID, "error", err)
		return
	}
	if post.UserID != actorID {
		s.publish(ctx, audienceUser, post.UserID, event)
	}
}

func (s *Server) publishLikeEvent(ctx context.Context, eventType string, postID, actorID uint, total int64) {
	event := notifications.NewEvent(eventType, postID, actorID, map[string]any{
		"total_likes": total,
	})
	s.publish(ctx, audiencePost, postID, event)
}
