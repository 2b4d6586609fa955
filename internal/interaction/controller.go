// Package interaction handles likes and comments on a single post.
package interaction

import (
	"context"
	"strings"
	"sync"

	"socialfeed/internal/models"
	"socialfeed/internal/observability"
	"socialfeed/internal/session"
)

// Gateway is the subset of the API client the controller needs.
type Gateway interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	ToggleLike(ctx context.Context, postID uint) (bool, error)
	AddComment(ctx context.Context, postID uint, content string) (*models.Comment, error)
}

// Controller tracks one post item. It mutates the shared post only after the
// server confirms a change.
type Controller struct {
	gw   Gateway
	sess *session.Session
	post *models.Post
	log  *observability.ControllerLogger

	mu           sync.Mutex
	liked        bool
	likes        int
	liking       bool
	commenting   bool
	draft        string
	showComments bool
}

// New creates a Controller for post as seen by the session's current user.
func New(post *models.Post, gw Gateway, sess *session.Session) *Controller {
	return &Controller{
		gw:    gw,
		sess:  sess,
		post:  post,
		log:   observability.NewControllerLogger("post"),
		liked: post.LikedBy(sess.CurrentUserID()),
		likes: len(post.Likes),
	}
}

// Post returns the shared post.
func (c *Controller) Post() *models.Post { return c.post }

// IsLiked reports whether the current user likes the post.
func (c *Controller) IsLiked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liked
}

// LikesCount returns the displayed like count.
func (c *Controller) LikesCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.likes
}

// LikeEnabled reports whether a like toggle can be sent now.
func (c *Controller) LikeEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.liking
}

// ToggleLike asks the server to flip the like and applies its answer. On
// failure nothing changes.
func (c *Controller) ToggleLike(ctx context.Context) (err error) {
	defer func() { observability.RecordAction("post", "toggle_like", err) }()

	if !c.sess.HasToken(ctx) {
		return models.NewAuthError("Please log in to like posts")
	}

	c.mu.Lock()
	if c.liking {
		c.mu.Unlock()
		return models.ErrInFlight
	}
	c.liking = true
	c.mu.Unlock()

	// The like is recorded against the user id, so it has to be known
	// before the toggle is sent.
	uid := c.sess.CurrentUserID()
	if uid == 0 {
		user, err := c.gw.CurrentUser(ctx)
		if err != nil {
			c.mu.Lock()
			c.liking = false
			c.mu.Unlock()
			c.log.LogFailure(ctx, "current_user", err)
			return err
		}
		c.sess.SetCurrentUser(user)
		uid = user.ID
	}

	liked, err := c.gw.ToggleLike(ctx, c.post.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.liking = false
	if err != nil {
		c.log.LogFailure(ctx, "toggle_like", err)
		return err
	}

	c.liked = liked
	if liked {
		c.likes++
		c.post.AddLike(uid)
	} else {
		c.likes = max(c.likes-1, 0)
		c.post.RemoveLike(uid)
	}
	return nil
}

// Draft returns the unsent comment text.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the unsent comment text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// CommentEnabled reports whether a comment can be submitted now.
func (c *Controller) CommentEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.commenting && strings.TrimSpace(c.draft) != ""
}

// SubmitComment sends the draft. A blank draft never reaches the server. On
// success the comment is appended to the post and the draft cleared; on
// failure the draft is kept.
func (c *Controller) SubmitComment(ctx context.Context) (_ *models.Comment, err error) {
	defer func() { observability.RecordAction("post", "comment", err) }()

	c.mu.Lock()
	draft := c.draft
	busy := c.commenting
	c.mu.Unlock()

	if strings.TrimSpace(draft) == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if busy {
		return nil, models.ErrInFlight
	}
	if !c.sess.HasToken(ctx) {
		return nil, models.NewAuthError("Please log in to comment")
	}

	c.mu.Lock()
	if c.commenting {
		c.mu.Unlock()
		return nil, models.ErrInFlight
	}
	c.commenting = true
	c.mu.Unlock()

	comment, err := c.gw.AddComment(ctx, c.post.ID, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commenting = false
	if err != nil {
		c.log.LogFailure(ctx, "comment", err)
		return nil, err
	}
	c.post.Comments = append(c.post.Comments, comment)
	if c.draft == draft {
		c.draft = ""
	}
	return comment, nil
}

// Comments returns the post's comments in display order.
func (c *Controller) Comments() []*models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Comment(nil), c.post.Comments...)
}

// ShowComments reports whether the comment section is expanded.
func (c *Controller) ShowComments() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showComments
}

// ToggleComments expands or collapses the comment section.
func (c *Controller) ToggleComments() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showComments = !c.showComments
	return c.showComments
}
