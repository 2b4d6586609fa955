// Package composer holds the new-post draft and publishes it.
package composer

import (
	"context"
	"strings"
	"sync"

	"socialfeed/internal/media"
	"socialfeed/internal/models"
	"socialfeed/internal/observability"
)

// Gateway is the subset of the API client the composer needs.
type Gateway interface {
	CreatePost(ctx context.Context, content string, attachment *media.Attachment) (*models.Post, error)
}

// Feed receives published posts.
type Feed interface {
	PrependPost(post *models.Post) bool
}

// Composer is a draft with an optional attachment.
type Composer struct {
	gw   Gateway
	feed Feed
	log  *observability.ControllerLogger

	mu         sync.Mutex
	content    string
	attachment media.Slot
	submitting bool
}

// New creates a Composer that prepends published posts to feed.
func New(gw Gateway, feed Feed) *Composer {
	return &Composer{gw: gw, feed: feed, log: observability.NewControllerLogger("composer")}
}

// SetContent replaces the draft text.
func (c *Composer) SetContent(text string) {
	c.mu.Lock()
	c.content = text
	c.mu.Unlock()
}

// Content returns the draft text.
func (c *Composer) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// Attach opens path and makes it the draft's media, releasing any previous one.
func (c *Composer) Attach(path string) (*media.Attachment, error) {
	if c.Submitting() {
		return nil, models.ErrInFlight
	}
	return c.attachment.Select(path)
}

// Attachment returns the draft's media, or nil.
func (c *Composer) Attachment() *media.Attachment { return c.attachment.Current() }

// RemoveAttachment releases the draft's media.
func (c *Composer) RemoveAttachment() error {
	if c.Submitting() {
		return models.ErrInFlight
	}
	return c.attachment.Close()
}

// Submitting reports whether a publish is in flight.
func (c *Composer) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// CanSubmit reports whether the draft has text or media and nothing is in flight.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.submitting && c.hasContent()
}

// hasContent must be called with mu held.
func (c *Composer) hasContent() bool {
	return strings.TrimSpace(c.content) != "" || c.attachment.Current() != nil
}

// Submit publishes the draft. On success the post is prepended to the feed,
// the text cleared and the attachment released. On failure the draft is kept.
func (c *Composer) Submit(ctx context.Context) (_ *models.Post, err error) {
	defer func() { observability.RecordAction("composer", "submit", err) }()

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, models.ErrInFlight
	}
	if !c.hasContent() {
		c.mu.Unlock()
		return nil, models.NewValidationError("Write something or attach a file")
	}
	c.submitting = true
	content := strings.TrimSpace(c.content)
	attachment := c.attachment.Current()
	c.mu.Unlock()

	post, err := c.gw.CreatePost(ctx, content, attachment)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.log.LogFailure(ctx, "submit", err)
		return nil, err
	}

	c.feed.PrependPost(post)
	c.content = ""
	if err := c.attachment.Close(); err != nil {
		c.log.LogFailure(ctx, "release_attachment", err)
	}
	return post, nil
}

// Close releases the attachment.
func (c *Composer) Close() error { return c.attachment.Close() }
