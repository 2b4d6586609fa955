// Package feed loads and holds the list of posts shown on the feed and
// profile screens.
package feed

import (
	"context"
	"sync"

	"socialfeed/internal/models"
	"socialfeed/internal/observability"
	"socialfeed/internal/session"
	"socialfeed/internal/views"
)

// State is the load state of a Controller.
type State int

const (
	Uninitialized State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Gateway is the subset of the API client the controller needs.
type Gateway interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Posts(ctx context.Context) ([]*models.Post, error)
	Profile(ctx context.Context, username string) (*models.UserProfile, error)
}

// Controller owns one post list. Posts are shared by pointer with the
// interaction controllers built on top of it.
type Controller struct {
	gw       Gateway
	sess     *session.Session
	nav      views.Navigator
	username string // empty for the global feed
	log      *observability.ControllerLogger

	mu    sync.Mutex
	state State
	posts []*models.Post
	owner *models.User
	err   error
}

// NewFeed creates a controller for the global feed, which requires a token.
func NewFeed(gw Gateway, sess *session.Session, nav views.Navigator) *Controller {
	return &Controller{gw: gw, sess: sess, nav: nav, log: observability.NewControllerLogger("feed")}
}

// NewProfile creates a controller for username's public profile.
func NewProfile(gw Gateway, sess *session.Session, nav views.Navigator, username string) *Controller {
	return &Controller{gw: gw, sess: sess, nav: nav, username: username, log: observability.NewControllerLogger("profile")}
}

// RequiresAuth reports whether mounting without a token redirects to login.
func (c *Controller) RequiresAuth() bool { return c.username == "" }

// Username returns the profile owner's name, or "" for the global feed.
func (c *Controller) Username() string { return c.username }

// Mount resolves the signed-in user when needed and loads the posts. Without
// a token on an authenticated view it navigates to login and loads nothing.
func (c *Controller) Mount(ctx context.Context) error {
	hasToken := c.sess.HasToken(ctx)
	if c.RequiresAuth() && !hasToken {
		c.nav.Navigate(ctx, views.RouteLogin)
		return models.NewAuthError("Please log in to see the feed")
	}

	if hasToken && c.sess.CurrentUser() == nil {
		user, err := c.gw.CurrentUser(ctx)
		if err != nil {
			c.log.LogFailure(ctx, "current_user", err)
		} else {
			c.sess.SetCurrentUser(user)
		}
	}
	return c.load(ctx)
}

// Reload fetches the posts again, replacing the local list.
func (c *Controller) Reload(ctx context.Context) error {
	if c.RequiresAuth() && !c.sess.HasToken(ctx) {
		c.nav.Navigate(ctx, views.RouteLogin)
		return models.NewAuthError("Please log in to see the feed")
	}
	return c.load(ctx)
}

func (c *Controller) load(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Loading {
		c.mu.Unlock()
		return models.ErrInFlight
	}
	c.setState(ctx, Loading)
	c.mu.Unlock()

	var (
		posts []*models.Post
		owner *models.User
		err   error
	)
	if c.username == "" {
		posts, err = c.gw.Posts(ctx)
	} else {
		var profile *models.UserProfile
		profile, err = c.gw.Profile(ctx, c.username)
		if err == nil {
			owner = &profile.User
			posts = profile.Posts
		}
	}
	observability.RecordAction(c.logName(), "load", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.LogFailure(ctx, "load", err)
		c.posts = nil
		c.owner = nil
		c.err = err
		c.setState(ctx, Failed)
		return err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.posts = posts
	c.owner = owner
	c.err = nil
	c.setState(ctx, Loaded)
	return nil
}

func (c *Controller) logName() string {
	if c.username == "" {
		return "feed"
	}
	return "profile"
}

// setState must be called with mu held.
func (c *Controller) setState(ctx context.Context, to State) {
	c.log.LogTransition(ctx, c.state.String(), to.String())
	c.state = to
}

// PrependPost inserts a freshly created post at the top. It reports false and
// leaves the list alone when a post with the same id is already present.
func (c *Controller) PrependPost(post *models.Post) bool {
	if post == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.posts {
		if p.ID == post.ID {
			return false
		}
	}
	c.posts = append([]*models.Post{post}, c.posts...)
	return true
}

// Posts returns the current list in display order.
func (c *Controller) Posts() []*models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Post(nil), c.posts...)
}

// Find returns the post with id, or nil.
func (c *Controller) Find(id uint) *models.Post {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Owner returns the profile owner once loaded; nil for the global feed.
func (c *Controller) Owner() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// State returns the load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last load failure, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
