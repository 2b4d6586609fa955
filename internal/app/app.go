// Package app wires configuration, the session, the API client and the
// controllers into the commands the CLI and the shell expose.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"socialfeed/internal/api"
	"socialfeed/internal/authflow"
	"socialfeed/internal/composer"
	"socialfeed/internal/config"
	"socialfeed/internal/feed"
	"socialfeed/internal/interaction"
	"socialfeed/internal/models"
	"socialfeed/internal/observability"
	"socialfeed/internal/session"
	"socialfeed/internal/views"
)

// Version is reported to the tracer.
const Version = "0.1.0"

// App holds the long-lived client state.
type App struct {
	cfg     *config.Config
	sess    *session.Session
	client  *api.Client
	out     io.Writer
	render  *views.Renderer
	history *views.History

	closers  []io.Closer
	shutdown func(context.Context) error
}

// New configures logging and tracing, opens the session store selected by
// cfg and builds an App writing to out.
func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	observability.Configure(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "socialfeed",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, closer, err := session.OpenStore(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open session store: %w", err)
	}

	a := NewWithStore(cfg, store, out)
	a.closers = append(a.closers, closer)
	a.shutdown = shutdown
	return a, nil
}

// NewWithStore builds an App around an existing store without touching the
// global logger or tracer.
func NewWithStore(cfg *config.Config, store session.Store, out io.Writer) *App {
	sess := session.New(store)
	client := api.New(cfg.APIURL, sess, api.WithTimeout(cfg.APITimeout))
	return &App{
		cfg:     cfg,
		sess:    sess,
		client:  client,
		out:     out,
		render:  views.NewRenderer(out, client.AssetURL),
		history: &views.History{},
	}
}

// Session returns the app's session.
func (a *App) Session() *session.Session { return a.sess }

// Client returns the app's API client.
func (a *App) Client() *api.Client { return a.client }

// Route returns the screen the app last navigated to.
func (a *App) Route() views.Route { return a.history.Current() }

// Navigate records the new screen and tells the user where they are.
func (a *App) Navigate(ctx context.Context, to views.Route) {
	a.history.Navigate(ctx, to)
	switch to {
	case views.RouteLogin:
		a.render.Notice("→ Login")
	case views.RouteFeed:
		a.render.Notice("→ Feed")
	}
}

// Close releases the session store and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) structured() bool { return a.cfg.OutputFormat != "text" }

// Login signs in and navigates to the feed.
func (a *App) Login(ctx context.Context, username, password string) error {
	form := authflow.NewLogin(a.client, a.sess, a)
	if err := form.Submit(ctx, username, password); err != nil {
		return err
	}
	if u := a.sess.CurrentUser(); u != nil {
		a.render.Notice("Welcome back, @%s", u.Username)
	}
	return nil
}

// Register creates an account. picture may be empty.
func (a *App) Register(ctx context.Context, fields authflow.RegisterFields, picture string) error {
	form := authflow.NewRegister(a.client, a)
	defer form.Close()

	if picture != "" {
		if err := form.SelectPicture(picture); err != nil {
			return err
		}
	}
	if err := form.Submit(ctx, fields); err != nil {
		return err
	}
	a.render.Notice("Account created. Log in as @%s", fields.Username)
	return nil
}

// Logout forgets the stored token.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sess.Logout(ctx); err != nil {
		return err
	}
	a.Navigate(ctx, views.RouteLogin)
	return nil
}

// WhoAmI prints the signed-in account. When the backend is unreachable it
// falls back to the name recorded in the token.
func (a *App) WhoAmI(ctx context.Context) error {
	token, err := a.sess.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		a.render.Notice("Not logged in")
		return nil
	}

	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		if models.IsNetworkError(err) {
			if sub, subErr := api.TokenSubject(token); subErr == nil {
				a.render.Notice("Signed in as @%s (offline)", sub)
				return nil
			}
		}
		return err
	}
	a.sess.SetCurrentUser(user)
	if a.structured() {
		return views.Encode(a.out, a.cfg.OutputFormat, user)
	}
	a.render.User(user)
	return nil
}

// Page is a loaded feed with one interaction controller per post.
type Page struct {
	Feed  *feed.Controller
	Items []*interaction.Controller
}

// page mounts c. A failed load still yields an empty page; only a missing
// session is returned as an error.
func (a *App) page(ctx context.Context, c *feed.Controller) (*Page, error) {
	if err := c.Mount(ctx); err != nil && c.State() != feed.Failed {
		return nil, err
	}
	return a.wrap(c), nil
}

func (a *App) wrap(c *feed.Controller) *Page {
	p := &Page{Feed: c}
	for _, post := range c.Posts() {
		p.Items = append(p.Items, interaction.New(post, a.client, a.sess))
	}
	return p
}

// Item returns the 1-based item n.
func (p *Page) Item(n int) (*interaction.Controller, error) {
	if n < 1 || n > len(p.Items) {
		return nil, models.NewValidationError(fmt.Sprintf("No post #%d on this page", n))
	}
	return p.Items[n-1], nil
}

// ByID returns the item for post id.
func (p *Page) ByID(id uint) (*interaction.Controller, error) {
	for _, it := range p.Items {
		if it.Post().ID == id {
			return it, nil
		}
	}
	return nil, models.NewNotFoundError(fmt.Sprintf("Post %d not found", id))
}

// LoadFeed mounts the global feed.
func (a *App) LoadFeed(ctx context.Context) (*Page, error) {
	return a.page(ctx, feed.NewFeed(a.client, a.sess, a))
}

// LoadProfile mounts username's profile.
func (a *App) LoadProfile(ctx context.Context, username string) (*Page, error) {
	return a.page(ctx, feed.NewProfile(a.client, a.sess, a, username))
}

// Show renders a page in the configured output format.
func (a *App) Show(p *Page) error {
	if p.Feed.State() == feed.Failed && p.Feed.Username() != "" {
		a.render.FormError(p.Feed.Err())
	}
	posts := p.Feed.Posts()
	if posts == nil {
		posts = []*models.Post{}
	}
	if a.structured() {
		if owner := p.Feed.Owner(); owner != nil {
			return views.Encode(a.out, a.cfg.OutputFormat, models.UserProfile{User: *owner, Posts: posts})
		}
		return views.Encode(a.out, a.cfg.OutputFormat, posts)
	}

	items := make([]views.PostState, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, it)
	}
	if owner := p.Feed.Owner(); owner != nil {
		a.render.Profile(owner, items)
		return nil
	}
	a.render.Feed(items)
	return nil
}

// ShowItem renders a single item of p.
func (a *App) ShowItem(p *Page, it *interaction.Controller) {
	for i, candidate := range p.Items {
		if candidate == it {
			a.render.Post(i+1, it)
			return
		}
	}
}

// Publish posts content with an optional media file and prepends the result to f.
func (a *App) Publish(ctx context.Context, f composer.Feed, content, mediaPath string) (*models.Post, error) {
	c := composer.New(a.client, f)
	defer c.Close()

	c.SetContent(content)
	if mediaPath != "" {
		if _, err := c.Attach(mediaPath); err != nil {
			return nil, err
		}
	}
	return c.Submit(ctx)
}

// Like toggles the like on post id.
func (a *App) Like(ctx context.Context, id uint) error {
	page, err := a.LoadFeed(ctx)
	if err != nil {
		return err
	}
	it, err := page.ByID(id)
	if err != nil {
		return err
	}
	if err := it.ToggleLike(ctx); err != nil {
		return err
	}
	a.ShowItem(page, it)
	return nil
}

// Comment adds text as a comment on post id.
func (a *App) Comment(ctx context.Context, id uint, text string) error {
	page, err := a.LoadFeed(ctx)
	if err != nil {
		return err
	}
	it, err := page.ByID(id)
	if err != nil {
		return err
	}
	it.SetDraft(text)
	if _, err := it.SubmitComment(ctx); err != nil {
		return err
	}
	if !it.ShowComments() {
		it.ToggleComments()
	}
	a.ShowItem(page, it)
	return nil
}

// Post publishes a new post and prints it.
func (a *App) Post(ctx context.Context, content, mediaPath string) error {
	f := feed.NewFeed(a.client, a.sess, a)
	post, err := a.Publish(ctx, f, content, mediaPath)
	if err != nil {
		return err
	}
	if a.structured() {
		return views.Encode(a.out, a.cfg.OutputFormat, post)
	}
	a.render.Post(1, interaction.New(post, a.client, a.sess))
	return nil
}

// Report prints err the way a form shows an inline error.
func (a *App) Report(err error) {
	if api.IsCanceled(err) {
		a.render.Notice("Canceled")
		return
	}
	a.render.FormError(err)
}
