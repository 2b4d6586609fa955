// Package authflow drives the login and registration forms.
package authflow

import (
	"context"
	"net/mail"
	"strconv"
	"strings"
	"sync"

	"socialfeed/internal/api"
	"socialfeed/internal/media"
	"socialfeed/internal/models"
	"socialfeed/internal/observability"
	"socialfeed/internal/session"
	"socialfeed/internal/views"
)

// State is the lifecycle of a form.
type State int

const (
	Idle State = iota
	Submitting
	Redirected
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Redirected:
		return "redirected"
	default:
		return "idle"
	}
}

// Gateway is the subset of the API client the forms need.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Register(ctx context.Context, in api.RegisterInput, picture *media.Attachment) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
}

// form carries the state shared by both forms.
type form struct {
	log *observability.ControllerLogger

	mu    sync.Mutex
	state State
	err   error
}

func (f *form) begin(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return models.ErrInFlight
	}
	f.log.LogTransition(ctx, f.state.String(), Submitting.String())
	f.state = Submitting
	f.err = nil
	return nil
}

func (f *form) finish(ctx context.Context, to State, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.LogTransition(ctx, f.state.String(), to.String())
	f.state = to
	f.err = err
}

func (f *form) reject(err error) error {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	return err
}

// State returns the form state.
func (f *form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the message-bearing error of the last attempt, or nil.
func (f *form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// CanSubmit reports whether the submit control is enabled.
func (f *form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != Submitting
}

// LoginForm exchanges credentials for a session.
type LoginForm struct {
	form
	gw   Gateway
	sess *session.Session
	nav  views.Navigator
}

// NewLogin creates a LoginForm.
func NewLogin(gw Gateway, sess *session.Session, nav views.Navigator) *LoginForm {
	return &LoginForm{
		form: form{log: observability.NewControllerLogger("login")},
		gw:   gw,
		sess: sess,
		nav:  nav,
	}
}

// Submit logs in. On success the token is stored, the current user resolved
// and the navigator sent to the feed.
func (f *LoginForm) Submit(ctx context.Context, username, password string) (err error) {
	defer func() { observability.RecordAction("login", "submit", err) }()

	if strings.TrimSpace(username) == "" || password == "" {
		return f.reject(models.NewValidationError("Username and password are required"))
	}
	if err := f.begin(ctx); err != nil {
		return err
	}

	tok, err := f.gw.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		f.log.LogFailure(ctx, "login", err)
		f.finish(ctx, Idle, err)
		return err
	}
	if err := f.sess.SignIn(ctx, tok.AccessToken); err != nil {
		f.log.LogFailure(ctx, "store_token", err)
		f.finish(ctx, Idle, err)
		return err
	}

	if user, err := f.gw.CurrentUser(ctx); err != nil {
		f.log.LogFailure(ctx, "current_user", err)
	} else {
		f.sess.SetCurrentUser(user)
	}

	f.finish(ctx, Redirected, nil)
	f.nav.Navigate(ctx, views.RouteFeed)
	return nil
}

// RegisterFields are the raw form inputs.
type RegisterFields struct {
	Username string
	Email    string
	Password string
	Age      string
}

// Validate checks the inputs locally and converts them for the API.
func (r RegisterFields) Validate() (api.RegisterInput, error) {
	in := api.RegisterInput{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	}

	var missing []string
	if in.Username == "" {
		missing = append(missing, "username")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return in, models.NewValidationError("Missing " + strings.Join(missing, ", "))
	}

	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return in, models.NewValidationError("Email address is not valid")
	}

	if age := strings.TrimSpace(r.Age); age != "" {
		n, err := strconv.Atoi(age)
		if err != nil || n < 0 {
			return in, models.NewValidationError("Age must be a whole number")
		}
		in.Age = &n
	}
	return in, nil
}

// RegisterForm creates an account, optionally with a profile picture.
type RegisterForm struct {
	form
	gw      Gateway
	nav     views.Navigator
	picture media.Slot
}

// NewRegister creates a RegisterForm.
func NewRegister(gw Gateway, nav views.Navigator) *RegisterForm {
	return &RegisterForm{
		form: form{log: observability.NewControllerLogger("register")},
		gw:   gw,
		nav:  nav,
	}
}

// SelectPicture opens path as the profile picture, replacing any previous one.
// Only images are accepted.
func (f *RegisterForm) SelectPicture(path string) error {
	if f.State() == Submitting {
		return models.ErrInFlight
	}
	a, err := media.Open(path)
	if err != nil {
		return err
	}
	if a.Kind() != models.MediaImage {
		_ = a.Release()
		return models.NewValidationError("Profile picture must be an image")
	}
	if f.State() == Submitting {
		_ = a.Release()
		return models.ErrInFlight
	}
	return f.picture.Replace(a)
}

// Picture returns the selected picture, or nil.
func (f *RegisterForm) Picture() *media.Attachment { return f.picture.Current() }

// ClearPicture drops the selected picture. The picture is held while a
// submission is uploading it.
func (f *RegisterForm) ClearPicture() error {
	if f.State() == Submitting {
		return models.ErrInFlight
	}
	return f.picture.Close()
}

// Submit registers the account. On success the picture is released and the
// navigator sent to the login screen.
func (f *RegisterForm) Submit(ctx context.Context, fields RegisterFields) (err error) {
	defer func() { observability.RecordAction("register", "submit", err) }()

	in, err := fields.Validate()
	if err != nil {
		return f.reject(err)
	}
	if err := f.begin(ctx); err != nil {
		return err
	}

	if _, err := f.gw.Register(ctx, in, f.picture.Current()); err != nil {
		f.log.LogFailure(ctx, "register", err)
		f.finish(ctx, Idle, err)
		return err
	}

	if err := f.picture.Close(); err != nil {
		f.log.LogFailure(ctx, "release_picture", err)
	}
	f.finish(ctx, Redirected, nil)
	f.nav.Navigate(ctx, views.RouteLogin)
	return nil
}

// Close releases the selected picture.
func (f *RegisterForm) Close() error { return f.picture.Close() }
