package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"socialfeed/internal/media"
	"socialfeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Age      *int
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Token, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	var tok models.Token
	err = c.do(ctx, call{
		op:          "login",
		method:      http.MethodPost,
		path:        "/login",
		body:        body,
		contentType: "application/json",
		fallback:    "Login failed",
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, models.NewServerError("Login response did not include a token", nil)
	}
	return &tok, nil
}

// Register creates an account. picture may be nil.
func (c *Client) Register(ctx context.Context, in RegisterInput, picture *media.Attachment) (*models.User, error) {
	form := newForm()
	form.field("username", in.Username)
	form.field("email", in.Email)
	form.field("password", in.Password)
	if in.Age != nil {
		form.field("age", strconv.Itoa(*in.Age))
	}
	if picture != nil {
		form.file("profile_picture", picture)
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, err
	}

	var user models.User
	err = c.do(ctx, call{
		op:          "register",
		method:      http.MethodPost,
		path:        "/register",
		body:        body,
		contentType: contentType,
		fallback:    "Registration failed",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser fetches the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	err := c.do(ctx, call{
		op:       "current_user",
		method:   http.MethodGet,
		path:     "/users/me",
		fallback: "Could not load your account",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Posts fetches the global feed in server order (most recent first).
func (c *Client) Posts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := c.do(ctx, call{
		op:       "list_posts",
		method:   http.MethodGet,
		path:     "/posts",
		fallback: "Failed to load posts",
	}, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Profile fetches a user's public profile with their posts.
func (c *Client) Profile(ctx context.Context, username string) (*models.UserProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, models.NewValidationError("Username is required")
	}
	var profile models.UserProfile
	err := c.do(ctx, call{
		op:       "profile",
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(username),
		fallback: "Failed to load profile",
	}, &profile)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("User not found")
		}
		return nil, err
	}
	return &profile, nil
}

// CreatePost publishes content with optional media.
func (c *Client) CreatePost(ctx context.Context, content string, attachment *media.Attachment) (*models.Post, error) {
	form := newForm()
	if content != "" {
		form.field("content", content)
	}
	if attachment != nil {
		form.file("image", attachment)
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, err
	}

	var post models.Post
	err = c.do(ctx, call{
		op:          "create_post",
		method:      http.MethodPost,
		path:        "/posts",
		body:        body,
		contentType: contentType,
		fallback:    "Failed to create post",
	}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ToggleLike flips the signed-in user's like and returns the resulting state.
func (c *Client) ToggleLike(ctx context.Context, postID uint) (bool, error) {
	var out struct {
		Liked bool `json:"liked"`
	}
	err := c.do(ctx, call{
		op:       "toggle_like",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/posts/%d/like", postID),
		fallback: "Failed to toggle like",
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Liked, nil
}

// AddComment appends a comment and returns it as stored by the server.
func (c *Client) AddComment(ctx context.Context, postID uint, content string) (*models.Comment, error) {
	body, err := jsonBody(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	err = c.do(ctx, call{
		op:          "add_comment",
		method:      http.MethodPost,
		path:        fmt.Sprintf("/posts/%d/comments", postID),
		body:        body,
		contentType: "application/json",
		fallback:    "Failed to add comment",
	}, &comment)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// TokenSubject reads the sub claim of a JWT without verifying it. It is for
// display only; the backend remains the authority on validity.
func TokenSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	return claims.GetSubject()
}

// form buffers a multipart body. The first error sticks and is reported by finish.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *form) file(name string, a *media.Attachment) {
	if f.err != nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(a.Name())))
	h.Set("Content-Type", a.ContentType())

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	r, err := a.Reader()
	if err != nil {
		f.err = err
		return
	}
	defer r.Close()
	_, f.err = io.Copy(part, r)
}

func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("build multipart body: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("build multipart body: %w", err)
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
