package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"socialfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type itemStub struct {
	post  *models.Post
	liked bool
	open  bool
}

func (s itemStub) Post() *models.Post { return s.post }
func (s itemStub) IsLiked() bool      { return s.liked }
func (s itemStub) LikesCount() int    { return len(s.post.Likes) }
func (s itemStub) ShowComments() bool { return s.open }

func fixedRenderer(buf *bytes.Buffer, now time.Time) *Renderer {
	r := NewRenderer(buf, func(p string) string { return "http://api" + p })
	r.now = func() time.Time { return now }
	return r
}

func TestFeed_EmptyState(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, nil).Feed(nil)
	assert.Equal(t, EmptyFeedText+"\n", buf.String())
}

func TestPost_RendersItem(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:        3,
		Author:    models.UserRef{ID: 1, Username: "alice"},
		Content:   "hello\nworld",
		ImageURL:  "/uploads/x.png",
		Likes:     []models.Like{{UserID: 2}, {UserID: 5}},
		Comments:  []*models.Comment{{Author: models.UserRef{Username: "bob"}, Content: "hi"}},
		CreatedAt: models.NewTimestamp(now.Add(-90 * time.Minute)),
	}

	var buf bytes.Buffer
	fixedRenderer(&buf, now).Post(1, itemStub{post: post, liked: true, open: true})
	out := buf.String()

	assert.Contains(t, out, "[1] @alice · 1h ago")
	assert.Contains(t, out, "    hello\n    world\n")
	assert.Contains(t, out, "<image> http://api/uploads/x.png")
	assert.Contains(t, out, "♥ 2")
	assert.Contains(t, out, "@bob: hi")
}

func TestAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := fixedRenderer(&bytes.Buffer{}, now)

	assert.Equal(t, "just now", r.ago(time.Time{}))
	assert.Equal(t, "just now", r.ago(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", r.ago(now.Add(-5*time.Minute)))
	assert.Equal(t, "3d ago", r.ago(now.Add(-72*time.Hour)))
	assert.Contains(t, r.ago(now.AddDate(0, -2, 0)), "2026")
}

func TestProfile_Header(t *testing.T) {
	age := 30
	var buf bytes.Buffer
	NewRenderer(&buf, nil).Profile(&models.User{Username: "alice", Age: &age}, nil)
	assert.Contains(t, buf.String(), "@alice\nAge: 30\n")
	assert.Contains(t, buf.String(), EmptyFeedText)
}

func TestFormError(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, nil)
	r.FormError(nil)
	assert.Empty(t, buf.String())

	r.FormError(models.NewValidationError("username taken"))
	assert.Equal(t, "Error: username taken\n", buf.String())

	buf.Reset()
	r.FormError(errors.New("raw"))
	assert.Equal(t, "Error: Something went wrong\n", buf.String())
}

func TestEncode(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	post := &models.Post{ID: 1, Content: "hi", CreatedAt: models.NewTimestamp(created)}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "json", post))
	var decoded models.Post
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "hi", decoded.Content)
	assert.True(t, created.Equal(decoded.CreatedAt.Time))

	buf.Reset()
	require.NoError(t, Encode(&buf, "YAML", post))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "hi", generic["content"])
	assert.Equal(t, "2026-01-02T03:04:05Z", generic["created_at"])

	assert.Error(t, Encode(&buf, "xml", post))
}

func TestHistory(t *testing.T) {
	h := &History{}
	assert.Equal(t, Route(""), h.Current())
	var nav Navigator = h
	nav.Navigate(context.Background(), RouteFeed)
	nav.Navigate(context.Background(), RouteLogin)
	assert.Equal(t, []Route{RouteFeed, RouteLogin}, h.Routes())
	assert.Equal(t, RouteLogin, h.Current())
}
