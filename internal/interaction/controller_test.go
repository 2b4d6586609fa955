package interaction

import (
	"context"
	"errors"
	"testing"

	"socialfeed/internal/models"
	"socialfeed/internal/session"
	"socialfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CurrentUser(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockGateway) ToggleLike(ctx context.Context, postID uint) (bool, error) {
	args := m.Called(ctx, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGateway) AddComment(ctx context.Context, postID uint, content string) (*models.Comment, error) {
	args := m.Called(ctx, postID, content)
	c, _ := args.Get(0).(*models.Comment)
	return c, args.Error(1)
}

func sessionFor(t *testing.T, user *models.User) *session.Session {
	t.Helper()
	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.SignIn(context.Background(), "token"))
	sess.SetCurrentUser(user)
	return sess
}

func TestNew_InitialisesFromLikes(t *testing.T) {
	fx := testutil.NewFixtures(1)
	alice := fx.User()
	post := fx.Post(alice, testutil.LikedBy(alice.ID, alice.ID+100))

	c := New(post, &mockGateway{}, sessionFor(t, alice))
	assert.True(t, c.IsLiked())
	assert.Equal(t, 2, c.LikesCount())
	assert.True(t, c.LikeEnabled())

	anon := New(post, &mockGateway{}, session.New(session.NewMemoryStore()))
	assert.False(t, anon.IsLiked())
}

func TestToggleLike_ConfirmedIncrement(t *testing.T) {
	user := &models.User{ID: 7, Username: "seven"}
	post := &models.Post{ID: 42, Likes: []models.Like{}}
	gw := &mockGateway{}
	gw.On("ToggleLike", mock.Anything, uint(42)).Return(true, nil).Once()

	c := New(post, gw, sessionFor(t, user))
	require.False(t, c.IsLiked())
	require.NoError(t, c.ToggleLike(context.Background()))

	assert.True(t, c.IsLiked())
	assert.Equal(t, 1, c.LikesCount())
	assert.True(t, post.LikedBy(7))
	gw.AssertExpectations(t)
}

func TestToggleLike_ResolvesUserForTokenOnlySession(t *testing.T) {
	post := &models.Post{ID: 42, Likes: []models.Like{}}
	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.SignIn(context.Background(), "token"))

	gw := &mockGateway{}
	gw.On("CurrentUser", mock.Anything).Return(&models.User{ID: 7, Username: "seven"}, nil).Once()
	gw.On("ToggleLike", mock.Anything, uint(42)).Return(true, nil).Once()

	c := New(post, gw, sess)
	require.NoError(t, c.ToggleLike(context.Background()))

	assert.Equal(t, 1, c.LikesCount())
	assert.Len(t, post.Likes, 1)
	assert.True(t, post.LikedBy(7))
	assert.Equal(t, uint(7), sess.CurrentUserID())

	rebuilt := New(post, gw, sess)
	assert.True(t, rebuilt.IsLiked())
	assert.Equal(t, c.LikesCount(), rebuilt.LikesCount())
	gw.AssertExpectations(t)
}

func TestToggleLike_UnresolvedUserSendsNothing(t *testing.T) {
	post := &models.Post{ID: 42, Likes: []models.Like{}}
	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.SignIn(context.Background(), "token"))

	gw := &mockGateway{}
	gw.On("CurrentUser", mock.Anything).Return(nil, models.NewNetworkError(errors.New("offline"))).Once()

	c := New(post, gw, sess)
	err := c.ToggleLike(context.Background())
	assert.True(t, models.IsNetworkError(err))

	assert.Zero(t, c.LikesCount())
	assert.False(t, c.IsLiked())
	assert.Empty(t, post.Likes)
	assert.True(t, c.LikeEnabled())
	gw.AssertNotCalled(t, "ToggleLike", mock.Anything, mock.Anything)
}

func TestToggleLike_TwiceRestores(t *testing.T) {
	fx := testutil.NewFixtures(2)
	alice := fx.User()
	post := fx.Post(alice, testutil.LikedBy(alice.ID+1))
	gw := &mockGateway{}
	gw.On("ToggleLike", mock.Anything, post.ID).Return(true, nil).Once()
	gw.On("ToggleLike", mock.Anything, post.ID).Return(false, nil).Once()

	c := New(post, gw, sessionFor(t, alice))
	ctx := context.Background()
	wasLiked, wasCount := c.IsLiked(), c.LikesCount()

	require.NoError(t, c.ToggleLike(ctx))
	assert.Equal(t, wasCount+1, c.LikesCount())
	require.NoError(t, c.ToggleLike(ctx))

	assert.Equal(t, wasLiked, c.IsLiked())
	assert.Equal(t, wasCount, c.LikesCount())
	assert.Len(t, post.Likes, 1)
	gw.AssertExpectations(t)
}

func TestToggleLike_NeverBelowZero(t *testing.T) {
	user := &models.User{ID: 3}
	post := &models.Post{ID: 1}
	gw := &mockGateway{}
	gw.On("ToggleLike", mock.Anything, uint(1)).Return(false, nil)

	c := New(post, gw, sessionFor(t, user))
	require.NoError(t, c.ToggleLike(context.Background()))
	assert.Equal(t, 0, c.LikesCount())
	assert.False(t, c.IsLiked())
}

func TestToggleLike_FailureChangesNothing(t *testing.T) {
	user := &models.User{ID: 7}
	post := &models.Post{ID: 5}
	gw := &mockGateway{}
	gw.On("ToggleLike", mock.Anything, uint(5)).Return(false, models.NewServerError("boom", nil))

	c := New(post, gw, sessionFor(t, user))
	err := c.ToggleLike(context.Background())
	require.Error(t, err)
	assert.False(t, c.IsLiked())
	assert.Equal(t, 0, c.LikesCount())
	assert.Empty(t, post.Likes)
	assert.True(t, c.LikeEnabled())
}

func TestToggleLike_WithoutToken(t *testing.T) {
	gw := &mockGateway{}
	c := New(&models.Post{ID: 1}, gw, session.New(session.NewMemoryStore()))

	err := c.ToggleLike(context.Background())
	assert.True(t, models.IsAuthError(err))
	gw.AssertNotCalled(t, "ToggleLike", mock.Anything, mock.Anything)
}

func TestToggleLike_InFlight(t *testing.T) {
	user := &models.User{ID: 7}
	post := &models.Post{ID: 9}
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &mockGateway{}
	gw.On("ToggleLike", mock.Anything, uint(9)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(true, nil).Once()

	c := New(post, gw, sessionFor(t, user))
	done := make(chan error, 1)
	go func() { done <- c.ToggleLike(context.Background()) }()

	<-started
	assert.False(t, c.LikeEnabled())
	assert.ErrorIs(t, c.ToggleLike(context.Background()), models.ErrInFlight)
	close(release)

	require.NoError(t, <-done)
	assert.True(t, c.LikeEnabled())
	assert.Equal(t, 1, c.LikesCount())
	gw.AssertExpectations(t)
}

func TestSubmitComment_BlankNeverSent(t *testing.T) {
	post := &models.Post{ID: 1}
	gw := &mockGateway{}
	c := New(post, gw, sessionFor(t, &models.User{ID: 1}))

	for _, draft := range []string{"", "   ", "\n\t"} {
		c.SetDraft(draft)
		assert.False(t, c.CommentEnabled())
		_, err := c.SubmitComment(context.Background())
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	}
	assert.Empty(t, post.Comments)
	gw.AssertNotCalled(t, "AddComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitComment_AppendsAndClears(t *testing.T) {
	fx := testutil.NewFixtures(3)
	alice := fx.User()
	post := fx.Post(alice)
	post.Comments = []*models.Comment{fx.Comment(alice)}
	reply := fx.Comment(alice)
	gw := &mockGateway{}
	gw.On("AddComment", mock.Anything, post.ID, "nice post").Return(reply, nil).Once()

	c := New(post, gw, sessionFor(t, alice))
	c.SetDraft("nice post")
	got, err := c.SubmitComment(context.Background())
	require.NoError(t, err)

	assert.Same(t, reply, got)
	assert.Empty(t, c.Draft())
	require.Len(t, post.Comments, 2)
	assert.Same(t, reply, post.Comments[1])
	assert.Equal(t, post.Comments, c.Comments())
	gw.AssertExpectations(t)
}

func TestSubmitComment_FailureKeepsDraft(t *testing.T) {
	post := &models.Post{ID: 1}
	gw := &mockGateway{}
	gw.On("AddComment", mock.Anything, uint(1), "hello").
		Return(nil, models.NewNetworkError(errors.New("dial tcp: refused")))

	c := New(post, gw, sessionFor(t, &models.User{ID: 1}))
	c.SetDraft("hello")
	_, err := c.SubmitComment(context.Background())
	assert.True(t, models.IsNetworkError(err))
	assert.Equal(t, "hello", c.Draft())
	assert.Empty(t, post.Comments)
}

func TestSubmitComment_WithoutToken(t *testing.T) {
	gw := &mockGateway{}
	c := New(&models.Post{ID: 1}, gw, session.New(session.NewMemoryStore()))
	c.SetDraft("hi")

	_, err := c.SubmitComment(context.Background())
	assert.True(t, models.IsAuthError(err))
	assert.Equal(t, "hi", c.Draft())
	gw.AssertNotCalled(t, "AddComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleComments(t *testing.T) {
	c := New(&models.Post{}, &mockGateway{}, session.New(session.NewMemoryStore()))
	assert.False(t, c.ShowComments())
	assert.True(t, c.ToggleComments())
	assert.True(t, c.ShowComments())
	assert.False(t, c.ToggleComments())
}
