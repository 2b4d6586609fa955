package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_LikesSetIsIdempotent(t *testing.T) {
	p := &Post{ID: 1}

	p.AddLike(7)
	p.AddLike(7)
	p.AddLike(9)
	assert.Len(t, p.Likes, 2)
	assert.True(t, p.LikedBy(7))

	p.RemoveLike(7)
	assert.False(t, p.LikedBy(7))
	assert.True(t, p.LikedBy(9))
	assert.Len(t, p.Likes, 1)

	p.AddLike(0)
	assert.Len(t, p.Likes, 1, "anonymous users never enter the likes set")
}

func TestPost_MediaType(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want MediaType
	}{
		{"no media", Post{}, MediaNone},
		{"legacy image_url", Post{ImageURL: "/uploads/a.png"}, MediaImage},
		{"explicit video", Post{MediaURL: "/uploads/a.mp4", Media: MediaVideo}, MediaVideo},
		{"explicit none with url", Post{ImageURL: "/uploads/a.png", Media: MediaNone}, MediaImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.post.MediaType())
		})
	}
}

func TestPost_DecodeBackendPayload(t *testing.T) {
	payload := `{
		"id": 3,
		"author": {"id": 7, "username": "alice", "profile_picture": null},
		"content": "hello",
		"image_url": "/uploads/x.png",
		"likes": [{"user_id": 7}, {"user_id": 8}],
		"comments": [
			{"id": 1, "author": {"username": "bob"}, "content": "hi", "createdAt": "2025-01-02T03:04:05Z"},
			{"id": 2, "author": {"username": "carol"}, "content": "yo", "created_at": "2025-01-02T03:05:00.123456"}
		],
		"created_at": "2025-01-02T03:00:00"
	}`

	var p Post
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, uint(3), p.ID)
	assert.Equal(t, "alice", p.Author.Username)
	assert.Equal(t, MediaImage, p.MediaType())
	assert.True(t, p.LikedBy(8))
	require.Len(t, p.Comments, 2)
	assert.Equal(t, "bob", p.Comments[0].Author.Username)
	assert.Equal(t, 2025, p.Comments[0].CreatedAt.Year())
	assert.Equal(t, 5, p.Comments[1].CreatedAt.Minute())
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "username taken", UserMessage(NewValidationError("username taken")))
	assert.Contains(t, UserMessage(NewNetworkError(errors.New("dial tcp: refused"))), "Network error")
	assert.Contains(t, UserMessage(ErrInFlight), "previous request")
	assert.Equal(t, "Something went wrong", UserMessage(errors.New("boom")))
}

func TestErrorCode_ThroughWrapping(t *testing.T) {
	err := errors.Join(errors.New("context"), NewAuthError("Could not validate credentials"))
	assert.True(t, IsAuthError(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, CodeAuth, ErrorCode(err))
}

func TestUser_RefOnValue(t *testing.T) {
	users := map[string]User{"alice": {ID: 4, Username: "alice", Email: "a@example.com", ProfilePictureURL: "/uploads/a.png"}}
	ref := users["alice"].Ref()
	assert.Equal(t, UserRef{ID: 4, Username: "alice", ProfilePictureURL: "/uploads/a.png"}, ref)
}
