package models

import "encoding/json"

// MediaType classifies the media attached to a post.
type MediaType string

const (
	MediaNone  MediaType = "none"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Like records one user's like on a post.
type Like struct {
	UserID uint `json:"user_id" yaml:"user_id"`
}

// Post represents a post in the feed. Controllers share *Post values so that
// the feed and the per-post state never diverge.
type Post struct {
	ID        uint       `json:"id" yaml:"id"`
	Author    UserRef    `json:"author" yaml:"author"`
	Content   string     `json:"content" yaml:"content"`
	ImageURL  string     `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	MediaURL  string     `json:"mediaUrl,omitempty" yaml:"media_url,omitempty"`
	Media     MediaType  `json:"mediaType,omitempty" yaml:"media_type,omitempty"`
	Likes     []Like     `json:"likes" yaml:"likes"`
	Comments  []*Comment `json:"comments" yaml:"comments"`
	CreatedAt Timestamp  `json:"created_at" yaml:"created_at"`
}

// MediaLocation returns the URL of the attached media, if any.
func (p *Post) MediaLocation() string {
	if p.MediaURL != "" {
		return p.MediaURL
	}
	return p.ImageURL
}

// MediaType reports the kind of attached media. A bare image_url counts as an image.
func (p *Post) MediaType() MediaType {
	if p.Media != "" && p.Media != MediaNone {
		return p.Media
	}
	if p.MediaLocation() != "" {
		return MediaImage
	}
	return MediaNone
}

// LikedBy reports whether userID is in the post's likes set.
func (p *Post) LikedBy(userID uint) bool {
	if userID == 0 {
		return false
	}
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// AddLike inserts userID into the likes set; it is a no-op when already present.
func (p *Post) AddLike(userID uint) {
	if userID == 0 || p.LikedBy(userID) {
		return
	}
	p.Likes = append(p.Likes, Like{UserID: userID})
}

// RemoveLike drops every entry for userID from the likes set.
func (p *Post) RemoveLike(userID uint) {
	out := p.Likes[:0]
	for _, l := range p.Likes {
		if l.UserID != userID {
			out = append(out, l)
		}
	}
	p.Likes = out
}

// Comment is a single entry of a post's append-only comment thread.
type Comment struct {
	ID        uint      `json:"id" yaml:"id"`
	Author    UserRef   `json:"author" yaml:"author"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
}

// UnmarshalJSON accepts both created_at and createdAt timestamps.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	var aux struct {
		plain
		CamelCreatedAt *Timestamp `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Comment(aux.plain)
	if c.CreatedAt.IsZero() && aux.CamelCreatedAt != nil {
		c.CreatedAt = *aux.CamelCreatedAt
	}
	return nil
}
