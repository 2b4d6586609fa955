// Package models contains data structures for the client's domain models.
package models

// UserRef is the author summary embedded in posts and comments.
type UserRef struct {
	ID                uint   `json:"id" yaml:"id"`
	Username          string `json:"username" yaml:"username"`
	ProfilePictureURL string `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
}

// User is the client's read-only copy of a backend user.
type User struct {
	ID                uint      `json:"id" yaml:"id"`
	Username          string    `json:"username" yaml:"username"`
	Email             string    `json:"email,omitempty" yaml:"email,omitempty"`
	Age               *int      `json:"age,omitempty" yaml:"age,omitempty"`
	ProfilePictureURL string    `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
	CreatedAt         Timestamp `json:"created_at" yaml:"created_at"`
}

// Ref returns the author summary for u.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, ProfilePictureURL: u.ProfilePictureURL}
}

// UserProfile is a user together with the posts shown on their profile.
type UserProfile struct {
	User
	Posts []*Post `json:"posts" yaml:"posts"`
}

// Token is the credential returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
