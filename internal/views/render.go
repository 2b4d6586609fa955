package views

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"socialfeed/internal/models"

	"gopkg.in/yaml.v3"
)

// EmptyFeedText is shown when a feed has no posts.
const EmptyFeedText = "No posts yet. Be the first to post!"

// PostState is the view model of one post item.
type PostState interface {
	Post() *models.Post
	IsLiked() bool
	LikesCount() int
	ShowComments() bool
}

// Renderer writes screens as plain text.
type Renderer struct {
	w     io.Writer
	asset func(string) string
	now   func() time.Time
}

// NewRenderer creates a Renderer writing to w. asset resolves server-relative
// media paths; nil leaves them as they are.
func NewRenderer(w io.Writer, asset func(string) string) *Renderer {
	if asset == nil {
		asset = func(s string) string { return s }
	}
	return &Renderer{w: w, asset: asset, now: time.Now}
}

// Post renders one item. index is the 1-based position used by shell commands.
func (r *Renderer) Post(index int, s PostState) {
	p := s.Post()
	heart := "♡"
	if s.IsLiked() {
		heart = "♥"
	}

	fmt.Fprintf(r.w, "[%d] @%s · %s\n", index, p.Author.Username, r.ago(p.CreatedAt.Time))
	if p.Content != "" {
		for _, line := range strings.Split(p.Content, "\n") {
			fmt.Fprintf(r.w, "    %s\n", line)
		}
	}
	if loc := p.MediaLocation(); loc != "" {
		fmt.Fprintf(r.w, "    <%s> %s\n", p.MediaType(), r.asset(loc))
	}
	fmt.Fprintf(r.w, "    %s %d   💬 %d\n", heart, s.LikesCount(), len(p.Comments))

	if s.ShowComments() {
		if len(p.Comments) == 0 {
			fmt.Fprintln(r.w, "      (no comments)")
		}
		for _, c := range p.Comments {
			fmt.Fprintf(r.w, "      @%s: %s\n", c.Author.Username, c.Content)
		}
	}
}

// Feed renders a list of posts or the empty state.
func (r *Renderer) Feed(items []PostState) {
	if len(items) == 0 {
		fmt.Fprintln(r.w, EmptyFeedText)
		return
	}
	for i, s := range items {
		if i > 0 {
			fmt.Fprintln(r.w)
		}
		r.Post(i+1, s)
	}
}

// Profile renders a user header followed by their posts.
func (r *Renderer) Profile(user *models.User, items []PostState) {
	if user != nil {
		fmt.Fprintf(r.w, "@%s\n", user.Username)
		if user.Age != nil {
			fmt.Fprintf(r.w, "Age: %d\n", *user.Age)
		}
		if user.ProfilePictureURL != "" {
			fmt.Fprintf(r.w, "Picture: %s\n", r.asset(user.ProfilePictureURL))
		}
		fmt.Fprintln(r.w, strings.Repeat("─", 32))
	}
	r.Feed(items)
}

// User renders the signed-in account.
func (r *Renderer) User(u *models.User) {
	fmt.Fprintf(r.w, "Signed in as @%s", u.Username)
	if u.Email != "" {
		fmt.Fprintf(r.w, " <%s>", u.Email)
	}
	fmt.Fprintln(r.w)
}

// FormError renders an inline form failure. nil renders nothing.
func (r *Renderer) FormError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(r.w, "Error: %s\n", models.UserMessage(err))
}

// Notice renders a one-line status message.
func (r *Renderer) Notice(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *Renderer) ago(t time.Time) string {
	if t.IsZero() {
		return "just now"
	}
	d := r.now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

// Encode writes v as "json" or "yaml".
func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
