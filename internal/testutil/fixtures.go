package testutil

import (
	"time"

	"socialfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Fixtures builds deterministic domain values for tests.
type Fixtures struct {
	faker  *gofakeit.Faker
	nextID uint
}

// NewFixtures returns a Fixtures seeded with seed so runs are reproducible.
func NewFixtures(seed int64) *Fixtures {
	return &Fixtures{faker: gofakeit.New(seed), nextID: 1}
}

func (f *Fixtures) id() uint {
	id := f.nextID
	f.nextID++
	return id
}

// User returns a user with a fresh id.
func (f *Fixtures) User() *models.User {
	age := f.faker.Number(18, 80)
	return &models.User{
		ID:        f.id(),
		Username:  f.faker.Username(),
		Email:     f.faker.Email(),
		Age:       &age,
		CreatedAt: models.NewTimestamp(f.faker.PastDate().UTC()),
	}
}

// Post returns a text post by author, optionally customised by overrides.
func (f *Fixtures) Post(author *models.User, overrides ...func(*models.Post)) *models.Post {
	p := &models.Post{
		ID:        f.id(),
		Author:    author.Ref(),
		Content:   f.faker.Sentence(8),
		Media:     models.MediaNone,
		Likes:     []models.Like{},
		Comments:  []*models.Comment{},
		CreatedAt: models.NewTimestamp(f.faker.DateRange(time.Now().AddDate(0, -1, 0), time.Now()).UTC()),
	}
	for _, o := range overrides {
		o(p)
	}
	return p
}

// Posts returns n posts by author, newest first.
func (f *Fixtures) Posts(author *models.User, n int) []*models.Post {
	base := time.Now().UTC()
	out := make([]*models.Post, 0, n)
	for i := range n {
		out = append(out, f.Post(author, func(p *models.Post) {
			p.CreatedAt = models.NewTimestamp(base.Add(-time.Duration(i) * time.Minute))
		}))
	}
	return out
}

// Comment returns a comment by author.
func (f *Fixtures) Comment(author *models.User) *models.Comment {
	return &models.Comment{
		ID:        f.id(),
		Author:    author.Ref(),
		Content:   f.faker.Sentence(5),
		CreatedAt: models.NewTimestamp(time.Now().UTC()),
	}
}

// LikedBy marks a post as liked by the given user ids.
func LikedBy(ids ...uint) func(*models.Post) {
	return func(p *models.Post) {
		for _, id := range ids {
			p.AddLike(id)
		}
	}
}
