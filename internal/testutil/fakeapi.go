// Package testutil provides an in-process backend double and fixtures for
// client tests.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"socialfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	user models.User
	hash []byte
}

type failure struct {
	status int
	detail string
}

// FakeAPI serves the backend routes from memory on a loopback port.
type FakeAPI struct {
	URL string

	app    *fiber.App
	secret []byte

	mu          sync.Mutex
	accounts    map[string]*account
	posts       []*models.Post // newest first
	nextUserID  uint
	nextPostID  uint
	nextComment uint
	hits        map[string]int
	failures    map[string]failure
	uploads     map[string]int64
	authHeaders []string
}

// NewFakeAPI starts a FakeAPI that is shut down when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		secret:      []byte("fake-backend-secret"),
		accounts:    make(map[string]*account),
		nextUserID:  1,
		nextPostID:  1,
		nextComment: 1,
		hits:        make(map[string]int),
		failures:    make(map[string]failure),
		uploads:     make(map[string]int64),
	}

	f.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	f.app.Use(f.track)
	f.app.Post("/register", f.register)
	f.app.Post("/login", f.login)
	f.app.Get("/users/me", f.requireAuth, f.me)
	f.app.Get("/users/:username", f.profile)
	f.app.Get("/posts", f.requireAuth, f.listPosts)
	f.app.Post("/posts", f.requireAuth, f.createPost)
	f.app.Post("/posts/:id/like", f.requireAuth, f.toggleLike)
	f.app.Post("/posts/:id/comments", f.requireAuth, f.addComment)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = f.app.Listener(ln) }()
	t.Cleanup(func() { _ = f.app.Shutdown() })

	f.URL = "http://" + ln.Addr().String()
	return f
}

// Hits returns how many times method and path were requested, e.g. "GET /posts".
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// TotalHits returns the number of requests served.
func (f *FakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

// AuthHeaders returns the Authorization headers seen, in request order.
func (f *FakeAPI) AuthHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHeaders...)
}

// FailNext makes the next request to method and path answer with status and
// a {"detail": detail} body.
func (f *FakeAPI) FailNext(method, path string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, detail: detail}
}

// AddUser registers an account directly and returns it.
func (f *FakeAPI) AddUser(username, password string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, err := f.createAccount(username, username+"@example.com", password, nil, "")
	if err != nil {
		panic(err)
	}
	return acc.user
}

// AddPost stores a post by author as the newest item and returns it.
func (f *FakeAPI) AddPost(author models.User, content string) *models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Post{
		ID:        f.nextPostID,
		Author:    author.Ref(),
		Content:   content,
		Media:     models.MediaNone,
		Likes:     []models.Like{},
		Comments:  []*models.Comment{},
		CreatedAt: models.NewTimestamp(time.Now().UTC()),
	}
	f.nextPostID++
	f.posts = append([]*models.Post{p}, f.posts...)
	return clonePost(p)
}

// Post returns a copy of the stored post.
func (f *FakeAPI) Post(id uint) (*models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findPost(id)
	if p == nil {
		return nil, false
	}
	return clonePost(p), true
}

// Uploads returns the stored upload names with their sizes.
func (f *FakeAPI) Uploads() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.uploads))
	for k, v := range f.uploads {
		out[k] = v
	}
	return out
}

// IssueToken signs a token for username the way the backend does.
func (f *FakeAPI) IssueToken(username string) string {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(30 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		panic(err)
	}
	return token
}

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

func (f *FakeAPI) createAccount(username, email, password string, age *int, picture string) (*account, error) {
	if _, ok := f.accounts[username]; ok {
		return nil, errors.New("Username already registered")
	}
	for _, acc := range f.accounts {
		if acc.user.Email == email {
			return nil, errors.New("Email already registered")
		}
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	acc := &account{
		user: models.User{
			ID:                f.nextUserID,
			Username:          username,
			Email:             email,
			Age:               age,
			ProfilePictureURL: picture,
			CreatedAt:         models.NewTimestamp(time.Now().UTC()),
		},
		hash: hash,
	}
	f.nextUserID++
	f.accounts[username] = acc
	return acc, nil
}

func (f *FakeAPI) findPost(id uint) *models.Post {
	for _, p := range f.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Likes = append([]models.Like{}, p.Likes...)
	cp.Comments = make([]*models.Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		cc := *c
		cp.Comments = append(cp.Comments, &cc)
	}
	return &cp
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

func (f *FakeAPI) track(c *fiber.Ctx) error {
	route := c.Method() + " " + c.Path()

	f.mu.Lock()
	f.hits[route]++
	f.authHeaders = append(f.authHeaders, c.Get(fiber.HeaderAuthorization))
	fail, ok := f.failures[route]
	if ok {
		delete(f.failures, route)
	}
	f.mu.Unlock()

	if ok {
		return detail(c, fail.status, fail.detail)
	}
	return c.Next()
}

func (f *FakeAPI) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return detail(c, fiber.StatusUnauthorized, "Not authenticated")
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return f.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}

	f.mu.Lock()
	acc, ok := f.accounts[sub]
	f.mu.Unlock()
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}
	c.Locals("user", acc.user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) models.User {
	u, _ := c.Locals("user").(models.User)
	return u
}

func (f *FakeAPI) register(c *fiber.Ctx) error {
	username := c.FormValue("username")
	email := c.FormValue("email")
	password := c.FormValue("password")

	var missing []fiber.Map
	for name, v := range map[string]string{"username": username, "email": email, "password": password} {
		if v == "" {
			missing = append(missing, fiber.Map{"loc": []string{"body", name}, "msg": "Field required"})
		}
	}
	var age *int
	if raw := c.FormValue("age"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			missing = append(missing, fiber.Map{"loc": []string{"body", "age"}, "msg": "Input should be a valid integer"})
		} else {
			age = &n
		}
	}
	if len(missing) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": missing})
	}

	picture := ""
	if fh, err := c.FormFile("profile_picture"); err == nil && fh.Filename != "" {
		name := uuid.NewString() + filepath.Ext(fh.Filename)
		f.mu.Lock()
		f.uploads[name] = fh.Size
		f.mu.Unlock()
		picture = "/uploads/" + name
	}

	f.mu.Lock()
	acc, err := f.createAccount(username, email, password, age, picture)
	f.mu.Unlock()
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(acc.user)
}

func (f *FakeAPI) login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}

	f.mu.Lock()
	acc, ok := f.accounts[req.Username]
	f.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, prehash(req.Password)) != nil {
		return detail(c, fiber.StatusUnauthorized, "Incorrect username or password")
	}
	return c.JSON(models.Token{AccessToken: f.IssueToken(acc.user.Username), TokenType: "bearer"})
}

func (f *FakeAPI) me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

func (f *FakeAPI) profile(c *fiber.Ctx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc, ok := f.accounts[c.Params("username")]
	if !ok {
		return detail(c, fiber.StatusNotFound, "User not found")
	}
	profile := models.UserProfile{User: acc.user, Posts: []*models.Post{}}
	for _, p := range f.posts {
		if p.Author.ID == acc.user.ID {
			profile.Posts = append(profile.Posts, clonePost(p))
		}
	}
	return c.JSON(profile)
}

func (f *FakeAPI) listPosts(c *fiber.Ctx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, clonePost(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return c.JSON(out)
}

func (f *FakeAPI) createPost(c *fiber.Ctx) error {
	content := strings.TrimSpace(c.FormValue("content"))
	post := &models.Post{
		Author:    currentUser(c).Ref(),
		Content:   content,
		Media:     models.MediaNone,
		Likes:     []models.Like{},
		Comments:  []*models.Comment{},
		CreatedAt: models.NewTimestamp(time.Now().UTC()),
	}

	if fh, err := c.FormFile("image"); err == nil && fh.Filename != "" {
		name := uuid.NewString() + filepath.Ext(fh.Filename)
		post.ImageURL = "/uploads/" + name
		post.Media = models.MediaImage
		if strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "video/") {
			post.Media = models.MediaVideo
		}
		f.mu.Lock()
		f.uploads[name] = fh.Size
		f.mu.Unlock()
	}
	if post.Content == "" && post.ImageURL == "" {
		return detail(c, fiber.StatusBadRequest, "Post must have content or media")
	}

	f.mu.Lock()
	post.ID = f.nextPostID
	f.nextPostID++
	f.posts = append([]*models.Post{post}, f.posts...)
	out := clonePost(post)
	f.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(out)
}

func (f *FakeAPI) postParam(c *fiber.Ctx) (*models.Post, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, detail(c, fiber.StatusNotFound, "Post not found")
	}
	p := f.findPost(uint(id))
	if p == nil {
		return nil, detail(c, fiber.StatusNotFound, "Post not found")
	}
	return p, nil
}

func (f *FakeAPI) toggleLike(c *fiber.Ctx) error {
	uid := currentUser(c).ID

	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.postParam(c)
	if p == nil {
		return err
	}
	liked := !p.LikedBy(uid)
	if liked {
		p.AddLike(uid)
	} else {
		p.RemoveLike(uid)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

func (f *FakeAPI) addComment(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return detail(c, fiber.StatusBadRequest, "Comment cannot be empty")
	}
	author := currentUser(c).Ref()

	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.postParam(c)
	if p == nil {
		return err
	}
	comment := &models.Comment{
		ID:        f.nextComment,
		Author:    author,
		Content:   req.Content,
		CreatedAt: models.NewTimestamp(time.Now().UTC()),
	}
	f.nextComment++
	p.Comments = append(p.Comments, comment)
	cc := *comment
	return c.Status(fiber.StatusCreated).JSON(cc)
}

// String describes the fake for test failure output.
func (f *FakeAPI) String() string {
	return fmt.Sprintf("FakeAPI(%s)", f.URL)
}
