package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"socialfeed/internal/authflow"
	"socialfeed/internal/interaction"
	"socialfeed/internal/models"
	"socialfeed/internal/views"
)

const shellHelp = `Commands:
  login <username> <password>
  register <username> <email> <password> [age] [--picture path]
  logout
  whoami
  feed | reload
  profile <username>
  like <n>
  comments <n>
  comment <n> <text>
  post <text> [--media path]
  help
  quit`

// Shell runs an interactive loop reading commands from in until quit or EOF.
// The loaded page survives across commands so likes and comments apply to
// what is on screen.
func (a *App) Shell(ctx context.Context, in io.Reader) error {
	s := &shell{app: a}
	scanner := bufio.NewScanner(in)

	if a.sess.HasToken(ctx) {
		s.run(ctx, "feed")
	} else {
		a.Navigate(ctx, views.RouteLogin)
	}

	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := s.run(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

type shell struct {
	app  *App
	page *Page
}

// run executes one line and reports whether the shell should exit.
func (s *shell) run(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		s.app.render.Notice(shellHelp)
	case "login":
		err = s.login(ctx, args)
	case "register":
		err = s.register(ctx, args)
	case "logout":
		s.page = nil
		err = s.app.Logout(ctx)
	case "whoami":
		err = s.app.WhoAmI(ctx)
	case "feed", "reload":
		err = s.load(ctx, "")
	case "profile":
		if len(args) != 1 {
			err = usage("profile <username>")
		} else {
			err = s.load(ctx, args[0])
		}
	case "like":
		err = s.like(ctx, args)
	case "comments":
		err = s.toggleComments(args)
	case "comment":
		err = s.comment(ctx, args)
	case "post":
		err = s.post(ctx, args)
	default:
		err = models.NewValidationError(fmt.Sprintf("Unknown command %q, type help", cmd))
	}
	if err != nil {
		s.app.Report(err)
	}
	return false
}

func usage(form string) error {
	return models.NewValidationError("Usage: " + form)
}

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("login <username> <password>")
	}
	if err := s.app.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	return s.load(ctx, "")
}

func (s *shell) register(ctx context.Context, args []string) error {
	args, picture := takeFlag(args, "--picture")
	if len(args) < 3 || len(args) > 4 {
		return usage("register <username> <email> <password> [age] [--picture path]")
	}
	fields := authflow.RegisterFields{Username: args[0], Email: args[1], Password: args[2]}
	if len(args) == 4 {
		fields.Age = args[3]
	}
	return s.app.Register(ctx, fields, picture)
}

func (s *shell) load(ctx context.Context, username string) error {
	var (
		page *Page
		err  error
	)
	if username == "" {
		page, err = s.app.LoadFeed(ctx)
	} else {
		page, err = s.app.LoadProfile(ctx, username)
	}
	if err != nil {
		return err
	}
	s.page = page
	return s.app.Show(page)
}

func (s *shell) item(args []string) (int, error) {
	if s.page == nil {
		return 0, models.NewValidationError("Nothing loaded, run feed first")
	}
	if len(args) == 0 {
		return 0, usage("<command> <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, models.NewValidationError(fmt.Sprintf("%q is not a post number", args[0]))
	}
	if _, err := s.page.Item(n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *shell) like(ctx context.Context, args []string) error {
	n, err := s.item(args)
	if err != nil {
		return err
	}
	it, _ := s.page.Item(n)
	if err := it.ToggleLike(ctx); err != nil {
		return err
	}
	s.app.render.Post(n, it)
	return nil
}

func (s *shell) toggleComments(args []string) error {
	n, err := s.item(args)
	if err != nil {
		return err
	}
	it, _ := s.page.Item(n)
	it.ToggleComments()
	s.app.render.Post(n, it)
	return nil
}

func (s *shell) comment(ctx context.Context, args []string) error {
	n, err := s.item(args)
	if err != nil {
		return err
	}
	it, _ := s.page.Item(n)
	it.SetDraft(strings.Join(args[1:], " "))
	if _, err := it.SubmitComment(ctx); err != nil {
		return err
	}
	if !it.ShowComments() {
		it.ToggleComments()
	}
	s.app.render.Post(n, it)
	return nil
}

func (s *shell) post(ctx context.Context, args []string) error {
	args, mediaPath := takeFlag(args, "--media")
	if s.page == nil || s.page.Feed.Username() != "" {
		if err := s.load(ctx, ""); err != nil {
			return err
		}
	}
	post, err := s.app.Publish(ctx, s.page.Feed, strings.Join(args, " "), mediaPath)
	if err != nil {
		return err
	}
	it, err := s.page.ByID(post.ID)
	if err != nil {
		it = interaction.New(post, s.app.client, s.app.sess)
		s.page.Items = append([]*interaction.Controller{it}, s.page.Items...)
	}
	s.app.render.Post(1, it)
	return nil
}

// takeFlag removes "name value" from args and returns the value.
func takeFlag(args []string, name string) ([]string, string) {
	out := make([]string, 0, len(args))
	value := ""
	for i := 0; i < len(args); i++ {
		if args[i] == name && i+1 < len(args) {
			value = args[i+1]
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out, value
}
