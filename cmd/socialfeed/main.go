// Command socialfeed is a terminal client for the social-feed backend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"socialfeed/internal/app"
	"socialfeed/internal/authflow"
	"socialfeed/internal/config"
	"socialfeed/internal/models"
)

const usage = `Usage: socialfeed [flags] <command> [args]

Commands:
  login <username> [password]     sign in (password read from stdin when omitted)
  register [-age n] [-picture path] <username> <email> <password>
  logout                          forget the stored token
  whoami                          show the signed-in account
  feed                            list the global feed
  profile <username>              show a user's posts
  post [-media path] <text...>    publish a post
  like <post-id>                  toggle your like on a post
  comment <post-id> <text...>     comment on a post
  shell                           interactive session

Flags:`

func main() {
	apiURL := flag.String("api", "", "backend URL (overrides API_URL)")
	output := flag.String("output", "", "output format: text, json or yaml (overrides OUTPUT_FORMAT)")
	ephemeral := flag.Bool("ephemeral", false, "keep the session in memory only")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *apiURL != "" {
		cfg.APIURL = strings.TrimRight(*apiURL, "/")
	}
	if *output != "" {
		cfg.OutputFormat = strings.ToLower(*output)
	}
	if *ephemeral {
		cfg.SessionBackend = config.SessionBackendMemory
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	err = dispatch(ctx, a, flag.Arg(0), flag.Args()[1:])

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := a.Close(shutdownCtx); cerr != nil {
		log.Printf("Shutdown error: %v", cerr)
	}

	if err != nil {
		a.Report(err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "login":
		return login(ctx, a, args)
	case "register":
		return register(ctx, a, args)
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "feed":
		page, err := a.LoadFeed(ctx)
		if err != nil {
			return err
		}
		return a.Show(page)
	case "profile":
		if len(args) != 1 {
			return models.NewValidationError("Usage: socialfeed profile <username>")
		}
		page, err := a.LoadProfile(ctx, args[0])
		if err != nil {
			return err
		}
		return a.Show(page)
	case "post":
		fs := flag.NewFlagSet("post", flag.ContinueOnError)
		mediaPath := fs.String("media", "", "image or video to attach")
		if err := fs.Parse(args); err != nil {
			return models.NewValidationError(err.Error())
		}
		return a.Post(ctx, strings.Join(fs.Args(), " "), *mediaPath)
	case "like":
		if len(args) != 1 {
			return models.NewValidationError("Usage: socialfeed like <post-id>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return a.Like(ctx, id)
	case "comment":
		if len(args) < 2 {
			return models.NewValidationError("Usage: socialfeed comment <post-id> <text>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return a.Comment(ctx, id, strings.Join(args[1:], " "))
	case "shell":
		return a.Shell(ctx, os.Stdin)
	default:
		return models.NewValidationError(fmt.Sprintf("Unknown command %q", cmd))
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError(fmt.Sprintf("%q is not a post id", raw))
	}
	return uint(id), nil
}

func login(ctx context.Context, a *app.App, args []string) error {
	switch len(args) {
	case 2:
		return a.Login(ctx, args[0], args[1])
	case 1:
		password, err := readLine(os.Stdin, "Password: ")
		if err != nil {
			return err
		}
		return a.Login(ctx, args[0], password)
	default:
		return models.NewValidationError("Usage: socialfeed login <username> [password]")
	}
}

func register(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	age := fs.String("age", "", "age in years")
	picture := fs.String("picture", "", "profile picture image")
	if err := fs.Parse(args); err != nil {
		return models.NewValidationError(err.Error())
	}
	if fs.NArg() != 3 {
		return models.NewValidationError("Usage: socialfeed register [-age n] [-picture path] <username> <email> <password>")
	}
	return a.Register(ctx, authflow.RegisterFields{
		Username: fs.Arg(0),
		Email:    fs.Arg(1),
		Password: fs.Arg(2),
		Age:      *age,
	}, *picture)
}

func readLine(r io.Reader, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
