package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/plumekit/plume/internal/config"
	"github.com/plumekit/plume/internal/domain"
	"github.com/plumekit/plume/internal/feed"
	"github.com/plumekit/plume/internal/ipinfo"
	"github.com/plumekit/plume/internal/log"
	"github.com/plumekit/plume/internal/media"
	"github.com/plumekit/plume/internal/profile"
	"github.com/plumekit/plume/internal/search"
	"github.com/plumekit/plume/internal/store"
	"github.com/plumekit/plume/internal/supabase"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `plume — personal microblog client

Usage: plume <command> [args]

Reading:
  posts                     show the feed
  post <id>                 show one post with its comments
  search <query>            fuzzy-search posts and media
  media                     list media files

Visitors:
  like <id>                 toggle your like on a post
  comment <postID> -m TEXT [-a NAME] [-r PARENT]
  comments <postID>         list a post's comments

Admin (requires login):
  publish -m TEXT [-i URL,...]
  edit <id> -m TEXT [-i URL,...]
  rm <id>
  rmcomment <id>
  upload <file>
  rmmedia <name> [-f FOLDER]
  profile                   show the admin profile
  passwd                    change the admin password
  login / logout / reset
`

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("plume %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired services for command handlers.
type app struct {
	cfg      *config.Config
	store    *store.BlogStore
	feed     *feed.Service
	media    *media.Service
	profiles *profile.Service
	search   *search.Service
	logger   *slog.Logger
}

func run(args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting plume", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg)
	}

	client := supabase.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Bucket, logger)

	blogStore, err := store.NewBlogStore(config.CachePath(), cfg.Backend.URL)
	if err != nil {
		logger.Warn("cache unavailable, running without persistence", "error", err)
		blogStore, _ = store.NewBlogStore("", "")
	}
	defer blogStore.Close()

	a := &app{
		cfg:      cfg,
		store:    blogStore,
		feed:     feed.NewService(client, client, client, client, blogStore, cfg.Blog.AuthorProfileID, logger),
		media:    media.NewService(client, blogStore, logger),
		profiles: profile.NewService(client, blogStore, logger),
		logger:   logger,
	}
	a.search = search.NewService(a.feed, a.media, logger)

	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	ctx := context.Background()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "posts":
		return a.cmdPosts(ctx)
	case "post":
		return a.cmdPost(ctx, rest)
	case "publish":
		return a.cmdPublish(ctx, rest)
	case "edit":
		return a.cmdEdit(ctx, rest)
	case "rm":
		return a.cmdRemovePost(ctx, rest)
	case "like":
		return a.cmdLike(ctx, rest)
	case "comment":
		return a.cmdComment(ctx, rest)
	case "comments":
		return a.cmdComments(ctx, rest)
	case "rmcomment":
		return a.cmdRemoveComment(ctx, rest)
	case "media":
		return a.cmdMedia(ctx)
	case "upload":
		return a.cmdUpload(ctx, rest)
	case "rmmedia":
		return a.cmdRemoveMedia(ctx, rest)
	case "search":
		return a.cmdSearch(ctx, rest)
	case "login":
		return a.cmdLogin(ctx)
	case "logout":
		a.profiles.Logout()
		fmt.Println("Logged out.")
		return nil
	case "reset":
		a.profiles.Reset()
		fmt.Println("Local session, caches and likes cleared.")
		return nil
	case "profile":
		return a.cmdProfile(ctx)
	case "passwd":
		return a.cmdPasswd(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// runSetupFlow collects the backend settings on first run
func runSetupFlow(cfg *config.Config) error {
	fmt.Println()
	fmt.Println("Welcome to plume!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Backend project URL (e.g., https://xyz.supabase.co): ")
	rawURL, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read URL: %w", err)
	}
	cfg.Backend.URL = strings.TrimSpace(rawURL)

	fmt.Print("API key: ")
	rawKey, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	cfg.Backend.APIKey = strings.TrimSpace(rawKey)

	if !cfg.IsConfigured() {
		return fmt.Errorf("backend URL and API key are both required")
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println("Run plume again to use it.")
	return nil
}

// requireSession gates admin commands on a local login.
func (a *app) requireSession() (domain.Session, error) {
	sess, ok := a.profiles.Session()
	if !ok {
		return domain.Session{}, fmt.Errorf("not logged in; run `plume login` first")
	}
	return sess, nil
}

func parseID(args []string, what string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing %s id", what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, args[0])
	}
	return id, nil
}

// === Commands ===

func (a *app) cmdPosts(ctx context.Context) error {
	posts, err := a.feed.GetPosts(ctx)
	if err != nil {
		return err
	}
	renderFeed(os.Stdout, posts, a.store.LikedPosts())
	return nil
}

func (a *app) cmdPost(ctx context.Context, args []string) error {
	id, err := parseID(args, "post")
	if err != nil {
		return err
	}
	post, err := a.feed.GetPost(ctx, id)
	if err != nil {
		return err
	}
	renderPost(os.Stdout, *post, a.store.IsLiked(id))
	return nil
}

func (a *app) cmdPublish(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}

	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	text := fs.String("m", "", "post content")
	images := fs.String("i", "", "comma-separated image URLs")
	fs.Parse(args)

	if *text == "" {
		return fmt.Errorf("post content is required (-m)")
	}
	post, err := a.feed.CreatePost(ctx, *text, splitList(*images))
	if err != nil {
		return err
	}
	fmt.Printf("Published post %d.\n", post.ID)
	return nil
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}

	id, err := parseID(args, "post")
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	text := fs.String("m", "", "post content")
	images := fs.String("i", "", "comma-separated image URLs")
	fs.Parse(args[1:])

	if *text == "" {
		return fmt.Errorf("post content is required (-m)")
	}
	if _, err := a.feed.UpdatePost(ctx, id, *text, splitList(*images)); err != nil {
		return err
	}
	fmt.Printf("Updated post %d.\n", id)
	return nil
}

func (a *app) cmdRemovePost(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}

	id, err := parseID(args, "post")
	if err != nil {
		return err
	}
	if err := a.feed.DeletePost(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted post %d.\n", id)
	return nil
}

func (a *app) cmdLike(ctx context.Context, args []string) error {
	id, err := parseID(args, "post")
	if err != nil {
		return err
	}

	liked, err := a.feed.ToggleLike(ctx, id)
	if err != nil {
		return err
	}
	if liked {
		fmt.Printf("Liked post %d.\n", id)
	} else {
		fmt.Printf("Removed your like from post %d.\n", id)
	}
	return nil
}

func (a *app) cmdComment(ctx context.Context, args []string) error {
	postID, err := parseID(args, "post")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	text := fs.String("m", "", "comment text")
	author := fs.String("a", a.cfg.Blog.CommenterName, "author name")
	parent := fs.Int64("r", 0, "parent comment id for replies")
	fs.Parse(args[1:])

	if *text == "" {
		return fmt.Errorf("comment text is required (-m)")
	}
	var parentID *int64
	if *parent != 0 {
		parentID = parent
	}

	ip := ipinfo.NewResolver(a.logger).Lookup(ctx)

	comment, err := a.feed.CreateComment(ctx, postID, *text, *author, ip, parentID)
	if err != nil {
		return err
	}
	fmt.Printf("Comment %d added to post %d.\n", comment.ID, postID)
	return nil
}

func (a *app) cmdComments(ctx context.Context, args []string) error {
	postID, err := parseID(args, "post")
	if err != nil {
		return err
	}
	comments, err := a.feed.GetComments(ctx, postID)
	if err != nil {
		return err
	}
	renderComments(os.Stdout, comments)
	return nil
}

func (a *app) cmdRemoveComment(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}

	id, err := parseID(args, "comment")
	if err != nil {
		return err
	}
	if err := a.feed.DeleteComment(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Deleted comment %d and its replies.\n", id)
	return nil
}

func (a *app) cmdMedia(ctx context.Context) error {
	files, err := a.media.GetFiles(ctx)
	if err != nil {
		return err
	}
	renderMedia(os.Stdout, files)
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("missing file path")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(args[0]))
	url, err := a.media.Upload(ctx, filepath.Base(args[0]), contentType, f)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded: %s\n", url)
	return nil
}

func (a *app) cmdRemoveMedia(ctx context.Context, args []string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("missing file name")
	}

	fs := flag.NewFlagSet("rmmedia", flag.ExitOnError)
	folder := fs.String("f", "", "bucket folder")
	fs.Parse(args[1:])

	if err := a.media.Delete(ctx, args[0], *folder); err != nil {
		return err
	}
	fmt.Printf("Deleted %s.\n", args[0])
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing query")
	}

	results, err := a.search.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	renderResults(os.Stdout, results)
	return nil
}

func (a *app) cmdLogin(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Name: ")
	name, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}
	name = strings.TrimSpace(name)

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sess, err := a.profiles.Login(ctx, name, string(pw))
	if err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s.\n", sess.Name)
	return nil
}

func (a *app) cmdProfile(ctx context.Context) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	p, err := a.profiles.Get(ctx, sess.ProfileID)
	if err != nil {
		return err
	}
	renderProfile(os.Stdout, *p)
	return nil
}

func (a *app) cmdPasswd(ctx context.Context) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}

	fmt.Print("New password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	if err := a.profiles.UpdatePassword(ctx, sess.ProfileID, string(pw)); err != nil {
		return err
	}
	fmt.Println("Password updated.")
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
