package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ytget/blackout"
	"github.com/ytget/blackout/internal/config"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/internal/proxy"
	"github.com/ytget/blackout/internal/script"
	"github.com/ytget/blackout/internal/watch"
	"github.com/ytget/blackout/pkg/client"
	"github.com/ytget/blackout/youtube/title"
)

type flags struct {
	config          string
	playlist        string
	timeout         time.Duration
	retries         int
	ua              string
	proxy           string
	script          string
	engine          string
	listen          string
	output          string
	pageURL         string
	refreshInterval time.Duration
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "Config file (YAML)")
	flag.StringVar(&f.playlist, "playlist", "", "Playlist URL or ID to black out")
	flag.DurationVar(&f.timeout, "http-timeout", 30*time.Second, "HTTP timeout (e.g., 30s, 1m)")
	flag.IntVar(&f.retries, "retries", 3, "HTTP retries for transient errors")
	flag.StringVar(&f.ua, "ua", "", "Override User-Agent header")
	flag.StringVar(&f.proxy, "proxy", "", "Proxy URL (http/https/socks)")
	flag.StringVar(&f.script, "script", "", "JavaScript title rule file defining rewriteTitle(title)")
	flag.StringVar(&f.engine, "engine", "goja", "Script engine: goja or otto")
	flag.StringVar(&f.listen, "listen", "127.0.0.1:8080", "Listen address for serve")
	flag.StringVar(&f.output, "output", "", "Output file for filter and watch (filter defaults to stdout)")
	flag.StringVar(&f.pageURL, "url", "https://www.youtube.com/", "URL the HTML file was served from")
	flag.DurationVar(&f.refreshInterval, "refresh-interval", 0, "Re-resolve the playlist periodically in serve and watch (0 disables)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] resolve|filter <file>|serve|watch <file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	flag.Parse()
	args := trimArgs(flag.Args())
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	applyFlags(&cfg, &f, setFlags())
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	l, err := logger.CreateLoggerFromConfig(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log configuration: %v\n", err)
		os.Exit(2)
	}
	logger.SetGlobalLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f.pageURL, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setFlags returns the names of flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}

// applyFlags lets explicit flags win over the config file and environment.
func applyFlags(cfg *config.Config, f *flags, set map[string]bool) {
	if set["playlist"] {
		cfg.PlaylistID = f.playlist
	}
	if set["http-timeout"] {
		cfg.Timeout = f.timeout
	}
	if set["retries"] {
		cfg.Retries = f.retries
	}
	if set["ua"] {
		cfg.UserAgent = f.ua
	}
	if set["proxy"] {
		cfg.Proxy = f.proxy
	}
	if set["script"] {
		cfg.Script = f.script
	}
	if set["engine"] {
		cfg.ScriptEngine = f.engine
	}
	if set["listen"] {
		cfg.Listen = f.listen
	}
	if set["output"] {
		cfg.Output = f.output
	}
	if set["refresh-interval"] {
		cfg.RefreshInterval = f.refreshInterval
	}
}

func run(ctx context.Context, cfg config.Config, pageURL string, args []string) error {
	c := client.NewWith(cfg.ClientConfig())
	bo, err := build(cfg, c)
	if err != nil {
		return err
	}

	switch cmd := args[0]; cmd {
	case "resolve":
		return runResolve(ctx, bo, os.Stdout)
	case "filter":
		if len(args) < 2 {
			return errors.New("filter needs an input file (or - for stdin)")
		}
		return runFilter(ctx, bo, cfg.Output, pageURL, args[1])
	case "serve":
		return runServe(ctx, bo, cfg, c)
	case "watch":
		if len(args) < 2 {
			return errors.New("watch needs an input file")
		}
		return runWatch(ctx, bo, cfg, pageURL, args[1])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func build(cfg config.Config, c *client.Client) (*blackout.Blackout, error) {
	sc := cfg.SessionConfig()
	bo := blackout.New().
		WithPlaylist(sc.PlaylistID).
		WithClient(c).
		WithBaseURL(cfg.BaseURL).
		WithRescanDelays(sc.RescanDelay, sc.NavigateRescanDelay)
	if err := bo.Err(); err != nil {
		return nil, err
	}

	if cfg.Script != "" {
		engine, err := script.ParseEngine(cfg.ScriptEngine)
		if err != nil {
			return nil, err
		}
		rw, err := script.Load(cfg.Script, engine)
		if err != nil {
			return nil, err
		}
		bo = bo.WithRewriter(title.Rewriter(rw))
	}
	return bo, nil
}

func runResolve(ctx context.Context, bo *blackout.Blackout, w io.Writer) error {
	res, err := bo.Resolve(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Playlist: %s\n", res.PlaylistID)
	if res.ChannelID != "" {
		_, _ = fmt.Fprintf(w, "Channel ID: %s\n", res.ChannelID)
	}
	if res.ChannelHandle != "" {
		_, _ = fmt.Fprintf(w, "Channel handle: %s\n", res.ChannelHandle)
	}
	_, _ = fmt.Fprintf(w, "Loaded %d unique video IDs to block\n", len(res.VideoIDs))
	for _, item := range res.Items() {
		_, _ = fmt.Fprintf(w, "%3d  https://www.youtube.com/watch?v=%s\n", item.Index, item.VideoID)
	}
	return nil
}

func runFilter(ctx context.Context, bo *blackout.Blackout, output, pageURL, input string) error {
	var in io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	report, err := bo.Filter(ctx, pageURL, in, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Suppressed %d elements, rewrote %d titles\n", report.Suppressed(), report.Retitled())
	return nil
}

func runServe(ctx context.Context, bo *blackout.Blackout, cfg config.Config, c *client.Client) error {
	sess := bo.Session()
	srv := proxy.NewServer(cfg.Listen, bo, c, cfg.BaseURL)
	if err := srv.Start(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(sess.Run(ctx)) })
	g.Go(func() error {
		<-ctx.Done()
		return srv.Stop()
	})
	g.Go(func() error { return refreshLoop(ctx, bo, cfg.RefreshInterval) })
	return g.Wait()
}

func runWatch(ctx context.Context, bo *blackout.Blackout, cfg config.Config, pageURL, input string) error {
	sess := bo.Session()
	w, err := watch.New(sess, input, cfg.Output, pageURL)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(sess.Run(ctx)) })
	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return refreshLoop(ctx, bo, cfg.RefreshInterval) })
	return g.Wait()
}

// refreshLoop triggers a resolution now and then every interval.
func refreshLoop(ctx context.Context, bo *blackout.Blackout, interval time.Duration) error {
	sess := bo.Session()
	sess.Refresh(ctx)
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sess.Refresh(ctx)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// trimArgs drops empty arguments left by shell quoting.
func trimArgs(args []string) []string {
	out := args[:0]
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
