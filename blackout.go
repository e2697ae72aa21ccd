package blackout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"sync"
	"time"

	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/internal/config"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/pkg/client"
	"github.com/ytget/blackout/session"
	"github.com/ytget/blackout/types"
	"github.com/ytget/blackout/youtube/page"
	"github.com/ytget/blackout/youtube/playlist"
	"github.com/ytget/blackout/youtube/scanner"
	"github.com/ytget/blackout/youtube/title"
)

// Options holds the settings populated by the chainable setters.
type Options struct {
	PlaylistID          string
	BaseURL             string
	HTTPClient          *http.Client
	Client              *client.Client
	Rewriter            title.Rewriter
	RescanDelay         time.Duration
	NavigateRescanDelay time.Duration
}

// Blackout hides the videos of one playlist on YouTube pages.
//
// Setters must be called before the first Resolve, Session or Filter call;
// later changes are ignored.
type Blackout struct {
	options  Options
	parseErr error

	once     sync.Once
	resolver *playlist.Resolver
	session  *session.Session
}

// startPprofServer starts a pprof server for debugging
func startPprofServer() {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		log := logger.WithComponent(logger.ComponentApp)
		log.Info("Starting pprof server", map[string]interface{}{"addr": ":6060"})
		if err := http.ListenAndServe(":6060", mux); err != nil {
			log.Error("pprof server error", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// New creates a Blackout tracking config.DefaultPlaylistID.
func New() *Blackout {
	if os.Getenv("BLACKOUT_PPROF") == "1" {
		startPprofServer()
	}
	return &Blackout{options: Options{PlaylistID: config.DefaultPlaylistID}}
}

// WithPlaylist sets the tracked playlist from a raw id or a playlist URL.
func (b *Blackout) WithPlaylist(idOrURL string) *Blackout {
	id, err := playlist.ParseID(idOrURL)
	b.parseErr = err
	if err == nil {
		b.options.PlaylistID = id
	}
	return b
}

// WithHTTPClient sets a custom HTTP client for playlist fetches.
func (b *Blackout) WithHTTPClient(c *http.Client) *Blackout {
	b.options.HTTPClient = c
	return b
}

// WithClient sets a preconfigured retrying client. It wins over WithHTTPClient.
func (b *Blackout) WithClient(c *client.Client) *Blackout {
	b.options.Client = c
	return b
}

// WithBaseURL points playlist fetches at another YouTube front end.
func (b *Blackout) WithBaseURL(base string) *Blackout {
	b.options.BaseURL = base
	return b
}

// WithRewriter replaces the built-in title rewrite rule.
func (b *Blackout) WithRewriter(rw title.Rewriter) *Blackout {
	b.options.Rewriter = rw
	return b
}

// WithRescanDelays sets the waits before the extra scans that follow a
// fetch and a navigation. Zero keeps the default.
func (b *Blackout) WithRescanDelays(afterFetch, afterNavigate time.Duration) *Blackout {
	b.options.RescanDelay = afterFetch
	b.options.NavigateRescanDelay = afterNavigate
	return b
}

// PlaylistID returns the tracked playlist.
func (b *Blackout) PlaylistID() string { return b.options.PlaylistID }

// Err returns the error from the last WithPlaylist call, if any.
func (b *Blackout) Err() error { return b.parseErr }

func (b *Blackout) init() {
	b.once.Do(func() {
		c := b.options.Client
		if c == nil {
			c = client.New()
			if b.options.HTTPClient != nil {
				c.HTTPClient = b.options.HTTPClient
			}
		}
		b.resolver = playlist.New(c).WithBaseURL(b.options.BaseURL)
		b.session = session.New(b.resolver, session.Config{
			PlaylistID:          b.options.PlaylistID,
			Rewriter:            b.options.Rewriter,
			RescanDelay:         b.options.RescanDelay,
			NavigateRescanDelay: b.options.NavigateRescanDelay,
		})
	})
}

// Session returns the long-lived session. The caller runs it with Run.
// Check Err first: a session built after a bad WithPlaylist tracks the
// previous playlist.
func (b *Blackout) Session() *session.Session {
	if b.parseErr != nil {
		logger.WithComponent(logger.ComponentApp).Error("Session tracks the previous playlist", map[string]interface{}{
			"playlist_id": b.options.PlaylistID,
			"error":       b.parseErr.Error(),
		})
	}
	b.init()
	return b.session
}

// Resolve fetches the playlist and merges it into the session blocklist.
func (b *Blackout) Resolve(ctx context.Context) (types.Resolution, error) {
	if b.parseErr != nil {
		return types.Resolution{}, b.parseErr
	}
	b.init()
	res, err := b.resolver.Resolve(ctx, b.options.PlaylistID)
	if err != nil {
		return types.Resolution{}, err
	}
	b.session.Merge(res)
	return res, nil
}

// Filter parses one HTML page served at pageURL, suppresses every blocked
// element and writes the result to w. The playlist is resolved first when
// nothing is known yet; a failed fetch leaves the page untouched.
func (b *Blackout) Filter(ctx context.Context, pageURL string, r io.Reader, w io.Writer) (scanner.Report, error) {
	if b.parseErr != nil {
		return scanner.Report{}, b.parseErr
	}
	b.init()
	bl := b.session.Blocklist()
	if bl.Empty() {
		if _, err := b.Resolve(ctx); err != nil {
			if !errs.IsRecoverable(err) {
				return scanner.Report{}, err
			}
			logger.WithComponent(logger.ComponentApp).Warn("Filtering without a blocklist", map[string]interface{}{
				"error": err.Error(),
			})
		}
		bl = b.session.Blocklist()
	}

	p, err := page.Parse(pageURL, r)
	if err != nil {
		return scanner.Report{}, err
	}
	sc := scanner.New(b.options.PlaylistID, b.options.Rewriter)
	report := sc.Scan(p, bl)
	sc.Reset()

	if err := p.Render(w); err != nil {
		return report, fmt.Errorf("render page: %w", err)
	}
	return report, nil
}

// IsNotHTML reports whether err means the input was not an HTML document.
func IsNotHTML(err error) bool {
	return errors.Is(err, errs.ErrNotHTML)
}
