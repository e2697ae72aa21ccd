// Package session ties the resolver and the scanner to one live page.
//
// A Session runs a single event loop. Every page access, scan and title
// guard callback happens on that loop; other goroutines talk to it through
// NotifyChanged, Navigated, Attach, Detach and Mutate. Playlist fetches run
// in the background and only the blocklist snapshot is shared.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/internal/metrics"
	"github.com/ytget/blackout/types"
	"github.com/ytget/blackout/youtube/page"
	"github.com/ytget/blackout/youtube/playlist"
	"github.com/ytget/blackout/youtube/scanner"
	"github.com/ytget/blackout/youtube/title"
)

const (
	// DefaultRescanDelay is the wait before the extra scan that follows a
	// successful fetch.
	DefaultRescanDelay = 500 * time.Millisecond
	// DefaultNavigateRescanDelay is the wait before the extra scan that
	// follows a route change, for late-rendered elements.
	DefaultNavigateRescanDelay = 300 * time.Millisecond
)

// Config tunes a Session.
type Config struct {
	PlaylistID          string
	Rewriter            title.Rewriter
	RescanDelay         time.Duration
	NavigateRescanDelay time.Duration
}

// ScanFunc observes finished scans. It runs on the session loop.
type ScanFunc func(p *page.Page, r scanner.Report)

// Session owns the blocklist and the attached page.
type Session struct {
	cfg      Config
	resolver *playlist.Resolver
	scanner  *scanner.Scanner

	mu      sync.RWMutex
	videos  *types.BlockSet
	channel types.BlockedChannel
	onScan  []ScanFunc

	fetching atomic.Bool
	running  atomic.Bool
	changed  chan struct{}
	ops      chan func()
	done     chan struct{}

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}

	// loop only
	page *page.Page
}

// New creates a Session. A nil resolver uses playlist.New(nil).
func New(r *playlist.Resolver, cfg Config) *Session {
	if r == nil {
		r = playlist.New(nil)
	}
	if cfg.RescanDelay <= 0 {
		cfg.RescanDelay = DefaultRescanDelay
	}
	if cfg.NavigateRescanDelay <= 0 {
		cfg.NavigateRescanDelay = DefaultNavigateRescanDelay
	}
	return &Session{
		cfg:      cfg,
		resolver: r,
		scanner:  scanner.New(cfg.PlaylistID, cfg.Rewriter),
		videos:   types.NewBlockSet(),
		changed:  make(chan struct{}, 1),
		ops:      make(chan func()),
		done:     make(chan struct{}),
		timers:   make(map[*time.Timer]struct{}),
	}
}

// PlaylistID returns the tracked playlist.
func (s *Session) PlaylistID() string { return s.cfg.PlaylistID }

// Run processes events until ctx is done. The page is detached and the
// title guard released on return. Run may be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	log := logger.WithComponent(logger.ComponentSession)
	log.Debug("Session loop started", map[string]interface{}{"playlist_id": s.cfg.PlaylistID})
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Session loop stopped", map[string]interface{}{"reason": ctx.Err().Error()})
			return ctx.Err()
		case fn := <-s.ops:
			fn()
		case <-s.changed:
			s.scan()
		}
	}
}

func (s *Session) teardown() {
	s.timersMu.Lock()
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
	s.timersMu.Unlock()

	s.scanner.Reset()
	s.page = nil
	close(s.done)
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// do runs fn on the loop and waits for it.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.ops <- wrapped:
	case <-s.done:
		return errs.ErrSessionClosed
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return errs.ErrSessionClosed
	}
}

// NotifyChanged reports that the page content may have changed. Bursts
// collapse into a single pending scan.
func (s *Session) NotifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// after schedules a change notification.
func (s *Session) after(d time.Duration) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.timersMu.Lock()
		delete(s.timers, t)
		s.timersMu.Unlock()
		s.NotifyChanged()
	})
	s.timers[t] = struct{}{}
}

// Attach makes p the live page and schedules a scan. A previously attached
// page is detached first.
func (s *Session) Attach(p *page.Page) error {
	return s.do(func() {
		if s.page != nil && s.page != p {
			s.scanner.Reset()
		}
		s.page = p
		s.NotifyChanged()
	})
}

// Detach drops the live page and releases the title guard.
func (s *Session) Detach() error {
	return s.do(func() {
		s.scanner.Reset()
		s.page = nil
	})
}

// Mutate runs fn against the attached page on the loop, then schedules a
// scan. p is nil when no page is attached. fn must not call back into the
// session.
func (s *Session) Mutate(fn func(p *page.Page)) error {
	return s.do(func() {
		fn(s.page)
		s.NotifyChanged()
	})
}

// Navigated moves the attached page to rawURL, scans, and scans once more
// after the navigation delay.
func (s *Session) Navigated(rawURL string) error {
	var navErr error
	err := s.do(func() {
		if s.page == nil {
			return
		}
		if navErr = s.page.Navigate(rawURL); navErr != nil {
			return
		}
		s.NotifyChanged()
		s.after(s.cfg.NavigateRescanDelay)
	})
	if err != nil {
		return err
	}
	return navErr
}

// OnScan registers fn to run after every scan.
func (s *Session) OnScan(fn ScanFunc) {
	s.mu.Lock()
	s.onScan = append(s.onScan, fn)
	s.mu.Unlock()
}

// Blocklist returns a snapshot of what is currently blocked.
func (s *Session) Blocklist() types.Blocklist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Blocklist{
		PlaylistID: s.cfg.PlaylistID,
		Videos:     s.videos.Clone(),
		Channel:    s.channel,
	}
}

// Fetching reports whether a background resolution is running.
func (s *Session) Fetching() bool { return s.fetching.Load() }

// Refresh starts a background resolution. It returns false without doing
// anything while another one is in flight. Failures are logged and leave
// the blocklist as it was.
func (s *Session) Refresh(ctx context.Context) bool {
	if !s.fetching.CompareAndSwap(false, true) {
		logger.WithComponent(logger.ComponentSession).Debug("Fetch already in flight", nil)
		return false
	}
	go func() {
		defer s.fetching.Store(false)
		if err := s.resolve(ctx); err != nil {
			return
		}
		s.after(s.cfg.RescanDelay)
	}()
	return true
}

// ResolveNow resolves the playlist synchronously and schedules a scan.
func (s *Session) ResolveNow(ctx context.Context) error {
	return s.resolve(ctx)
}

func (s *Session) resolve(ctx context.Context) error {
	log := logger.WithComponent(logger.ComponentSession)
	start := time.Now()
	res, err := s.resolver.Resolve(ctx, s.cfg.PlaylistID)
	metrics.ObserveResolve(err, time.Since(start))
	if err != nil {
		log.Error("Error fetching playlist", map[string]interface{}{
			"playlist_id": s.cfg.PlaylistID,
			"error":       err.Error(),
		})
		return err
	}
	added := s.merge(res)
	log.Info("Blocklist updated", map[string]interface{}{
		"added":   added,
		"videos":  len(res.VideoIDs),
		"channel": res.ChannelID,
	})
	s.NotifyChanged()
	return nil
}

// Merge folds a resolution obtained elsewhere into the blocklist and
// schedules a scan. It returns the number of new video ids.
func (s *Session) Merge(res types.Resolution) int {
	added := s.merge(res)
	s.NotifyChanged()
	return added
}

// merge folds a resolution into the blocklist. Ids are only ever added and
// known channel fields are never replaced.
func (s *Session) merge(res types.Resolution) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, id := range res.VideoIDs {
		if s.videos.Add(id) {
			added++
		}
	}
	s.channel = s.channel.Merge(res.Channel())
	metrics.SetBlockedVideos(s.videos.Len())
	return added
}

func (s *Session) scan() {
	if s.page == nil {
		return
	}
	start := time.Now()
	r := s.scanner.Scan(s.page, s.Blocklist())
	metrics.ObserveScan(r, time.Since(start))

	s.mu.RLock()
	hooks := append([]ScanFunc(nil), s.onScan...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(s.page, r)
	}
}
