// Package playlist resolves a YouTube playlist into the set of video ids and
// the owning channel that should be blacked out.
//
// The playlist listing page is fetched once and treated as opaque text: ids
// are pulled out of the embedded initial data with regular expressions, the
// same way the page is served to browsers.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/pkg/client"
	"github.com/ytget/blackout/types"
)

const defaultBaseURL = "https://www.youtube.com"

// Resolver fetches playlist pages. Concurrent Resolve calls for the same
// playlist share one fetch.
type Resolver struct {
	client   *client.Client
	baseURL  string
	group    singleflight.Group
	inflight atomic.Int32
	now      func() time.Time
}

// New creates a Resolver. A nil client uses client.New().
func New(c *client.Client) *Resolver {
	if c == nil {
		c = client.New()
	}
	return &Resolver{client: c, baseURL: defaultBaseURL, now: time.Now}
}

// WithBaseURL points the resolver at another YouTube front end.
func (r *Resolver) WithBaseURL(base string) *Resolver {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	r.baseURL = base
	return r
}

// BaseURL returns the front end the resolver fetches from.
func (r *Resolver) BaseURL() string { return r.baseURL }

// PlaylistURL returns the listing page URL for playlistID.
func (r *Resolver) PlaylistURL(playlistID string) string {
	return r.baseURL + "/playlist?list=" + url.QueryEscape(playlistID)
}

// InFlight reports whether a fetch is currently running.
func (r *Resolver) InFlight() bool { return r.inflight.Load() > 0 }

// Resolve fetches the playlist page and extracts the blocked ids and channel.
// Transport and read failures wrap errs.ErrNetworkFailure; missing patterns
// are logged and leave the matching fields empty.
func (r *Resolver) Resolve(ctx context.Context, playlistID string) (types.Resolution, error) {
	if strings.TrimSpace(playlistID) == "" {
		return types.Resolution{}, fmt.Errorf("%w: empty playlist id", errs.ErrInvalidPlaylist)
	}

	ch := r.group.DoChan(playlistID, func() (interface{}, error) {
		r.inflight.Add(1)
		defer r.inflight.Add(-1)
		// The shared fetch outlives any single caller's cancellation.
		return r.fetch(context.WithoutCancel(ctx), playlistID)
	})

	select {
	case <-ctx.Done():
		return types.Resolution{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return types.Resolution{}, res.Err
		}
		return res.Val.(types.Resolution), nil
	}
}

func (r *Resolver) fetch(ctx context.Context, playlistID string) (types.Resolution, error) {
	log := logger.WithComponent(logger.ComponentResolver)
	pageURL := r.PlaylistURL(playlistID)
	log.Info("Fetching playlist data", map[string]interface{}{"url": pageURL})

	resp, err := r.client.Fetch(ctx, pageURL)
	if err != nil {
		return types.Resolution{}, fmt.Errorf("%w: %v", errs.ErrNetworkFailure, err)
	}

	res, misses := Extract(playlistID, resp.Body)
	res.FetchedAt = r.now()
	for _, miss := range misses {
		if errors.Is(miss, errs.ErrPatternMiss) {
			log.Debug("Pattern not found", map[string]interface{}{"detail": miss.Error()})
		}
	}
	if res.ChannelID != "" {
		log.Info("Found channel ID", map[string]interface{}{"channel_id": res.ChannelID})
	}
	if res.ChannelHandle != "" {
		log.Info("Found channel handle", map[string]interface{}{"channel_handle": res.ChannelHandle})
	}
	log.Info("Loaded unique video IDs to block", map[string]interface{}{"count": len(res.VideoIDs)})
	return res, nil
}
