package playlist

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/types"
)

var (
	videoIDRe       = regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`)
	channelIDRe     = regexp.MustCompile(`"channelId":"([^"]+)"`)
	channelHandleRe = regexp.MustCompile(`"ownerBadges"[\s\S]*?"canonicalBaseUrl":"/(@[^"]+)"`)
	playlistIDRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{10,64}$`)
)

// playlistPrefixes are the id prefixes accepted without a URL around them.
var playlistPrefixes = []string{"PL", "UU", "OLAK5uy_", "FL", "RD", "LL"}

// ExtractVideoIDs returns the distinct video ids embedded in a playlist page,
// in the order they first appear.
func ExtractVideoIDs(body []byte) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range videoIDRe.FindAllSubmatch(body, -1) {
		id := string(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ExtractChannelID returns the first embedded channel id.
func ExtractChannelID(body []byte) (string, error) {
	m := channelIDRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("%w: channelId", errs.ErrPatternMiss)
	}
	return string(m[1]), nil
}

// ExtractChannelHandle returns the owner's "@handle" from the first owner
// badge block followed by a canonical base URL.
func ExtractChannelHandle(body []byte) (string, error) {
	m := channelHandleRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("%w: channel handle", errs.ErrPatternMiss)
	}
	return string(m[1]), nil
}

// Extract runs every extractor over a playlist page. Missing patterns are
// reported in misses and leave the matching field empty.
func Extract(playlistID string, body []byte) (res types.Resolution, misses []error) {
	res.PlaylistID = playlistID
	res.VideoIDs = ExtractVideoIDs(body)
	if len(res.VideoIDs) == 0 {
		misses = append(misses, fmt.Errorf("%w: videoId", errs.ErrPatternMiss))
	}
	if id, err := ExtractChannelID(body); err == nil {
		res.ChannelID = id
	} else {
		misses = append(misses, err)
	}
	if handle, err := ExtractChannelHandle(body); err == nil {
		res.ChannelHandle = handle
	} else {
		misses = append(misses, err)
	}
	return res, misses
}

// ParseID accepts a raw playlist id or any URL carrying a list parameter.
func ParseID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", errs.ErrInvalidPlaylist)
	}
	for _, p := range playlistPrefixes {
		if strings.HasPrefix(input, p) && playlistIDRe.MatchString(input) {
			return input, nil
		}
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidPlaylist, err)
	}
	id := u.Query().Get("list")
	if id == "" || !playlistIDRe.MatchString(id) {
		return "", fmt.Errorf("%w: no list parameter in %q", errs.ErrInvalidPlaylist, input)
	}
	return id, nil
}

// VideoIDFromHref extracts a video id from a watch ("v=") or shorts link.
// It returns "" when the href names no video.
func VideoIDFromHref(href string) string {
	if id := queryValue(href, "v"); id != "" {
		return id
	}
	if _, rest, ok := strings.Cut(href, "/shorts/"); ok {
		if i := strings.IndexAny(rest, "/?#"); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}
	return ""
}

// ListIDFromHref returns the "list" query parameter of href.
func ListIDFromHref(href string) string {
	return queryValue(href, "list")
}

// queryValue finds "[?&]name=value" in href without requiring href to be a
// well-formed URL; the value runs to the next "&" (or "#").
func queryValue(href, name string) string {
	key := name + "="
	for i := 0; i < len(href); i++ {
		if href[i] != '?' && href[i] != '&' {
			continue
		}
		if !strings.HasPrefix(href[i+1:], key) {
			continue
		}
		v := href[i+1+len(key):]
		if j := strings.IndexAny(v, "&#"); j >= 0 {
			v = v[:j]
		}
		if v != "" {
			return v
		}
	}
	return ""
}
