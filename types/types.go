package types

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// videoIDPattern is the shape of a YouTube video identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsVideoID reports whether id has the 11-character video identifier shape.
func IsVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// BlockSet is an append-only set of video identifiers.
// It is not safe for concurrent use; owners guard it themselves.
type BlockSet struct {
	ids map[string]struct{}
}

// NewBlockSet creates a set holding the well-formed ids among the given ones.
func NewBlockSet(ids ...string) *BlockSet {
	s := &BlockSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. It returns false for duplicates and malformed ids.
func (s *BlockSet) Add(id string) bool {
	if !IsVideoID(id) {
		return false
	}
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is blocked.
func (s *BlockSet) Has(id string) bool {
	if s == nil || id == "" {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of blocked ids.
func (s *BlockSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the blocked ids in sorted order.
func (s *BlockSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s *BlockSet) Clone() *BlockSet {
	c := &BlockSet{ids: make(map[string]struct{}, s.Len())}
	if s != nil {
		for id := range s.ids {
			c.ids[id] = struct{}{}
		}
	}
	return c
}

// BlockedChannel identifies the channel that owns the tracked playlist.
// Either field may be empty when the playlist page did not reveal it.
type BlockedChannel struct {
	ID     string `json:"id,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// IsZero reports whether neither the id nor the handle is known.
func (c BlockedChannel) IsZero() bool {
	return c.ID == "" && c.Handle == ""
}

// Merge fills empty fields from other. Known fields are never replaced.
func (c BlockedChannel) Merge(other BlockedChannel) BlockedChannel {
	if c.ID == "" {
		c.ID = other.ID
	}
	if c.Handle == "" {
		c.Handle = other.Handle
	}
	return c
}

// MatchesHref reports whether a channel link href points at this channel.
func (c BlockedChannel) MatchesHref(href string) bool {
	if href == "" {
		return false
	}
	if c.ID != "" && strings.Contains(href, "/channel/"+c.ID) {
		return true
	}
	return c.Handle != "" && strings.Contains(href, c.Handle)
}

// Blocklist is the read-only view the scanner works from.
type Blocklist struct {
	PlaylistID string
	Videos     *BlockSet
	Channel    BlockedChannel
}

// Empty reports whether there is nothing to suppress.
func (b Blocklist) Empty() bool {
	return b.Videos.Len() == 0 && b.Channel.IsZero()
}

// HasVideo reports whether the video id is blocked.
func (b Blocklist) HasVideo(id string) bool {
	return b.Videos.Has(id)
}

// Resolution is the outcome of one playlist page fetch.
type Resolution struct {
	PlaylistID    string    `json:"playlist_id"`
	VideoIDs      []string  `json:"video_ids"`
	ChannelID     string    `json:"channel_id,omitempty"`
	ChannelHandle string    `json:"channel_handle,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Channel returns the channel part of the resolution.
func (r Resolution) Channel() BlockedChannel {
	return BlockedChannel{ID: r.ChannelID, Handle: r.ChannelHandle}
}
