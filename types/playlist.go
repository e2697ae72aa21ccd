package types

// PlaylistItem is a minimal playlist entry.
type PlaylistItem struct {
	VideoID string
	Index   int
}

// Items converts the resolution's ids into ordered playlist items.
func (r Resolution) Items() []PlaylistItem {
	items := make([]PlaylistItem, 0, len(r.VideoIDs))
	for i, id := range r.VideoIDs {
		items = append(items, PlaylistItem{VideoID: id, Index: i + 1})
	}
	return items
}
