package engine

import (
	"github.com/yeomjw0907/catchdeal/internal/model"
)

// linkHistory is a bounded FIFO of extracted links. Once the cap is
// reached the oldest entry is evicted. Callers hold the engine mutex.
type linkHistory struct {
	limit int
	items []*model.ExtractedLink
}

func newLinkHistory(limit int) *linkHistory {
	if limit <= 0 {
		limit = 200
	}
	return &linkHistory{limit: limit}
}

func (h *linkHistory) add(link *model.ExtractedLink) {
	h.items = append(h.items, link)
	if len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
}

// snapshot returns value copies in insertion order so consumers can
// never mutate live records.
func (h *linkHistory) snapshot() []model.ExtractedLink {
	out := make([]model.ExtractedLink, len(h.items))
	for i, link := range h.items {
		out[i] = *link
	}
	return out
}
