package services

import (
	"sync/atomic"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// IndexHandle holds the published vector index.
// Readers take the current index once per request, so a rebuild publishing a
// new index never exposes a partially built one.
type IndexHandle struct {
	current atomic.Pointer[publishedIndex]
}

type publishedIndex struct {
	index driven.VectorIndex
}

// NewIndexHandle creates a handle with no published index.
func NewIndexHandle() *IndexHandle {
	return &IndexHandle{}
}

// Current returns the published index, or nil when none is published.
func (h *IndexHandle) Current() driven.VectorIndex {
	p := h.current.Load()
	if p == nil {
		return nil
	}
	return p.index
}

// Publish swaps in idx and returns the previously published index.
func (h *IndexHandle) Publish(idx driven.VectorIndex) driven.VectorIndex {
	prev := h.current.Swap(&publishedIndex{index: idx})
	if prev == nil {
		return nil
	}
	return prev.index
}

// Stats summarises the published index.
func (h *IndexHandle) Stats() domain.IndexStats {
	idx := h.Current()
	if idx == nil {
		return domain.NotInitializedStats()
	}
	return idx.Stats()
}
