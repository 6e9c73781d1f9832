package document

import "sync/atomic"

// Handle is the live reference to an opened document. Release is safe to
// call from any number of teardown paths; only the first call reaches the
// source.
type Handle struct {
	Path      string
	PageCount int

	source   Source
	released atomic.Bool
}

// NewHandle wraps src, which must already be open.
func NewHandle(path string, src Source) *Handle {
	return &Handle{Path: path, PageCount: src.PageCount(), source: src}
}

// Source returns the underlying document source.
func (h *Handle) Source() Source {
	return h.source
}

// Release frees the source once. It reports whether this call released it.
func (h *Handle) Release() (bool, error) {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return false, nil
	}
	h.source.CancelPending()
	return true, h.source.Release()
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	return h != nil && h.released.Load()
}
