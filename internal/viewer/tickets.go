package viewer

import (
	"context"

	"github.com/csheth/pagechat/internal/document"
)

// LoadTicket is a dispatched document load. Run performs the blocking work
// and may be called from any goroutine; its result must be handed back to
// Controller.CompleteLoad.
type LoadTicket struct {
	Seq  uint64
	Path string

	ctx     context.Context
	opener  document.Opener
	workers int
}

// LoadResult is the outcome of a LoadTicket.
type LoadResult struct {
	Seq    uint64
	Path   string
	Source document.Source
	Text   document.Text
	// TextErr records a failed text extraction; the document still loads.
	TextErr error
	Err     error
}

// Run opens the document and extracts its text.
func (t *LoadTicket) Run(parent context.Context) LoadResult {
	ctx, stop := bind(parent, t.ctx)
	defer stop()

	result := LoadResult{Seq: t.Seq, Path: t.Path}
	src, err := t.opener.Open(ctx, t.Path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Source = src
	if src.PageCount() == 0 {
		return result
	}
	text, err := document.ExtractText(ctx, src, t.workers)
	if err != nil {
		result.TextErr = err
		return result
	}
	result.Text = text
	return result
}

// RenderTicket is a dispatched page render tagged with its sequence number,
// page and scale.
type RenderTicket struct {
	Seq   uint64
	Page  int
	Scale float64

	ctx    context.Context
	source document.Source
}

// RenderResult is the outcome of a RenderTicket.
type RenderResult struct {
	Seq    uint64
	Page   int
	Scale  float64
	Bitmap document.Bitmap
	Err    error
}

// Run rasterizes the tagged page.
func (t *RenderTicket) Run(parent context.Context) RenderResult {
	ctx, stop := bind(parent, t.ctx)
	defer stop()

	bitmap, err := t.source.RenderPage(ctx, t.Page, t.Scale)
	return RenderResult{Seq: t.Seq, Page: t.Page, Scale: t.Scale, Bitmap: bitmap, Err: err}
}

// bind derives a context cancelled by either parent or owner.
func bind(parent, owner context.Context) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(owner, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
