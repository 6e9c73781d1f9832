// Package viewer owns the lifecycle of the open document: loading, paging,
// zoom and page rendering. Blocking work is handed out as tickets so that a
// single event loop can apply every result.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/assistant"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/logx"
	"github.com/csheth/pagechat/internal/session"
)

const (
	// DefaultZoomStep is the scale change of one zoom action.
	DefaultZoomStep = 0.1
	// DefaultFitPadding is the horizontal chrome, in columns, excluded from
	// the width a page may fill.
	DefaultFitPadding = 4
)

// ExtractWarning is shown when a document loads but its text could not be
// extracted.
const ExtractWarning = "Could not extract text from PDF. Some features may be limited."

var (
	// ErrNothingToRetry is returned by Retry before any document was opened.
	ErrNothingToRetry = errors.New("no document to retry")
	// ErrNotLoaded is returned by operations that need an open document.
	ErrNotLoaded = errors.New("no document loaded")
)

// Summarizer derives the summary shown for a freshly loaded document.
type Summarizer func(title, text string) assistant.Summary

// Options tunes a Controller. Zero values select defaults.
type Options struct {
	DefaultScale   float64
	ZoomStep       float64
	FitPadding     int
	ExtractWorkers int
	Summarize      Summarizer
	Logger         pslog.Logger
}

// Controller drives the document lifecycle against a shared session state.
type Controller struct {
	state  *session.State
	opener document.Opener
	opts   Options
	log    pslog.Logger

	mu             sync.Mutex
	loadSeq        uint64
	loadCancel     context.CancelFunc
	renderSeq      uint64
	renderCancel   context.CancelFunc
	renderSource   document.Source
	explicitScale  float64
	containerWidth int
}

// New returns a Controller bound to state. The state's view is reset to the
// configured defaults.
func New(state *session.State, opener document.Opener, opts Options) *Controller {
	if opts.DefaultScale == 0 {
		opts.DefaultScale = session.DefaultScale
	}
	opts.DefaultScale = clampScale(opts.DefaultScale)
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultZoomStep
	}
	if opts.FitPadding < 0 {
		opts.FitPadding = 0
	} else if opts.FitPadding == 0 {
		opts.FitPadding = DefaultFitPadding
	}
	if opts.ExtractWorkers <= 0 {
		opts.ExtractWorkers = document.DefaultExtractWorkers
	}
	if opts.Summarize == nil {
		opts.Summarize = assistant.Summarize
	}
	c := &Controller{
		state:         state,
		opener:        opener,
		opts:          opts,
		log:           logx.Or(opts.Logger),
		explicitScale: opts.DefaultScale,
	}
	state.Update(func(doc *session.Document) {
		doc.SetView(c.defaultView())
	})
	return c
}

// State returns the session state the controller mutates.
func (c *Controller) State() *session.State {
	return c.state
}

// Open starts loading path. Unsupported formats are rejected before any
// load begins and leave the load state untouched.
func (c *Controller) Open(path string) (*LoadTicket, error) {
	if err := c.opener.Check(path); err != nil {
		c.log.Warn("document rejected", "document", path, "err", err)
		c.state.Update(func(doc *session.Document) {
			doc.SetLoadErr(err)
		})
		return nil, err
	}
	return c.beginLoad(path), nil
}

// Retry reloads the last attempted source.
func (c *Controller) Retry() (*LoadTicket, error) {
	path := c.state.Snapshot().Source
	if path == "" {
		return nil, ErrNothingToRetry
	}
	return c.beginLoad(path), nil
}

func (c *Controller) beginLoad(path string) *LoadTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLoadLocked()
	c.cancelRenderLocked()
	c.loadSeq++
	ctx, cancel := context.WithCancel(context.Background())
	c.loadCancel = cancel

	var previous *document.Handle
	c.state.Update(func(doc *session.Document) {
		previous = doc.Handle()
		doc.SetHandle(nil)
		doc.SetSource(path)
		doc.SetLoad(session.LoadLoading)
		doc.SetRender(session.RenderIdle)
		doc.SetLoadErr(nil)
		doc.SetRenderErr(nil)
		doc.SetNotice("")
		doc.SetPage(nil)
		doc.SetText(document.Text{})
		doc.SetSummary(nil)
	})
	c.release(previous, "replaced")

	logx.WithDocument(c.log, path).Info("document load started", "load_seq", c.loadSeq)
	return &LoadTicket{
		Seq:     c.loadSeq,
		Path:    path,
		ctx:     ctx,
		opener:  c.opener,
		workers: c.opts.ExtractWorkers,
	}
}

// CompleteLoad applies a load result. Results of superseded loads are
// discarded and their sources released. On success the first page render
// is returned for dispatch.
func (c *Controller) CompleteLoad(res LoadResult) *RenderTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := logx.WithDocument(c.log, res.Path).With("load_seq", res.Seq)
	if c.loadCancel == nil || res.Seq != c.loadSeq {
		if res.Source != nil {
			_ = res.Source.Release()
		}
		log.Debug("stale load result discarded")
		return nil
	}
	c.loadCancel()
	c.loadCancel = nil

	err := res.Err
	if err == nil && res.Source.PageCount() == 0 {
		_ = res.Source.Release()
		err = document.ErrEmptyDocument
	}
	if err != nil {
		var loadErr *document.LoadError
		if !errors.As(err, &loadErr) {
			err = &document.LoadError{Path: res.Path, Err: err}
		}
		c.state.Update(func(doc *session.Document) {
			doc.SetHandle(nil)
			doc.SetLoad(session.LoadError)
			doc.SetLoadErr(err)
		})
		log.Warn("document load failed", "err", err)
		return nil
	}

	handle := document.NewHandle(res.Path, res.Source)
	summary := c.opts.Summarize(filepath.Base(res.Path), res.Text.Full)
	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		doc.SetHandle(handle)
		doc.SetLoad(session.LoadSuccess)
		doc.SetLoadErr(nil)
		doc.SetRenderErr(nil)
		doc.ClearTranscript()
		doc.SetSummary(&summary)
		doc.SetText(res.Text)
		if res.TextErr != nil {
			doc.SetNotice(ExtractWarning)
		}
		view := doc.View()
		view.CurrentPage = 1
		if view.FitToWidth {
			view.Scale = c.fitScale(handle, 1, view.Scale)
		}
		doc.SetView(view)
		ticket = c.beginRenderLocked(doc, handle)
	})
	if res.TextErr != nil {
		log.Warn("text extraction failed", "err", res.TextErr)
	}
	log.Info("document loaded", "pages", handle.PageCount)
	return ticket
}

// CompleteRender applies a render result. It reports whether the bitmap
// became the displayed page; superseded and cancelled renders never do.
func (c *Controller) CompleteRender(res RenderResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := logx.WithPage(c.log, res.Seq, res.Page, res.Scale)
	if c.renderCancel == nil || res.Seq != c.renderSeq {
		log.Debug("stale render discarded")
		return false
	}
	applied := false
	c.state.Update(func(doc *session.Document) {
		view := doc.View()
		if view.CurrentPage != res.Page || view.Scale != res.Scale {
			log.Debug("render tag mismatch discarded")
			return
		}
		c.renderCancel()
		c.renderCancel = nil
		c.renderSource = nil
		doc.SetRender(session.RenderIdle)
		switch {
		case res.Err == nil:
			bitmap := res.Bitmap
			doc.SetPage(&bitmap)
			doc.SetRenderErr(nil)
			applied = true
		case document.IsCancelled(res.Err):
			log.Debug("render cancelled")
		default:
			err := res.Err
			var renderErr *document.RenderError
			if !errors.As(err, &renderErr) {
				err = &document.RenderError{Page: res.Page, Err: err}
			}
			doc.SetRenderErr(err)
			log.Warn("page render failed", "err", err)
		}
	})
	return applied
}

// Close cancels all work, releases the document and resets the session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLoadLocked()
	c.cancelRenderLocked()
	c.explicitScale = c.opts.DefaultScale

	var previous *document.Handle
	c.state.Update(func(doc *session.Document) {
		previous = doc.Handle()
		doc.SetHandle(nil)
		doc.SetSource("")
		doc.SetView(c.defaultView())
		doc.SetLoad(session.LoadIdle)
		doc.SetRender(session.RenderIdle)
		doc.SetLoadErr(nil)
		doc.SetRenderErr(nil)
		doc.SetNotice("")
		doc.SetPage(nil)
		doc.SetText(document.Text{})
		doc.SetSummary(nil)
		doc.ClearTranscript()
	})
	c.release(previous, "closed")
}

// NextPage advances one page; it is a no-op on the last page.
func (c *Controller) NextPage() *RenderTicket {
	return c.movePage(func(view session.ViewState) int { return view.CurrentPage + 1 }, false)
}

// PreviousPage goes back one page; it is a no-op on the first page.
func (c *Controller) PreviousPage() *RenderTicket {
	return c.movePage(func(view session.ViewState) int { return view.CurrentPage - 1 }, false)
}

// GoToPage jumps to page, clamping out-of-range input and leaving an
// informational notice when it does.
func (c *Controller) GoToPage(page int) *RenderTicket {
	return c.movePage(func(session.ViewState) int { return page }, true)
}

func (c *Controller) movePage(target func(session.ViewState) int, notify bool) *RenderTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		handle := doc.Handle()
		if doc.Load() != session.LoadSuccess || handle == nil {
			return
		}
		view := doc.View()
		want := target(view)
		page := min(max(want, 1), handle.PageCount)
		if notify {
			if page != want {
				doc.SetNotice(fmt.Sprintf("Page %d is out of range; showing page %d of %d.", want, page, handle.PageCount))
			} else {
				doc.SetNotice("")
			}
		}
		if page == view.CurrentPage {
			return
		}
		view.CurrentPage = page
		if view.FitToWidth {
			view.Scale = c.fitScale(handle, page, view.Scale)
		}
		doc.SetView(view)
		ticket = c.beginRenderLocked(doc, handle)
	})
	return ticket
}

// ZoomIn raises the scale by one step and leaves fit-to-width.
func (c *Controller) ZoomIn() *RenderTicket {
	return c.setScale(func(scale float64) float64 { return scale + c.opts.ZoomStep })
}

// ZoomOut lowers the scale by one step and leaves fit-to-width.
func (c *Controller) ZoomOut() *RenderTicket {
	return c.setScale(func(scale float64) float64 { return scale - c.opts.ZoomStep })
}

// SetScale sets an explicit scale, clamped to the supported range.
func (c *Controller) SetScale(scale float64) *RenderTicket {
	return c.setScale(func(float64) float64 { return scale })
}

func (c *Controller) setScale(next func(float64) float64) *RenderTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		view := doc.View()
		scale := clampScale(roundScale(next(view.Scale)))
		c.explicitScale = scale
		changed := scale != view.Scale
		view.Scale = scale
		view.FitToWidth = false
		doc.SetView(view)
		if changed {
			ticket = c.renderIfLoadedLocked(doc)
		}
	})
	return ticket
}

// ToggleFitToWidth switches between a width-derived scale and the last
// explicit scale.
func (c *Controller) ToggleFitToWidth() *RenderTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		view := doc.View()
		previous := view.Scale
		view.FitToWidth = !view.FitToWidth
		if view.FitToWidth {
			c.explicitScale = view.Scale
			if handle := doc.Handle(); handle != nil && doc.Load() == session.LoadSuccess {
				view.Scale = c.fitScale(handle, view.CurrentPage, view.Scale)
			}
		} else {
			view.Scale = c.explicitScale
		}
		doc.SetView(view)
		if view.Scale != previous {
			ticket = c.renderIfLoadedLocked(doc)
		}
	})
	return ticket
}

// SetContainerWidth records the columns available to the page. With
// fit-to-width on, the scale follows the width.
func (c *Controller) SetContainerWidth(columns int) *RenderTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if columns == c.containerWidth {
		return nil
	}
	c.containerWidth = columns
	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		view := doc.View()
		handle := doc.Handle()
		if !view.FitToWidth || handle == nil || doc.Load() != session.LoadSuccess {
			return
		}
		scale := c.fitScale(handle, view.CurrentPage, view.Scale)
		if scale == view.Scale {
			return
		}
		view.Scale = scale
		doc.SetView(view)
		ticket = c.beginRenderLocked(doc, handle)
	})
	return ticket
}

// RetryRender re-requests the current page, typically after a render error.
func (c *Controller) RetryRender() (*RenderTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ticket *RenderTicket
	c.state.Update(func(doc *session.Document) {
		ticket = c.renderIfLoadedLocked(doc)
	})
	if ticket == nil {
		return nil, ErrNotLoaded
	}
	return ticket, nil
}

// OpenAndWait opens path and renders its first page on the calling
// goroutine.
func (c *Controller) OpenAndWait(ctx context.Context, path string) error {
	ticket, err := c.Open(path)
	if err != nil {
		return err
	}
	render := c.CompleteLoad(ticket.Run(ctx))
	if snap := c.state.Snapshot(); snap.Load == session.LoadError {
		return snap.LoadErr
	}
	return c.Await(ctx, render)
}

// Await runs a render ticket synchronously. A nil ticket is a no-op.
func (c *Controller) Await(ctx context.Context, ticket *RenderTicket) error {
	if ticket == nil {
		return nil
	}
	res := ticket.Run(ctx)
	c.CompleteRender(res)
	if res.Err != nil && !document.IsCancelled(res.Err) {
		return c.state.Snapshot().RenderErr
	}
	return nil
}

func (c *Controller) renderIfLoadedLocked(doc *session.Document) *RenderTicket {
	handle := doc.Handle()
	if handle == nil || doc.Load() != session.LoadSuccess {
		return nil
	}
	return c.beginRenderLocked(doc, handle)
}

func (c *Controller) beginRenderLocked(doc *session.Document, handle *document.Handle) *RenderTicket {
	c.cancelRenderLocked()
	c.renderSeq++
	ctx, cancel := context.WithCancel(context.Background())
	c.renderCancel = cancel
	c.renderSource = handle.Source()
	view := doc.View()
	doc.SetRender(session.RenderRendering)
	doc.SetRenderErr(nil)
	logx.WithPage(c.log, c.renderSeq, view.CurrentPage, view.Scale).Debug("render requested")
	return &RenderTicket{
		Seq:    c.renderSeq,
		Page:   view.CurrentPage,
		Scale:  view.Scale,
		ctx:    ctx,
		source: handle.Source(),
	}
}

func (c *Controller) cancelRenderLocked() {
	if c.renderCancel == nil {
		return
	}
	c.renderCancel()
	c.renderCancel = nil
	if c.renderSource != nil {
		c.renderSource.CancelPending()
		c.renderSource = nil
	}
}

func (c *Controller) cancelLoadLocked() {
	if c.loadCancel == nil {
		return
	}
	c.loadCancel()
	c.loadCancel = nil
}

func (c *Controller) release(handle *document.Handle, reason string) {
	if handle == nil {
		return
	}
	released, err := handle.Release()
	log := logx.WithDocument(c.log, handle.Path).With("reason", reason)
	if err != nil {
		log.Warn("document release failed", "err", err)
		return
	}
	if released {
		log.Info("document released")
	}
}

func (c *Controller) fitScale(handle *document.Handle, page int, fallback float64) float64 {
	if c.containerWidth <= 0 {
		return fallback
	}
	width, err := handle.Source().PageWidth(page)
	if err != nil {
		c.log.Debug("page width unavailable", "page", page, "err", err)
		return fallback
	}
	available := float64(c.containerWidth - c.opts.FitPadding)
	return clampScale(roundScale(available / document.NativeColumns(width)))
}

func (c *Controller) defaultView() session.ViewState {
	view := session.DefaultView()
	view.Scale = c.opts.DefaultScale
	return view
}

func clampScale(scale float64) float64 {
	return min(max(scale, session.MinScale), session.MaxScale)
}

func roundScale(scale float64) float64 {
	return math.Round(scale*100) / 100
}
