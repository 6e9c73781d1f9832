package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/document/pdftest"
	"github.com/csheth/pagechat/internal/session"
)

func newTestController(t *testing.T) (*Controller, *fakeOpener) {
	t.Helper()
	opener := newFakeOpener()
	return New(session.New(), opener, Options{}), opener
}

func openDoc(t *testing.T, c *Controller, path string) {
	t.Helper()
	require.NoError(t, c.OpenAndWait(context.Background(), path))
}

func TestOpenLoadsFirstPage(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 22)

	ticket, err := c.Open("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, session.LoadLoading, c.State().Snapshot().Load)

	render := c.CompleteLoad(ticket.Run(context.Background()))
	require.NotNil(t, render)
	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadSuccess, snap.Load)
	assert.Equal(t, session.RenderRendering, snap.Render)
	assert.Equal(t, 22, snap.PageCount())
	assert.Equal(t, 1, snap.View.CurrentPage)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "report.pdf", snap.Summary.Title)

	assert.True(t, c.CompleteRender(render.Run(context.Background())))
	snap = c.State().Snapshot()
	assert.Equal(t, session.RenderIdle, snap.Render)
	require.NotNil(t, snap.Page)
	assert.Equal(t, 1, snap.Page.Page)
}

func TestPaginationClampsAtBounds(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 22)
	openDoc(t, c, "report.pdf")

	for range 21 {
		require.NotNil(t, c.NextPage())
	}
	assert.Equal(t, 22, c.State().Snapshot().View.CurrentPage)
	assert.Nil(t, c.NextPage(), "next on the last page is a no-op")
	assert.Equal(t, 22, c.State().Snapshot().View.CurrentPage)

	c.GoToPage(1)
	assert.Nil(t, c.PreviousPage(), "previous on the first page is a no-op")
	assert.Equal(t, 1, c.State().Snapshot().View.CurrentPage)
}

func TestGoToPageClampsWithNotice(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 22)
	openDoc(t, c, "report.pdf")

	require.NotNil(t, c.GoToPage(23))
	snap := c.State().Snapshot()
	assert.Equal(t, 22, snap.View.CurrentPage)
	assert.Contains(t, snap.Notice, "out of range")
	assert.NoError(t, snap.LoadErr)
	assert.NoError(t, snap.RenderErr)

	require.NotNil(t, c.GoToPage(0))
	assert.Equal(t, 1, c.State().Snapshot().View.CurrentPage)

	require.NotNil(t, c.GoToPage(5))
	assert.Empty(t, c.State().Snapshot().Notice)
}

func TestPaginationIgnoredWithoutDocument(t *testing.T) {
	c, _ := newTestController(t)
	assert.Nil(t, c.NextPage())
	assert.Nil(t, c.GoToPage(3))
	assert.Equal(t, 1, c.State().Snapshot().View.CurrentPage)
}

func TestZoomStaysWithinBounds(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 3)
	openDoc(t, c, "report.pdf")

	for range 40 {
		c.ZoomIn()
	}
	assert.Equal(t, session.MaxScale, c.State().Snapshot().View.Scale)
	assert.Nil(t, c.ZoomIn(), "zoom at the bound does not re-render")

	for range 40 {
		c.ZoomOut()
	}
	assert.Equal(t, session.MinScale, c.State().Snapshot().View.Scale)

	c.SetScale(1.0)
	c.ZoomIn()
	c.ZoomIn()
	c.ZoomIn()
	assert.Equal(t, 1.3, c.State().Snapshot().View.Scale)

	c.SetScale(12)
	assert.Equal(t, session.MaxScale, c.State().Snapshot().View.Scale)
}

func TestZoomDisablesFitToWidth(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 3)
	openDoc(t, c, "report.pdf")
	c.SetContainerWidth(89)

	c.ToggleFitToWidth()
	require.True(t, c.State().Snapshot().View.FitToWidth)
	c.ZoomIn()
	view := c.State().Snapshot().View
	assert.False(t, view.FitToWidth)
}

func TestFitToWidthDerivesScale(t *testing.T) {
	c, opener := newTestController(t)
	opener.add("report.pdf", 3)
	openDoc(t, c, "report.pdf")

	c.SetScale(1.4)
	// 612pt is 85 columns at scale 1; (174 - 4) / 85 = 2.0
	c.SetContainerWidth(174)
	require.NotNil(t, c.ToggleFitToWidth())
	view := c.State().Snapshot().View
	assert.True(t, view.FitToWidth)
	assert.Equal(t, 2.0, view.Scale)

	require.NotNil(t, c.SetContainerWidth(89))
	assert.Equal(t, 1.0, c.State().Snapshot().View.Scale)

	c.SetContainerWidth(1000)
	assert.Equal(t, session.MaxScale, c.State().Snapshot().View.Scale, "derived scale is clamped")

	c.ToggleFitToWidth()
	view = c.State().Snapshot().View
	assert.False(t, view.FitToWidth)
	assert.Equal(t, 1.4, view.Scale, "leaving fit restores the explicit scale")
}

func TestFitToWidthRecomputesPerPage(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 3)
	openDoc(t, c, "report.pdf")
	c.SetContainerWidth(89)
	c.ToggleFitToWidth()
	assert.Equal(t, 1.0, c.State().Snapshot().View.Scale)

	src.width = 306
	c.NextPage()
	assert.Equal(t, 2.0, c.State().Snapshot().View.Scale)
}

func TestSupersededRenderIsDiscarded(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 5)
	openDoc(t, c, "report.pdf")

	first := c.NextPage()
	second := c.NextPage()
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Greater(t, src.cancels, 0, "starting a render cancels the previous one")

	assert.False(t, c.CompleteRender(first.Run(context.Background())))
	snap := c.State().Snapshot()
	assert.Equal(t, 1, snap.Page.Page, "stale render never reaches display")
	assert.Equal(t, session.RenderRendering, snap.Render)

	assert.True(t, c.CompleteRender(second.Run(context.Background())))
	assert.Equal(t, 3, c.State().Snapshot().Page.Page)
}

func TestCancelledRenderIsSilent(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 5)
	openDoc(t, c, "report.pdf")

	src.gate = make(chan struct{})
	ticket := c.NextPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := ticket.Run(ctx)
	require.True(t, document.IsCancelled(res.Err))
	assert.False(t, c.CompleteRender(res))

	snap := c.State().Snapshot()
	assert.NoError(t, snap.RenderErr)
	assert.Equal(t, session.RenderIdle, snap.Render)
}

func TestRenderErrorKeepsDocumentLoaded(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 5)
	src.renderErr = map[int]error{2: errors.New("bad font")}
	openDoc(t, c, "report.pdf")

	err := c.Await(context.Background(), c.NextPage())
	var renderErr *document.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 2, renderErr.Page)

	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadSuccess, snap.Load)
	assert.Equal(t, session.RenderIdle, snap.Render)

	src.renderErr = nil
	ticket, err := c.RetryRender()
	require.NoError(t, err)
	require.NoError(t, c.Await(context.Background(), ticket))
	snap = c.State().Snapshot()
	assert.NoError(t, snap.RenderErr)
	assert.Equal(t, 2, snap.Page.Page)
}

func TestUnsupportedFormatLeavesStateIdle(t *testing.T) {
	c, opener := newTestController(t)
	_, err := c.Open("notes.txt")
	require.ErrorIs(t, err, document.ErrUnsupportedFormat)
	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadIdle, snap.Load)
	assert.ErrorIs(t, snap.LoadErr, document.ErrUnsupportedFormat)
	assert.Empty(t, opener.opened, "no load attempt for unsupported input")

	_, err = c.Retry()
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestUnsupportedFormatKeepsOpenDocument(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 3)
	openDoc(t, c, "report.pdf")
	handle := c.State().Snapshot().Handle

	_, err := c.Open("slides.pptx")
	require.ErrorIs(t, err, document.ErrUnsupportedFormat)

	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadSuccess, snap.Load)
	assert.Same(t, handle, snap.Handle)
	assert.False(t, handle.Released())
	assert.Zero(t, src.releaseCount())
	assert.Equal(t, "report.pdf", snap.Source)
	assert.ErrorIs(t, snap.LoadErr, document.ErrUnsupportedFormat)
	assert.Equal(t, 1, opener.openCount("report.pdf"))

	next, err := c.Retry()
	require.NoError(t, err)
	require.NoError(t, c.Await(context.Background(), c.CompleteLoad(next.Run(context.Background()))))
	assert.Equal(t, 2, opener.openCount("report.pdf"), "retry reloads the open document")
}

func TestLoadFailureIsRetryable(t *testing.T) {
	c, opener := newTestController(t)
	opener.fail["broken.pdf"] = errors.New("malformed xref")

	err := c.OpenAndWait(context.Background(), "broken.pdf")
	var loadErr *document.LoadError
	require.ErrorAs(t, err, &loadErr)
	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadError, snap.Load)
	assert.Nil(t, snap.Handle)

	delete(opener.fail, "broken.pdf")
	opener.add("broken.pdf", 2)
	ticket, err := c.Retry()
	require.NoError(t, err)
	assert.Equal(t, "broken.pdf", ticket.Path)
	c.Await(context.Background(), c.CompleteLoad(ticket.Run(context.Background())))

	assert.Equal(t, 2, opener.openCount("broken.pdf"))
	assert.Equal(t, session.LoadSuccess, c.State().Snapshot().Load)
}

func TestEmptyDocumentReleasesSource(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("empty.pdf", 0)

	err := c.OpenAndWait(context.Background(), "empty.pdf")
	require.ErrorIs(t, err, document.ErrEmptyDocument)
	assert.Equal(t, "The PDF document appears to be empty.", document.UserMessage(err))
	assert.Equal(t, 1, src.releaseCount())
	assert.Nil(t, c.State().Snapshot().Handle)
}

func TestOpeningNewDocumentReleasesOldOnce(t *testing.T) {
	c, opener := newTestController(t)
	first := opener.add("first.pdf", 3)
	second := opener.add("second.pdf", 4)
	openDoc(t, c, "first.pdf")
	c.State().AppendMessage(session.SenderUser, "about the first document")

	openDoc(t, c, "second.pdf")
	assert.Equal(t, 1, first.releaseCount())
	assert.Equal(t, 0, second.releaseCount())

	snap := c.State().Snapshot()
	assert.Equal(t, "second.pdf", snap.Handle.Path)
	assert.Equal(t, 4, snap.PageCount())
	assert.Empty(t, snap.Transcript, "a new document starts a new chat")

	c.Close()
	c.Close()
	assert.Equal(t, 1, second.releaseCount(), "close is idempotent")
}

func TestStaleLoadReleasesItsSource(t *testing.T) {
	c, opener := newTestController(t)
	slow := opener.add("slow.pdf", 3)
	opener.add("fast.pdf", 2)

	slowTicket, err := c.Open("slow.pdf")
	require.NoError(t, err)
	fastTicket, err := c.Open("fast.pdf")
	require.NoError(t, err)

	c.Await(context.Background(), c.CompleteLoad(fastTicket.Run(context.Background())))
	assert.Nil(t, c.CompleteLoad(slowTicket.Run(context.Background())))

	assert.Equal(t, 1, slow.releaseCount())
	assert.Equal(t, "fast.pdf", c.State().Snapshot().Handle.Path)
}

func TestCloseResetsSession(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 6)
	openDoc(t, c, "report.pdf")
	c.GoToPage(4)
	c.SetContainerWidth(120)
	c.ToggleFitToWidth()
	c.State().AppendMessage(session.SenderUser, "hello")

	c.Close()
	snap := c.State().Snapshot()
	assert.Equal(t, session.LoadIdle, snap.Load)
	assert.Equal(t, session.DefaultView(), snap.View)
	assert.Empty(t, snap.Transcript)
	assert.Nil(t, snap.Summary)
	assert.Nil(t, snap.Handle)
	assert.Nil(t, snap.Page)
	assert.Empty(t, snap.Text.Full)
	assert.Equal(t, 1, src.releaseCount())

	_, err := c.Retry()
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestCloseDuringLoadDiscardsResult(t *testing.T) {
	c, opener := newTestController(t)
	src := opener.add("report.pdf", 2)
	ticket, err := c.Open("report.pdf")
	require.NoError(t, err)

	c.Close()
	assert.Nil(t, c.CompleteLoad(ticket.Run(context.Background())))
	assert.Equal(t, session.LoadIdle, c.State().Snapshot().Load)
	assert.Equal(t, 1, src.releaseCount())
}

func TestOpenRealPDF(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "playbook.pdf", pdftest.Spec{Pages: pdftest.Pages(22)})
	c := New(session.New(), document.NewPDFOpener(document.PDFOptions{Validation: document.ValidationNone}), Options{})
	t.Cleanup(c.Close)

	require.NoError(t, c.OpenAndWait(context.Background(), path))
	snap := c.State().Snapshot()
	assert.Equal(t, 22, snap.PageCount())
	require.NotNil(t, snap.Page)
	assert.Contains(t, snap.Page.String(), "Page 1")
	assert.Contains(t, snap.Text.Full, "Page 22")

	require.NoError(t, c.Await(context.Background(), c.GoToPage(22)))
	assert.Contains(t, c.State().Snapshot().Page.String(), "Page 22")
}
