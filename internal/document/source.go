// Package document opens PDF files and turns their pages into terminal
// rasters. It is the only package that touches PDF decoding libraries.
package document

import (
	"context"
	"math"
	"strings"
)

// PointsPerColumn converts PDF user space to terminal columns at scale 1.
const PointsPerColumn = 7.2

// DefaultPageWidth is US Letter in points, used when a page has no MediaBox.
const DefaultPageWidth = 612.0

const minColumns = 8

// Opener validates and opens document sources.
type Opener interface {
	// Check rejects paths that are not a supported document type.
	Check(path string) error
	Open(ctx context.Context, path string) (Source, error)
}

// Source is an opened document. Pages are numbered from 1.
type Source interface {
	PageCount() int
	// PageWidth reports the page width in points.
	PageWidth(page int) (float64, error)
	PageText(ctx context.Context, page int) (string, error)
	RenderPage(ctx context.Context, page int, scale float64) (Bitmap, error)
	// CancelPending aborts in-flight renders without waiting for them.
	CancelPending()
	Release() error
}

// Bitmap is a rasterized page: text reflowed to a column width that grows
// with the scale.
type Bitmap struct {
	Page    int
	Scale   float64
	Columns int
	Lines   []string
}

func (b Bitmap) String() string {
	return strings.Join(b.Lines, "\n")
}

// NativeColumns converts a page width in points to columns at scale 1.
func NativeColumns(points float64) float64 {
	if points <= 0 {
		points = DefaultPageWidth
	}
	return points / PointsPerColumn
}

// Columns is the raster width of a page of the given width at scale.
func Columns(points, scale float64) int {
	cols := int(math.Round(NativeColumns(points) * scale))
	if cols < minColumns {
		return minColumns
	}
	return cols
}
