package document

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat rejects a source before any load is attempted.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument is the load failure for a document without pages.
	ErrEmptyDocument = errors.New("the PDF document appears to be empty")
	// ErrCancelled marks work abandoned because a newer request superseded it.
	ErrCancelled = errors.New("operation cancelled")
	// ErrReleased is returned by sources used after Release.
	ErrReleased = errors.New("document source released")
)

// LoadError reports that a source could not be opened or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports that one page failed to rasterize.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// IsCancelled reports whether err only records a superseded operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// UserMessage renders err the way the viewer presents it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		loadErr   *LoadError
		renderErr *RenderError
	)
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "Invalid file type. Please open a PDF file."
	case errors.Is(err, ErrEmptyDocument):
		return "The PDF document appears to be empty."
	case errors.As(err, &renderErr):
		return fmt.Sprintf("Failed to render the PDF page: %v", renderErr.Err)
	case errors.As(err, &loadErr):
		return fmt.Sprintf("Failed to load the PDF document: %v", loadErr.Err)
	default:
		return err.Error()
	}
}
