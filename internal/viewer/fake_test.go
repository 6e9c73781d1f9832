package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/csheth/pagechat/internal/document"
)

type fakeSource struct {
	mu        sync.Mutex
	pages     int
	width     float64
	releases  int
	cancels   int
	renderErr map[int]error
	gate      chan struct{}
}

func (s *fakeSource) PageCount() int { return s.pages }

func (s *fakeSource) PageWidth(int) (float64, error) {
	if s.width == 0 {
		return document.DefaultPageWidth, nil
	}
	return s.width, nil
}

func (s *fakeSource) PageText(_ context.Context, page int) (string, error) {
	return fmt.Sprintf("page %d", page), nil
}

func (s *fakeSource) RenderPage(ctx context.Context, page int, scale float64) (document.Bitmap, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return document.Bitmap{}, fmt.Errorf("%w: %v", document.ErrCancelled, ctx.Err())
		}
	}
	if err := s.renderErr[page]; err != nil {
		return document.Bitmap{}, err
	}
	return document.Bitmap{Page: page, Scale: scale, Lines: []string{fmt.Sprintf("page %d", page)}}, nil
}

func (s *fakeSource) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *fakeSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	return nil
}

func (s *fakeSource) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

type fakeOpener struct {
	mu      sync.Mutex
	sources map[string]*fakeSource
	fail    map[string]error
	opened  []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{sources: map[string]*fakeSource{}, fail: map[string]error{}}
}

func (o *fakeOpener) add(path string, pages int) *fakeSource {
	src := &fakeSource{pages: pages}
	o.sources[path] = src
	return src
}

func (o *fakeOpener) Check(path string) error {
	if len(path) < 4 || path[len(path)-4:] != ".pdf" {
		return fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, path)
	}
	return nil
}

func (o *fakeOpener) Open(_ context.Context, path string) (document.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	if err := o.fail[path]; err != nil {
		return nil, err
	}
	src, ok := o.sources[path]
	if !ok {
		return nil, &document.LoadError{Path: path, Err: errors.New("no such file")}
	}
	return src, nil
}

func (o *fakeOpener) openCount(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	count := 0
	for _, p := range o.opened {
		if p == path {
			count++
		}
	}
	return count
}
