package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeSource struct {
	mu        sync.Mutex
	texts     []string
	fail      map[int]error
	releases  int
	cancelled int
}

func (f *fakeSource) PageCount() int                 { return len(f.texts) }
func (f *fakeSource) PageWidth(int) (float64, error) { return DefaultPageWidth, nil }
func (f *fakeSource) PageText(ctx context.Context, page int) (string, error) {
	if err := f.fail[page]; err != nil {
		return "", err
	}
	return f.texts[page-1], nil
}
func (f *fakeSource) RenderPage(ctx context.Context, page int, scale float64) (Bitmap, error) {
	return Bitmap{Page: page, Scale: scale}, nil
}
func (f *fakeSource) CancelPending() {
	f.mu.Lock()
	f.cancelled++
	f.mu.Unlock()
}
func (f *fakeSource) Release() error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return nil
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	src := &fakeSource{texts: []string{"a", "b"}}
	handle := NewHandle("doc.pdf", src)
	if handle.PageCount != 2 {
		t.Fatalf("page count mismatch: got %d want 2", handle.PageCount)
	}

	var wg sync.WaitGroup
	released := make(chan bool, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := handle.Release()
			if err != nil {
				t.Errorf("release: %v", err)
			}
			released <- ok
		}()
	}
	wg.Wait()
	close(released)

	wins := 0
	for ok := range released {
		if ok {
			wins++
		}
	}
	if wins != 1 || src.releases != 1 {
		t.Fatalf("expected exactly one release, got wins=%d releases=%d", wins, src.releases)
	}
	if !handle.Released() {
		t.Fatal("handle should report released")
	}

	var nilHandle *Handle
	if ok, err := nilHandle.Release(); ok || err != nil {
		t.Fatalf("nil handle release should be a no-op, got %v %v", ok, err)
	}
}

func TestCheckFormat(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	cases := []struct {
		name        string
		path        string
		unsupported bool
	}{
		{name: "pdf header", path: write("ok.pdf", "%PDF-1.4\n..."), unsupported: false},
		{name: "upper case extension", path: write("OK.PDF", "%PDF-1.7\n"), unsupported: false},
		{name: "leading junk", path: write("junk.pdf", "\x00\x00%PDF-1.4"), unsupported: false},
		{name: "text file", path: write("notes.txt", "%PDF-1.4"), unsupported: true},
		{name: "missing header", path: write("fake.pdf", "hello"), unsupported: true},
		{name: "directory", path: func() string {
			p := filepath.Join(dir, "folder.pdf")
			if err := os.Mkdir(p, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			return p
		}(), unsupported: true},
		{name: "missing file", path: filepath.Join(dir, "gone.pdf"), unsupported: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFormat(tc.path)
			if got := errors.Is(err, ErrUnsupportedFormat); got != tc.unsupported {
				t.Fatalf("unsupported mismatch for %s: got %v (err=%v)", tc.path, got, err)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: fmt.Errorf("%w: x.txt", ErrUnsupportedFormat), want: "Invalid file type. Please open a PDF file."},
		{err: &LoadError{Path: "a.pdf", Err: ErrEmptyDocument}, want: "The PDF document appears to be empty."},
		{err: &LoadError{Path: "a.pdf", Err: errors.New("bad xref")}, want: "Failed to load the PDF document: bad xref"},
		{err: &RenderError{Page: 2, Err: errors.New("bad font")}, want: "Failed to render the PDF page: bad font"},
		{err: nil, want: ""},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("message mismatch: got %q want %q", got, tc.want)
		}
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(fmt.Errorf("render: %w", ErrCancelled)) {
		t.Fatal("wrapped ErrCancelled should be cancellation")
	}
	if !IsCancelled(&LoadError{Err: context.Canceled}) {
		t.Fatal("context.Canceled should be cancellation")
	}
	if IsCancelled(&RenderError{Page: 1, Err: errors.New("boom")}) {
		t.Fatal("render failure is not cancellation")
	}
}

func TestRasterizeWrapsToColumns(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog\n\n\n\nSecond   paragraph here\n"
	lines, err := Rasterize(context.Background(), text, 10)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	for _, line := range lines {
		if len(line) > 10 {
			t.Fatalf("line %q exceeds 10 columns", line)
		}
	}
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, "\n\n\n") {
		t.Fatalf("blank runs should collapse: %q", joined)
	}
	if !strings.Contains(joined, "Second") || !strings.Contains(joined, "paragraph") {
		t.Fatalf("second paragraph missing: %q", joined)
	}
	if lines[len(lines)-1] == "" {
		t.Fatal("trailing blank lines should be trimmed")
	}
}

func TestRasterizeBreaksLongWords(t *testing.T) {
	lines, err := Rasterize(context.Background(), strings.Repeat("x", 30), 8)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if len(lines) < 4 {
		t.Fatalf("expected hard wrapped lines, got %q", lines)
	}
	for _, line := range lines {
		if len(line) > 8 {
			t.Fatalf("line %q exceeds 8 columns", line)
		}
	}
}

func TestRasterizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Rasterize(ctx, "a\nb", 20); !IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestColumnsScaleWithWidth(t *testing.T) {
	if got := Columns(612, 1); got != 85 {
		t.Fatalf("letter columns mismatch: got %d want 85", got)
	}
	if got := Columns(612, 2); got != 170 {
		t.Fatalf("zoomed columns mismatch: got %d want 170", got)
	}
	if got := Columns(0, 1); got != 85 {
		t.Fatalf("missing width should default to letter, got %d", got)
	}
	if got := Columns(10, 0.5); got != minColumns {
		t.Fatalf("columns should be floored, got %d", got)
	}
}

func TestTextPageForLine(t *testing.T) {
	text := NewText([]string{"one\ntwo", "three", "four\nfive\nsix"})
	if text.Full != "one\ntwo\n\nthree\n\nfour\nfive\nsix" {
		t.Fatalf("unexpected full text %q", text.Full)
	}
	cases := map[int]int{0: 1, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 7: 3}
	for line, want := range cases {
		if got := text.PageForLine(line); got != want {
			t.Fatalf("line %d: got page %d want %d", line, got, want)
		}
	}
	if got := NewText(nil).PageForLine(0); got != 0 {
		t.Fatalf("empty text should map to page 0, got %d", got)
	}
}

func TestExtractTextJoinsPagesInOrder(t *testing.T) {
	src := &fakeSource{texts: []string{"alpha\n", "beta", "gamma"}}
	text, err := ExtractText(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text.Full != "alpha\n\nbeta\n\ngamma" {
		t.Fatalf("unexpected text %q", text.Full)
	}
	if len(text.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(text.Pages))
	}
}

func TestExtractTextPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{texts: []string{"a", "b", "c"}, fail: map[int]error{2: boom}}
	if _, err := ExtractText(context.Background(), src, 0); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
