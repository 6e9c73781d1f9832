package document

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"pkt.systems/pslog"
)

// Validation selects how strictly files are checked before decoding.
type Validation string

const (
	ValidationNone    Validation = "none"
	ValidationRelaxed Validation = "relaxed"
	ValidationStrict  Validation = "strict"
)

// ParseValidation maps a config value to a Validation, defaulting to relaxed.
func ParseValidation(value string) (Validation, error) {
	switch Validation(strings.ToLower(strings.TrimSpace(value))) {
	case "", ValidationRelaxed:
		return ValidationRelaxed, nil
	case ValidationStrict:
		return ValidationStrict, nil
	case ValidationNone:
		return ValidationNone, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", value)
	}
}

// PDFOptions configures PDFOpener.
type PDFOptions struct {
	Validation Validation
}

// PDFOpener opens local PDF files. pdfcpu validates the file, then
// ledongthuc/pdf decodes pages for text and geometry.
type PDFOpener struct {
	validation Validation
}

var disablePDFCPUConfig sync.Once

// NewPDFOpener returns an opener using opts.
func NewPDFOpener(opts PDFOptions) *PDFOpener {
	if opts.Validation == "" {
		opts.Validation = ValidationRelaxed
	}
	if opts.Validation != ValidationNone {
		// pdfcpu otherwise writes a config directory under the user's home.
		disablePDFCPUConfig.Do(api.DisableConfigDir)
	}
	return &PDFOpener{validation: opts.Validation}
}

// Check implements Opener.
func (o *PDFOpener) Check(path string) error {
	return CheckFormat(path)
}

// Open implements Opener.
func (o *PDFOpener) Open(ctx context.Context, path string) (src Source, err error) {
	log := pslog.Ctx(ctx).With("document", path)
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrCancelled, err)}
	}
	if err := o.validate(path); err != nil {
		log.Warn("pdf validation failed", "mode", string(o.validation), "err", err)
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrCancelled, err)}
	}

	defer func() {
		// ledongthuc/pdf panics on some malformed object graphs.
		if r := recover(); r != nil {
			src = nil
			err = &LoadError{Path: path, Err: fmt.Errorf("decode pdf: %v", r)}
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("open pdf: %w", err)}
	}
	pages := reader.NumPage()
	log.Debug("pdf opened", "pages", pages)
	return &pdfSource{
		path:    path,
		file:    file,
		reader:  reader,
		pages:   pages,
		texts:   make(map[int]string, pages),
		pending: map[uint64]context.CancelFunc{},
	}, nil
}

func (o *PDFOpener) validate(path string) error {
	if o.validation == ValidationNone {
		return nil
	}
	conf := model.NewDefaultConfiguration()
	if o.validation == ValidationStrict {
		conf.ValidationMode = model.ValidationStrict
	} else {
		conf.ValidationMode = model.ValidationRelaxed
	}
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	return nil
}

type pdfSource struct {
	path  string
	pages int

	// mu guards file, reader, texts and released; the reader is not safe
	// for concurrent use.
	mu       sync.Mutex
	file     *os.File
	reader   *pdf.Reader
	texts    map[int]string
	released bool

	pendingMu sync.Mutex
	pending   map[uint64]context.CancelFunc
	nextID    uint64
}

func (s *pdfSource) PageCount() int {
	return s.pages
}

func (s *pdfSource) PageWidth(page int) (width float64, err error) {
	if err := s.checkPage(page); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return 0, ErrReleased
	}
	defer func() {
		if r := recover(); r != nil {
			width, err = DefaultPageWidth, nil
		}
	}()
	return mediaBoxWidth(s.reader.Page(page).V), nil
}

func (s *pdfSource) PageText(ctx context.Context, page int) (string, error) {
	if err := s.checkPage(page); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", ErrReleased
	}
	if text, ok := s.texts[page]; ok {
		return text, nil
	}
	text, err := s.extract(page)
	if err != nil {
		return "", err
	}
	s.texts[page] = text
	return text, nil
}

func (s *pdfSource) extract(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract page %d: %v", page, r)
		}
	}()
	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", page, err)
	}
	return text, nil
}

func (s *pdfSource) RenderPage(ctx context.Context, page int, scale float64) (Bitmap, error) {
	ctx, done := s.track(ctx)
	defer done()

	log := pslog.Ctx(ctx).With("page", page, "scale", scale)
	width, err := s.PageWidth(page)
	if err != nil {
		return Bitmap{}, &RenderError{Page: page, Err: err}
	}
	text, err := s.PageText(ctx, page)
	if err != nil {
		if IsCancelled(err) {
			return Bitmap{}, err
		}
		return Bitmap{}, &RenderError{Page: page, Err: err}
	}
	columns := Columns(width, scale)
	lines, err := Rasterize(ctx, text, columns)
	if err != nil {
		return Bitmap{}, err
	}
	if err := ctx.Err(); err != nil {
		return Bitmap{}, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	log.Debug("page rendered", "columns", columns, "lines", len(lines))
	return Bitmap{Page: page, Scale: scale, Columns: columns, Lines: lines}, nil
}

// track registers a cancellable render so CancelPending can abort it.
func (s *pdfSource) track(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s.pendingMu.Lock()
	s.nextID++
	id := s.nextID
	s.pending[id] = cancel
	s.pendingMu.Unlock()
	return ctx, func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
		cancel()
	}
}

func (s *pdfSource) CancelPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, cancel := range s.pending {
		cancel()
		delete(s.pending, id)
	}
}

func (s *pdfSource) Release() error {
	s.CancelPending()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	s.reader = nil
	s.texts = nil
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func (s *pdfSource) checkPage(page int) error {
	if page < 1 || page > s.pages {
		return fmt.Errorf("page %d out of range [1, %d]", page, s.pages)
	}
	return nil
}

// mediaBoxWidth walks the page tree for an inherited MediaBox.
func mediaBoxWidth(v pdf.Value) float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			if width := box.Index(2).Float64() - box.Index(0).Float64(); width > 0 {
				return width
			}
		}
		v = v.Key("Parent")
	}
	return DefaultPageWidth
}
