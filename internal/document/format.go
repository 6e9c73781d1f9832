package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// sniffLimit bounds the header scan; some producers emit junk before %PDF-.
const sniffLimit = 1024

// CheckFormat rejects anything that is not a .pdf file with a PDF header.
// A missing or unreadable file passes so that Open reports it as a LoadError,
// which is retryable.
func CheckFormat(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrUnsupportedFormat, filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return fmt.Errorf("%w: %s has no PDF header", ErrUnsupportedFormat, filepath.Base(path))
	}
	return nil
}
