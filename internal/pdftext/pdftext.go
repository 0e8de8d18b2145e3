// Package pdftext extracts plain text from PDF bank statements.
package pdftext

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrWrongPassword is returned when the PDF is encrypted and the supplied
// password does not unlock it.
var ErrWrongPassword = errors.New("pdftext: wrong password")

// ErrNoText is returned when no readable text could be decoded from the PDF,
// typically because the document is image-based or scanned.
var ErrNoText = errors.New("pdftext: no readable text in document")

// Extract reads the PDF at path and returns its text content with pages
// joined by blank lines. password may be empty for unencrypted documents.
func Extract(path, password string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdftext.Extract: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("pdftext.Extract: %w", err)
	}

	r, err := newReader(f, info.Size(), password)
	if err != nil {
		return "", err
	}

	pages, err := readPages(r)
	if err != nil {
		return "", err
	}
	if !isReadable(pages) {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

func newReader(f *os.File, size int64, password string) (*pdf.Reader, error) {
	// The password callback is invoked again after a failed attempt;
	// returning "" the second time makes the library give up instead
	// of looping.
	asked := false
	pw := func() string {
		if asked {
			return ""
		}
		asked = true
		return password
	}

	r, err := pdf.NewReaderEncrypted(f, size, pw)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("pdftext.Extract: open pdf: %w", err)
	}
	return r, nil
}

// readPages walks every page and extracts text row by row. The library
// panics on some malformed documents, so the whole walk is recovered.
func readPages(r *pdf.Reader) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdftext: pdf parser failed: %v", rec)
		}
	}()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, ErrNoText
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text := pageText(page)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

// pageText tries row-based extraction first for layout fidelity, then
// falls back to the page's plain-text path.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	fontNames := page.Fonts()
	fonts := make(map[string]*pdf.Font, len(fontNames))
	for _, name := range fontNames {
		f := page.Font(name)
		fonts[name] = &f
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// isReadable rejects extractions that are too short or mostly binary
// garbage, which happens with identity-encoded fonts and scanned pages.
func isReadable(pages []string) bool {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*", r)) {
				readable++
			}
		}
	}
	if total <= 50 {
		return false
	}
	return float64(readable)/float64(total) > 0.6
}
