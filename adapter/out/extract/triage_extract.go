// Package extract turns uploaded files into plain text for classification.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"triage_server/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// Extractor reads .txt, .pdf and .mbox uploads. Any other extension is
// decoded as UTF-8 text.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns the text content of data. Parsing failures fall back to a
// plain text decode, so an error is only returned for unrecoverable input.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			logger.WithError(err).WithField("file", filename).Warn("pdf extraction failed, decoding as text")
			return decodeText(data), nil
		}
		return text, nil
	case ".mbox":
		return MailboxText(data), nil
	default:
		return decodeText(data), nil
	}
}

// decodeText decodes UTF-8, dropping invalid byte sequences.
func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// pdfText joins the plain text of every page with newlines.
func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			content = ""
		}
		pages = append(pages, content)
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}
