// Package doctext pulls plain text out of stored claim documents. PDF bills
// and prescriptions are parsed directly; scanned images carry no extractable
// text here and fall through with zero confidence, which the engine treats
// as missing documentation.
package doctext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

const (
	pdfConfidence   = 0.8
	plainConfidence = 0.9
)

type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, key, filename string) (string, float64, error) {
	rc, err := e.storage.Open(ctx, key)
	if err != nil {
		return "", 0, fmt.Errorf("open document %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", 0, fmt.Errorf("read document %s: %w", key, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			// A corrupt PDF is handled as an unreadable document, not a
			// pipeline fault.
			slog.Warn("pdf_extraction_failed", "key", key, "error", err)
			return "", 0, nil
		}
		return text, pdfConfidence, nil
	case ".jpg", ".jpeg", ".png":
		return "", 0, nil
	default:
		if utf8.Valid(data) {
			return string(data), plainConfidence, nil
		}
		return "", 0, nil
	}
}

// extractPDF concatenates the plain text of every page. The parser panics on
// some malformed files, so the panic is converted to an error here.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), nil
}
