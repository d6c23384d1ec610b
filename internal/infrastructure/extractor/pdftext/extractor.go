package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/gradeflow/gradeflow/internal/core/domain"
	"github.com/gradeflow/gradeflow/internal/core/ports"
)

type Config struct {
	// MinDirectChars is the minimum number of non-whitespace characters a
	// direct text-layer extraction must yield before OCR is skipped. Below
	// it the layer is assumed to be garbage or near-empty.
	MinDirectChars int
	DPI            int
	Language       string
}

func (c Config) normalize() Config {
	out := c
	if out.MinDirectChars <= 0 {
		out.MinDirectChars = 50
	}
	if out.DPI <= 0 {
		out.DPI = 200
	}
	if out.Language == "" {
		out.Language = "eng"
	}
	return out
}

// Extractor reads a PDF's embedded text layer in-process and falls back to
// the external OCR service for scanned or image-only documents. Text-based
// PDFs are far faster to extract, so the direct path always goes first.
type Extractor struct {
	ocr    ports.OCRService
	cfg    Config
	logger *slog.Logger
}

func New(ocr ports.OCRService, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, cfg: cfg.normalize(), logger: logger}
}

// Extract returns the submission's plain text, possibly empty. Direct-layer
// failures (malformed or encrypted PDFs) are treated as insufficient text and
// trigger the OCR fallback; an OCR failure is fatal for the call.
func (e *Extractor) Extract(ctx context.Context, pdfData []byte) (string, error) {
	direct, err := directText(pdfData)
	if err != nil {
		e.logger.Warn("direct pdf extraction failed, falling back to ocr", "error", err)
	} else if countNonWhitespace(direct) >= e.cfg.MinDirectChars {
		return strings.TrimSpace(direct), nil
	} else {
		e.logger.Info("direct extraction returned insufficient text, falling back to ocr",
			"chars", countNonWhitespace(direct))
	}

	text, err := e.ocrText(ctx, pdfData)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "ocr fallback", err)
	}
	return text, nil
}

// directText concatenates the embedded text layer page by page. The pdf
// reader panics on some malformed inputs, so failures are recovered into an
// error instead of taking down the worker.
func directText(pdfData []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

func (e *Extractor) ocrText(ctx context.Context, pdfData []byte) (string, error) {
	pages, err := e.ocr.RenderPages(ctx, pdfData, e.cfg.DPI)
	if err != nil {
		return "", fmt.Errorf("render pages at %d dpi: %w", e.cfg.DPI, err)
	}

	parts := make([]string, 0, len(pages))
	for i, image := range pages {
		pageText, err := e.ocr.RecognizeText(ctx, image, e.cfg.Language)
		if err != nil {
			return "", fmt.Errorf("recognize page %d/%d: %w", i+1, len(pages), err)
		}
		parts = append(parts, pageText)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func countNonWhitespace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
