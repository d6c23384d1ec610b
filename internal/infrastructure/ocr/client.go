// Package ocr talks to the external rasterize+recognize service used for
// scanned submissions.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// OCR on a long scanned document is legitimately slow.
		httpClient: &http.Client{Timeout: 300 * time.Second},
		executor:   executor,
	}
}

// RenderPages rasterizes every page of the PDF to a PNG at the given DPI.
func (c *Client) RenderPages(ctx context.Context, pdfData []byte, dpi int) ([][]byte, error) {
	request := map[string]any{
		"pdf": base64.StdEncoding.EncodeToString(pdfData),
		"dpi": dpi,
	}
	var response struct {
		Pages []string `json:"pages"`
	}
	if err := c.postJSON(ctx, "/render", request, &response, "render"); err != nil {
		return nil, err
	}

	pages := make([][]byte, 0, len(response.Pages))
	for i, encoded := range response.Pages {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode page %d image: %w", i+1, err)
		}
		pages = append(pages, raw)
	}
	return pages, nil
}

// RecognizeText runs character recognition over one rendered page image.
func (c *Client) RecognizeText(ctx context.Context, image []byte, lang string) (string, error) {
	request := map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
		"lang":  lang,
	}
	var response struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/recognize", request, &response, "recognize"); err != nil {
		return "", err
	}
	return response.Text, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	call := func(callCtx context.Context) error {
		return c.doPostJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr."+operation, call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ocr %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
