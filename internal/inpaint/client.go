// Package inpaint talks to the external image inpainting service and hosts a
// local stand-in for it.
package inpaint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInpaintService covers transport failures, non-2xx statuses,
	// undecodable responses and results of the wrong size.
	ErrInpaintService = errors.New("inpainting service failed")
)

const (
	// DefaultURL is where the inpainting service listens by default.
	DefaultURL = "http://localhost:9000/inpaint"

	defaultHTTPTimeout = 300 * time.Second
)

// Inpainter fills the masked pixels of an image.
//
// img must already be aligned to Grid; mask is the same size and marks the
// pixels to synthesize with non-zero alpha. The result has img's dimensions.
type Inpainter interface {
	Inpaint(ctx context.Context, img *image.RGBA, mask *image.Alpha) (*image.RGBA, error)
}

// Client is the HTTP Inpainter.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

var _ Inpainter = (*Client)(nil)

type Option func(*Client)

// NewClient creates a client for the service at url (DefaultURL when empty).
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		URL:        DefaultURL,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if strings.TrimSpace(url) != "" {
		c.URL = strings.TrimSpace(url)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			return
		}
		c.HTTPClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout <= 0 {
			return
		}
		if c.HTTPClient == nil {
			c.HTTPClient = &http.Client{}
		}
		c.HTTPClient.Timeout = timeout
	}
}

// Inpaint posts img and mask and decodes the filled image.
func (c *Client) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Alpha) (*image.RGBA, error) {
	if img.Bounds().Size() != mask.Bounds().Size() {
		return nil, fmt.Errorf("inpaint: image %v, mask %v: %w", img.Bounds().Size(), mask.Bounds().Size(), ErrInpaintService)
	}

	body, err := json.Marshal(Request{
		Image: EncodeImage(img, img.Bounds()),
		Mask:  EncodeMask(mask, mask.Bounds()),
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inpaint: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inpaint: request failed: %v: %w", err, ErrInpaintService)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inpaint: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(msg)), ErrInpaintService)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("inpaint: decode response: %v: %w", err, ErrInpaintService)
	}

	result, err := DecodeImage(out.Result)
	if err != nil {
		return nil, fmt.Errorf("inpaint: %v: %w", err, ErrInpaintService)
	}
	if result.Bounds().Size() != img.Bounds().Size() {
		return nil, fmt.Errorf("inpaint: result %v, sent %v: %w", result.Bounds().Size(), img.Bounds().Size(), ErrInpaintService)
	}
	return result, nil
}
