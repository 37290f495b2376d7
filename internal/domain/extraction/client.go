package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service abstracts the external extractor. Implementations must be treated
// as fallible, retryable, bounded-latency calls: the engine degrades any
// failure to a FailedResult and proceeds to manual entry.
type Service interface {
	// Extract submits a scanned document and returns the extracted line
	// items and optional document metadata.
	Extract(ctx context.Context, document io.Reader) (*RawExtractionResult, error)
}

// ClientConfig configures the HTTP extraction client.
type ClientConfig struct {
	// BaseURL is the extractor endpoint, e.g. http://extractor:9090/extract
	BaseURL string

	// Timeout bounds one extraction call end to end.
	Timeout time.Duration
}

// DefaultClientConfig returns production defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 90 * time.Second,
	}
}

// Client calls the extractor over HTTP.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates an extraction client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Extract submits the document and decodes the response.
// Any transport or decode failure is returned as an error; the caller owns
// the degrade-to-empty policy.
func (c *Client) Extract(ctx context.Context, document io.Reader) (*RawExtractionResult, error) {
	body, err := io.ReadAll(document)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extractor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read extractor response: %w", err)
	}

	return Decode(payload)
}
