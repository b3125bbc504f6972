package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakasura-ingest/internal/config"
)

// VisionClient calls the Azure Computer Vision Read API for OCR.
// The Read API is asynchronous: a submit returns an Operation-Location
// header which is polled until the analysis reaches a terminal status.
type VisionClient struct {
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
}

const readAPIPath = "/vision/v3.2/read/analyze"

// readResult mirrors the Read API operation response
type readResult struct {
	Status        string `json:"status"` // notStarted, running, succeeded, failed
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

// NewVisionClient creates an OCR client from configuration
func NewVisionClient(cfg *config.Config) *VisionClient {
	return &VisionClient{
		endpoint: strings.TrimSuffix(cfg.VisionEndpoint, "/"),
		key:      cfg.VisionKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		pollInterval: time.Second,
	}
}

// Enabled reports whether OCR credentials were configured. Pages that fail
// native extraction are skipped rather than OCRed when disabled.
func (c *VisionClient) Enabled() bool {
	return c.endpoint != "" && c.key != ""
}

// ExtractPages runs OCR and returns recognized text keyed by 1-based page
// number. The Read API accepts both images and whole PDF documents.
func (c *VisionClient) ExtractPages(ctx context.Context, data []byte) (map[int]string, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("vision OCR is not configured")
	}

	operationURL, err := c.submit(ctx, data)
	if err != nil {
		return nil, err
	}

	result, err := c.poll(ctx, operationURL)
	if err != nil {
		return nil, err
	}

	pages := make(map[int]string, len(result.AnalyzeResult.ReadResults))
	for _, page := range result.AnalyzeResult.ReadResults {
		var b strings.Builder
		for _, line := range page.Lines {
			b.WriteString(line.Text)
			b.WriteString("\n")
		}
		pages[page.Page] += b.String()
	}
	return pages, nil
}

func (c *VisionClient) submit(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+readAPIPath, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to create read request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("read submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("read submit failed with status %d: %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("read submit response missing Operation-Location header")
	}
	return operationURL, nil
}

func (c *VisionClient) poll(ctx context.Context, operationURL string) (*readResult, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("read poll failed: %w", err)
		}

		// Throttled polls back off and retry; any other non-200 response
		// is terminal. Error bodies decode into an empty status and would
		// otherwise spin until the context deadline.
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := c.pollInterval
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter):
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("read poll failed with status %d: %s", resp.StatusCode, string(body))
		}

		var result readResult
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode read result: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("read operation failed")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}
