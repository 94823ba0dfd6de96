package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/verdictlabs/verdict/internal/retry"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// Client downloads paginated opinion listings from the CourtListener REST API
// into the raw-artifact directory, where the bulk pipeline picks them up.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	retryOpts  retry.Options
	logger     *logger.Logger
}

func New(baseURL, token string, maxRetries int, log *logger.Logger) *Client {
	opts := retry.DefaultOptions()
	if maxRetries > 0 {
		opts.MaxAttempts = maxRetries
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
		retryOpts:  opts,
		logger:     log,
	}
}

// FetchOpinions downloads up to pages result pages into rawDir and returns
// how many were written. Pagination past the end of the result set ends the
// run without error; each page fetch retries with backoff before giving up.
func (c *Client) FetchOpinions(ctx context.Context, rawDir string, pages, pageSize int) (int, error) {
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create raw directory: %w", err)
	}

	saved := 0
	for page := 1; page <= pages; page++ {
		url := fmt.Sprintf("%s/opinions/?page=%d&page_size=%d", c.baseURL, page, pageSize)
		outPath := filepath.Join(rawDir, fmt.Sprintf("courtlistener_opinions_page%d.json", page))

		var done bool
		err := retry.Do(ctx, c.retryOpts, func() error {
			exhausted, err := c.fetchPage(ctx, url, outPath)
			if err != nil {
				c.logger.Warn("Page fetch failed", "page", page, "error", err)
				return err
			}
			done = exhausted
			return nil
		})
		if err != nil {
			return saved, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		if done {
			c.logger.Info("Reached end of result set", "page", page)
			break
		}

		saved++
		c.logger.Info("Saved opinions page", "page", page, "path", outPath)
	}

	return saved, nil
}

// fetchPage downloads one page to outPath. A 404 signals pagination past the
// end of the result set and is reported as exhausted, not as an error.
func (c *Client) fetchPage(ctx context.Context, url, outPath string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return false, nil
}
