// internal/extractor/fetcher.go
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	scouterrors "clinic-scout/internal/common/errors"
)

// Fetcher retrieves the rendered HTML of a page. Clinic sites are often
// JS-rendered, so raw HTML from a plain GET is not enough; the production
// implementation delegates to a headless-browser render service.
type Fetcher interface {
	FetchRendered(ctx context.Context, pageURL string, timeout time.Duration) (string, error)
}

// RenderClient calls a headless render service ("/content?url=..." style
// endpoint) that executes page scripts and returns the resulting DOM.
type RenderClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRenderClient(baseURL, token string) *RenderClient {
	return &RenderClient{
		baseURL: baseURL,
		token:   token,
		// No client-level timeout; each fetch carries its own budget
		// through the request context.
		client: &http.Client{},
	}
}

func (r *RenderClient) FetchRendered(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/content?url=%s", r.baseURL, url.QueryEscape(pageURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", scouterrors.NewFetchFailedError(pageURL, err)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", scouterrors.NewFetchTimeoutError(pageURL, timeout)
		}
		return "", scouterrors.NewFetchFailedError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", scouterrors.NewFetchFailedError(pageURL, fmt.Errorf("render service status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", scouterrors.NewFetchTimeoutError(pageURL, timeout)
		}
		return "", scouterrors.NewFetchFailedError(pageURL, err)
	}

	return string(body), nil
}
