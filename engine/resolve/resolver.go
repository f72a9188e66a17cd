// Package resolve validates track audio URLs before a transcoder permit is
// spent on them.
package resolve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rae1st/oscillate/engine"
)

// Resolver probes audio URLs with HEAD requests. CDN-issued URLs expire;
// probing before playback turns a mid-track failure into an upfront error
// the caller can react to.
type Resolver struct {
	client *retryablehttp.Client
}

// New creates a resolver with the given per-request timeout and retry count.
func New(timeout time.Duration, retryMax int, log engine.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	if log != nil {
		client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				log.Debug("retrying url probe", "url", req.URL.String(), "attempt", attempt)
			}
		}
	}

	return &Resolver{client: client}
}

// Resolve probes the track's audio URL and returns the final URL after
// redirects. A non-2xx terminal status fails with the status in the error.
func (r *Resolver) Resolve(ctx context.Context, track *engine.Track) (string, error) {
	if track == nil || track.AudioURL == "" {
		return "", engine.ErrNoAudioURL
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, track.AudioURL, nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", track.AudioURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("probe %s: status %d", track.AudioURL, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}
