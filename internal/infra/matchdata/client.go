package matchdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"matchday_notification_bot/internal/infra/metrics"

	"golang.org/x/time/rate"
)

var (
	// ErrUpstreamStatus is returned for non-2xx responses.
	ErrUpstreamStatus = errors.New("match-data API returned non-2xx status")
	// ErrNoUpstreamMatches is returned when the API answers with an empty match list.
	ErrNoUpstreamMatches = errors.New("match-data API returned no matches")
)

const maxPayloadBytes = 8 << 20

// ClientConfig configures the football-data.org client.
type ClientConfig struct {
	BaseURL           string
	Token             string
	Area              string
	Timeout           time.Duration
	RequestsPerMinute int // zero or negative disables rate limiting
}

// Client fetches raw fixture windows from the football-data.org v4 API.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
}

func NewClient(cfg ClientConfig, rec metrics.Recorder) *Client {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		metrics: rec,
	}
}

// FetchWindow returns the raw response body for matches between from and to
// (inclusive, YYYY-MM-DD). An empty match list is reported as an error so
// callers never cache it.
func (c *Client) FetchWindow(ctx context.Context, from, to string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("dateFrom", from)
	q.Set("dateTo", to)
	if c.cfg.Area != "" {
		q.Set("areas", c.cfg.Area)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/matches?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.RecordUpstreamLatency(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("request matches: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstreamStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read matches body: %w", err)
	}

	matches, err := parsePayload(body)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoUpstreamMatches
	}
	return body, nil
}
