package hkex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultFeedURL is the HKEX active-applications JSON endpoint.
	DefaultFeedURL = "https://www1.hkexnews.hk/ncms/json/eds/appactive_app_sehk_c.json"

	// DefaultUserAgent mirrors a desktop browser; the endpoint rejects some
	// generic client agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Fetcher retrieves the current full listing snapshot from the feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Listing, error)
}

// HTTPFetcher fetches and decodes the HKEX JSON feed over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	feedURL   string
	userAgent string
	tracer    trace.Tracer
}

func NewHTTPFetcher(feedURL string, timeout time.Duration, userAgent string) *HTTPFetcher {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		feedURL:   feedURL,
		userAgent: userAgent,
		tracer:    otel.Tracer("hkex-watch/feed"),
	}
}

type feedDocument struct {
	App []Listing `json:"app"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Listing, error) {
	ctx, span := f.tracer.Start(ctx, "hkex.fetch")
	defer span.End()

	listings, err := f.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("hkex.listings", len(listings)))
	return listings, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context) ([]Listing, error) {
	requestURL, err := cacheBustedURL(f.feedURL, time.Now())
	if err != nil {
		return nil, fmt.Errorf("build feed url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listings: unexpected status %s", resp.Status)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse feed response: %w", err)
	}
	return doc.App, nil
}

// cacheBustedURL appends a millisecond timestamp query parameter so
// intermediate caches don't serve a stale snapshot.
func cacheBustedURL(feedURL string, now time.Time) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("_", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
