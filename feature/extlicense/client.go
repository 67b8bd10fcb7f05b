package extlicense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"license-reconciler/core/breaker"
	"license-reconciler/core/retry"

	"go.uber.org/zap"
)

// Page is one page of external license records. Skipped holds per-record
// validation failures; they never abort the fetch.
type Page struct {
	Records       []Record
	NextPageToken string
	Skipped       []SkippedRecord
}

// SkippedRecord identifies a record dropped during a fetch and why.
type SkippedRecord struct {
	AppID  string `json:"appId"`
	Reason string `json:"reason"`
}

// APIClient is the contract the sync coordinator consumes.
type APIClient interface {
	// FetchPage fetches one page. An empty pageToken requests the first page.
	FetchPage(ctx context.Context, pageToken string, pageSize int) (*Page, error)
	// TestConnectivity verifies the API is reachable and credentials work.
	TestConnectivity(ctx context.Context) error
}

// HTTPClient talks to the external license API over HTTP. Every request
// passes through the shared circuit breaker and the retry policy.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *breaker.Breaker
	retry   retry.Policy
	logger  *zap.Logger
}

// NewHTTPClient creates an API client. The breaker instance is shared with
// the status endpoint so its state is observable.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, br *breaker.Breaker, pol retry.Policy, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: br,
		retry:   pol,
		logger:  logger,
	}
}

// FetchPage fetches one page of licenses.
func (c *HTTPClient) FetchPage(ctx context.Context, pageToken string, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	var page *Page
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.breaker.Allow(); err != nil {
			return err
		}

		body, err := c.get(ctx, "/licenses?"+q.Encode())
		c.observe(err)
		if err != nil {
			return err
		}

		p, err := decodePage(body)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// TestConnectivity probes the health endpoint.
func (c *HTTPClient) TestConnectivity(ctx context.Context) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.breaker.Allow(); err != nil {
			return err
		}
		_, err := c.get(ctx, "/health")
		c.observe(err)
		return err
	})
}

// FetchAll pages through the whole external dataset. Pagination is
// exhaustive: the coordinator must not proceed on a partial fetch.
func FetchAll(ctx context.Context, api APIClient, pageSize int) ([]Record, []SkippedRecord, error) {
	var (
		records []Record
		skipped []SkippedRecord
		token   string
	)

	for {
		page, err := api.FetchPage(ctx, token, pageSize)
		if err != nil {
			return nil, nil, err
		}

		records = append(records, page.Records...)
		skipped = append(skipped, page.Skipped...)

		if page.NextPageToken == "" {
			return records, skipped, nil
		}
		token = page.NextPageToken
	}
}

// get performs the HTTP request and maps failures onto the taxonomy.
func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &NetworkError{Op: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, &TimeoutError{Op: path, Err: err}
		}
		return nil, &NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return nil, &NetworkError{Op: path, Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &NetworkError{Op: path, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: path, Err: err}
	}
	return body, nil
}

// observe feeds the breaker. Validation errors are record-level and auth
// errors mean the service is up but rejecting us; neither says anything
// about availability, so neither moves the failure counter.
func (c *HTTPClient) observe(err error) {
	switch {
	case err == nil:
		c.breaker.Success()
	case errors.Is(err, breaker.ErrOpen), IsFatal(err), IsRecordSkip(err):
		// No signal.
	default:
		c.breaker.Failure()
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// decodePage parses a page payload. Each record is decoded independently so
// one malformed entry skips that record instead of failing the page.
func decodePage(body []byte) (*Page, error) {
	var envelope struct {
		Licenses      []json.RawMessage `json:"licenses"`
		NextPageToken string            `json:"nextPageToken"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &NetworkError{Op: "decode page", Err: err}
	}

	page := &Page{NextPageToken: envelope.NextPageToken}
	for _, raw := range envelope.Licenses {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			page.Skipped = append(page.Skipped, SkippedRecord{Reason: err.Error()})
			continue
		}
		if reason := rec.Validate(); reason != "" {
			page.Skipped = append(page.Skipped, SkippedRecord{AppID: rec.AppID, Reason: reason})
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}
