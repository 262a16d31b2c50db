package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://mybusiness.googleapis.com/v4"
	maxBodySize    = 8 << 20
)

// APIError is a non-2xx answer from the Business Profile API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("Google API error (%d)", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Client lists accounts, locations and reviews. Every list follows
// nextPageToken until it is missing or the page ceiling is reached.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type pageSpec struct {
	listKey  string
	pageSize int
	maxPages int
}

var (
	accountPages  = pageSpec{listKey: "accounts", pageSize: 20, maxPages: 5}
	locationPages = pageSpec{listKey: "locations", pageSize: 100, maxPages: 10}
	reviewPages   = pageSpec{listKey: "reviews", pageSize: 50, maxPages: 10}
)

func (c *Client) ListAccounts(ctx context.Context, token string) ([]Account, error) {
	return listPaged[Account](ctx, c, token, c.baseURL+"/accounts", accountPages)
}

// ListLocations lists the locations of account ("accounts/123" or "123").
func (c *Client) ListLocations(ctx context.Context, token, account string) ([]Location, error) {
	if strings.TrimSpace(account) == "" {
		return nil, ErrAccountRequired
	}
	return listPaged[Location](ctx, c, token, c.resourceURL(account, "locations"), locationPages)
}

// ListReviews lists the reviews of location
// ("accounts/123/locations/456" or "123/locations/456").
func (c *Client) ListReviews(ctx context.Context, token, location string) ([]Review, error) {
	if strings.TrimSpace(location) == "" {
		return nil, ErrLocationRequired
	}
	return listPaged[Review](ctx, c, token, c.resourceURL(location, "reviews"), reviewPages)
}

// AccountName adds the accounts/ prefix when name lacks it.
func AccountName(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if strings.HasPrefix(name, "accounts/") {
		return name
	}
	return "accounts/" + name
}

func (c *Client) resourceURL(name, collection string) string {
	segments := strings.Split(AccountName(name), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(segments, "/") + "/" + collection
}

func listPaged[T any](ctx context.Context, c *Client, token, endpoint string, spec pageSpec) ([]T, error) {
	items := []T{}
	pageToken := ""
	for page := 0; page < spec.maxPages; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(spec.pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var body map[string]json.RawMessage
		if err := c.get(ctx, endpoint+"?"+q.Encode(), token, &body); err != nil {
			return nil, err
		}
		if raw, ok := body[spec.listKey]; ok && string(raw) != "null" {
			var pageItems []T
			if err := json.Unmarshal(raw, &pageItems); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", spec.listKey, err)
			}
			items = append(items, pageItems...)
		}

		pageToken = ""
		if raw, ok := body["nextPageToken"]; ok {
			if err := json.Unmarshal(raw, &pageToken); err != nil {
				pageToken = ""
			}
		}
		if pageToken == "" {
			break
		}
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("google GET %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("google GET %s: reading response: %w", req.URL.Path, err)
	}
	c.logger.DebugContext(ctx, "google request", "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("google GET %s: decoding response: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage reads error.message, falling back to a top-level message.
func errorMessage(raw []byte) string {
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return body.Message
}
