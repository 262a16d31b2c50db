// Package github implements remote.Store over the GitHub contents API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/remote"
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	maxBodySize    = 8 << 20
)

var _ remote.Store = (*Client)(nil)

// Client talks to the GitHub REST API with a caller-supplied token.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise host or a test server.
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

func New(opts ...Option) *Client {
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

type userResponse struct {
	Login string `json:"login"`
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type updateRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch,omitempty"`
}

type updateResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Identify resolves the login of the token owner. Any non-2xx answer is an
// authentication failure.
func (c *Client) Identify(ctx context.Context, token string) (remote.Identity, error) {
	var me userResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", token, nil, &me, identifyStatus); err != nil {
		return remote.Identity{}, err
	}
	return remote.Identity{Login: me.Login}, nil
}

// Fetch reads the file at loc. Only base64 content is accepted.
func (c *Client) Fetch(ctx context.Context, loc remote.Location, token string) (remote.Document, error) {
	if err := loc.Validate(); err != nil {
		return remote.Document{}, err
	}

	endpoint := c.contentsURL(loc) + "?ref=" + url.QueryEscape(loc.Branch)
	var file contentResponse
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &file, fetchStatus); err != nil {
		return remote.Document{}, err
	}

	if file.Encoding != "base64" {
		return remote.Document{}, fmt.Errorf("%w: %q", remote.ErrUnsupportedEncoding, file.Encoding)
	}
	raw, err := util.DecodeBase64(file.Content)
	if err != nil {
		return remote.Document{}, fmt.Errorf("%w: decoding content: %v", remote.ErrUnsupportedEncoding, err)
	}
	if !utf8.Valid(raw) {
		return remote.Document{}, fmt.Errorf("%w: content is not UTF-8", remote.ErrUnsupportedEncoding)
	}

	return remote.Document{Revision: file.SHA, Text: string(util.StripBOM(raw))}, nil
}

// Write replaces the file at loc if it is still at req.Revision.
func (c *Client) Write(ctx context.Context, loc remote.Location, token string, req remote.WriteRequest) (remote.WriteResult, error) {
	if err := remote.CheckWrite(req); err != nil {
		return remote.WriteResult{}, err
	}
	if err := loc.Validate(); err != nil {
		return remote.WriteResult{}, err
	}

	body := updateRequest{
		Message: req.CommitMessage(loc.Path),
		Content: util.EncodeBase64([]byte(req.Text)),
		SHA:     req.Revision,
		Branch:  loc.Branch,
	}
	var resp updateResponse
	if err := c.do(ctx, http.MethodPut, c.contentsURL(loc), token, body, &resp, writeStatus); err != nil {
		return remote.WriteResult{}, err
	}

	return remote.WriteResult{
		Revision:  resp.Content.SHA,
		CommitRef: resp.Commit.SHA,
		CommitURL: resp.Commit.HTMLURL,
	}, nil
}

func (c *Client) contentsURL(loc remote.Location) string {
	segments := strings.Split(strings.Trim(loc.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(loc.Owner), url.PathEscape(loc.Repo), strings.Join(segments, "/"))
}

// do sends one request. classify maps a non-2xx status and its reason to the
// error category carried by the returned *remote.APIError.
func (c *Client) do(ctx context.Context, method, endpoint, token string, in, out any, classify func(int, string) error) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("github %s %s: reading response: %w", method, req.URL.Path, err)
	}
	c.logger.DebugContext(ctx, "github request", "method", method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(raw)
		return &remote.APIError{
			Service: "GitHub",
			Status:  resp.StatusCode,
			Message: msg,
			Err:     classify(resp.StatusCode, msg),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("github %s %s: decoding response: %w", method, req.URL.Path, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Message
}

func identifyStatus(int, string) error {
	return remote.ErrAuth
}

func fetchStatus(int, string) error {
	return remote.ErrNotFoundOrAuth
}

func writeStatus(status int, msg string) error {
	switch status {
	case http.StatusConflict, http.StatusPreconditionFailed:
		return remote.ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return remote.ErrNotFoundOrAuth
	case http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(msg), "sha") {
			return remote.ErrConflict
		}
	}
	return nil
}
