// Package feishu fetches release records from a Feishu wiki-mounted bitable.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"relnotes/internal/logger"
	"relnotes/internal/models"
	"relnotes/pkg/utils"
)

const maxResponseBytes = 10 * 1024 * 1024

// API paths relative to the open-apis root.
const (
	pathTenantToken = "/auth/v3/tenant_access_token/internal/"
	pathGetNode     = "/wiki/v2/spaces/get_node"
	pathSearch      = "/bitable/v1/apps/%s/tables/%s/records/search"
)

// ErrInvalidResponse is returned when a response body is not the expected JSON.
var ErrInvalidResponse = errors.New("invalid response body")

// Client defines the remote calls the fetcher needs.
type Client interface {
	TenantAccessToken(ctx context.Context, appID, appSecret string) (string, error)
	GetNode(ctx context.Context, token, nodeToken string) (*Node, error)
	SearchRecords(ctx context.Context, token, appToken, tableID string, req SearchRequest) (*SearchPage, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// APIError is a non-2xx response or a response with a non-zero business code.
type APIError struct {
	Msg        string
	Body       string
	StatusCode int
	Code       int
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("HTTP %d: code %d: %s", e.StatusCode, e.Code, e.Msg)
	}

	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Node is the wiki node metadata returned by get_node.
type Node struct {
	SpaceID   string `json:"space_id"`
	NodeToken string `json:"node_token"`
	ObjToken  string `json:"obj_token"`
	ObjType   string `json:"obj_type"`
	Title     string `json:"title"`
}

// SearchRequest scopes a records search. PageSize and PageToken travel as query parameters.
type SearchRequest struct {
	ViewID    string `json:"view_id"`
	PageToken string `json:"-"`
	PageSize  int    `json:"-"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	PageToken string             `json:"page_token"`
	Items     []models.RawRecord `json:"items"`
	Total     int                `json:"total"`
	HasMore   bool               `json:"has_more"`
}

type result interface {
	status() (int, string)
}

type envelope struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

func (e envelope) status() (int, string) { return e.Code, e.Msg }

type tokenResponse struct {
	TenantAccessToken string `json:"tenant_access_token"`
	envelope
	Expire int `json:"expire"`
}

type nodeResponse struct {
	Data struct {
		Node *Node `json:"node"`
	} `json:"data"`
	envelope
}

type searchResponse struct {
	Data *SearchPage `json:"data"`
	envelope
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// HTTPClient talks to the Feishu open platform over HTTPS.
type HTTPClient struct {
	httpClient *http.Client
	headers    *utils.HTTPHelper
	text       *utils.StringHelper
	logger     *logger.Logger
	baseURL    string
}

// NewHTTPClient creates a client rooted at baseURL (for example https://open.feishu.cn/open-apis).
func NewHTTPClient(baseURL string, log *logger.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: utils.NewHTTPHelper(),
		text:    utils.NewStringHelper(),
		logger:  log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TenantAccessToken exchanges app credentials for a tenant access token.
func (c *HTTPClient) TenantAccessToken(ctx context.Context, appID, appSecret string) (string, error) {
	body := map[string]string{
		"app_id":     appID,
		"app_secret": appSecret,
	}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, pathTenantToken, nil, "", body, &resp); err != nil {
		return "", err
	}

	return resp.TenantAccessToken, nil
}

// GetNode looks up a wiki node by token.
func (c *HTTPClient) GetNode(ctx context.Context, token, nodeToken string) (*Node, error) {
	query := url.Values{}
	query.Set("token", nodeToken)
	query.Set("obj_type", "wiki")

	var resp nodeResponse
	if err := c.do(ctx, http.MethodGet, pathGetNode, query, token, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Data.Node, nil
}

// SearchRecords runs a records search scoped to a view and returns one page.
func (c *HTTPClient) SearchRecords(ctx context.Context, token, appToken, tableID string, req SearchRequest) (*SearchPage, error) {
	query := url.Values{}
	if req.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(req.PageSize))
	}

	if req.PageToken != "" {
		query.Set("page_token", req.PageToken)
	}

	path := fmt.Sprintf(pathSearch, url.PathEscape(appToken), url.PathEscape(tableID))

	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, path, query, token, req, &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("%w: search response has no data", ErrInvalidResponse)
	}

	return resp.Data, nil
}

// do sends one JSON request and decodes the response into dest.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, token string, body any, dest result) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = c.headers.BuildHeaders(token, nil)

	if c.logger != nil {
		c.logger.Debug("feishu request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	decodeErr := json.Unmarshal(raw, dest)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       c.text.TruncateString(c.text.NormalizeWhitespace(string(raw)), 512),
		}
		if decodeErr == nil {
			apiErr.Code, apiErr.Msg = dest.status()
		}

		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, decodeErr)
	}

	if code, msg := dest.status(); code != 0 {
		return &APIError{StatusCode: resp.StatusCode, Code: code, Msg: msg}
	}

	return nil
}
