package feishu

import (
	"context"
	"errors"
	"fmt"

	"relnotes/internal/config"
	"relnotes/internal/logger"
	"relnotes/internal/models"
)

// bitableObjType is the obj_type of a wiki node backed by a multi-dimensional table.
const bitableObjType = "bitable"

// Fetch failure kinds.
var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrResourceResolution = errors.New("resource resolution failed")
	ErrFetch              = errors.New("record fetch failed")
)

// Credentials are the app id and secret of a Feishu custom app.
type Credentials struct {
	AppID     string
	AppSecret string
}

// Options tunes the records search.
type Options struct {
	// PageSize is sent as page_size when positive.
	PageSize int
	// AllPages follows page_token until has_more is false. Off by default:
	// only the first page is read.
	AllPages bool
}

// Result is everything Fetch retrieved.
type Result struct {
	StorageAppID string
	Records      []models.RawRecord
	Pages        int
}

// Fetcher resolves the configured table view and retrieves its raw records.
type Fetcher struct {
	client Client
	logger *logger.Logger
	opts   Options
}

// NewFetcher creates a fetcher over the given client.
func NewFetcher(client Client, log *logger.Logger, opts Options) *Fetcher {
	if log == nil {
		log = logger.Discard()
	}

	return &Fetcher{
		client: client,
		logger: log,
		opts:   opts,
	}
}

// Authenticate exchanges app credentials for a tenant access token.
func (f *Fetcher) Authenticate(ctx context.Context, appID, appSecret string) (string, error) {
	token, err := f.client.TenantAccessToken(ctx, appID, appSecret)
	if err != nil {
		return "", fmt.Errorf("%w: app %s: %w", ErrAuthentication, appID, err)
	}

	if token == "" {
		return "", fmt.Errorf("%w: app %s: response has no tenant_access_token", ErrAuthentication, appID)
	}

	return token, nil
}

// ResolveResource finds the bitable app token mounted at a wiki node.
func (f *Fetcher) ResolveResource(ctx context.Context, nodeToken, token string) (string, error) {
	node, err := f.client.GetNode(ctx, token, nodeToken)
	if err != nil {
		return "", fmt.Errorf("%w: node %s: %w", ErrResourceResolution, nodeToken, err)
	}

	if node == nil {
		return "", fmt.Errorf("%w: node %s not found", ErrResourceResolution, nodeToken)
	}

	if node.ObjType != bitableObjType {
		return "", fmt.Errorf("%w: node %s mounts %q, want %q", ErrResourceResolution, nodeToken, node.ObjType, bitableObjType)
	}

	if node.ObjToken == "" {
		return "", fmt.Errorf("%w: node %s has no obj_token", ErrResourceResolution, nodeToken)
	}

	f.logger.Debug("resolved wiki node", "node", nodeToken, "title", node.Title, "app_token", node.ObjToken)

	return node.ObjToken, nil
}

// FetchRecords searches the view and returns its records in source order.
func (f *Fetcher) FetchRecords(ctx context.Context, storageAppID, tableID, viewID, token string) ([]models.RawRecord, error) {
	records, _, err := f.fetchPages(ctx, storageAppID, tableID, viewID, token)

	return records, err
}

func (f *Fetcher) fetchPages(ctx context.Context, storageAppID, tableID, viewID, token string) ([]models.RawRecord, int, error) {
	req := SearchRequest{ViewID: viewID, PageSize: f.opts.PageSize}
	seen := map[string]bool{}

	var records []models.RawRecord

	for pages := 1; ; pages++ {
		page, err := f.client.SearchRecords(ctx, token, storageAppID, tableID, req)
		if err != nil {
			return nil, pages, fmt.Errorf("%w: table %s view %s: %w", ErrFetch, tableID, viewID, err)
		}

		if page == nil {
			return nil, pages, fmt.Errorf("%w: table %s view %s: empty response", ErrFetch, tableID, viewID)
		}

		records = append(records, page.Items...)

		f.logger.Debug("fetched page", "page", pages, "items", len(page.Items), "has_more", page.HasMore)

		if !f.opts.AllPages || !page.HasMore || page.PageToken == "" {
			return records, pages, nil
		}

		if seen[page.PageToken] {
			return nil, pages, fmt.Errorf("%w: page token %s repeated", ErrFetch, page.PageToken)
		}

		seen[page.PageToken] = true
		req.PageToken = page.PageToken
	}
}

// Fetch authenticates, resolves the source node and retrieves the records of its view.
func (f *Fetcher) Fetch(ctx context.Context, creds Credentials, src config.Source) (*Result, error) {
	token, err := f.Authenticate(ctx, creds.AppID, creds.AppSecret)
	if err != nil {
		return nil, err
	}

	appToken, err := f.ResolveResource(ctx, src.NodeToken, token)
	if err != nil {
		return nil, err
	}

	records, pages, err := f.fetchPages(ctx, appToken, src.TableID, src.ViewID, token)
	if err != nil {
		return nil, err
	}

	f.logger.Info("fetched records", "table", src.TableID, "view", src.ViewID, "records", len(records), "pages", pages)

	return &Result{
		StorageAppID: appToken,
		Records:      records,
		Pages:        pages,
	}, nil
}
