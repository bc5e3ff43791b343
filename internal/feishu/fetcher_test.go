package feishu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relnotes/internal/config"
	"relnotes/internal/models"
)

var errBoom = errors.New("boom")

// MockClient implements the Client interface for testing.
type MockClient struct {
	TokenFunc  func(appID, appSecret string) (string, error)
	NodeFunc   func(token, nodeToken string) (*Node, error)
	SearchFunc func(token, appToken, tableID string, req SearchRequest) (*SearchPage, error)
	Searches   []SearchRequest
}

func (m *MockClient) TenantAccessToken(_ context.Context, appID, appSecret string) (string, error) {
	if m.TokenFunc != nil {
		return m.TokenFunc(appID, appSecret)
	}

	return "t-default", nil
}

func (m *MockClient) GetNode(_ context.Context, token, nodeToken string) (*Node, error) {
	if m.NodeFunc != nil {
		return m.NodeFunc(token, nodeToken)
	}

	return &Node{ObjToken: "app-default", ObjType: "bitable"}, nil
}

func (m *MockClient) SearchRecords(_ context.Context, token, appToken, tableID string, req SearchRequest) (*SearchPage, error) {
	m.Searches = append(m.Searches, req)

	if m.SearchFunc != nil {
		return m.SearchFunc(token, appToken, tableID, req)
	}

	return &SearchPage{}, nil
}

var testSource = config.Source{NodeToken: "Node1", TableID: "tbl1", ViewID: "vew1"}

func TestFetcher_Fetch(t *testing.T) {
	mock := &MockClient{
		TokenFunc: func(appID, appSecret string) (string, error) {
			assert.Equal(t, "cli_a", appID)
			assert.Equal(t, "sec", appSecret)

			return "t-1", nil
		},
		NodeFunc: func(token, nodeToken string) (*Node, error) {
			assert.Equal(t, "t-1", token)
			assert.Equal(t, "Node1", nodeToken)

			return &Node{ObjToken: "bascnApp", ObjType: "bitable"}, nil
		},
		SearchFunc: func(token, appToken, tableID string, req SearchRequest) (*SearchPage, error) {
			assert.Equal(t, "t-1", token)
			assert.Equal(t, "bascnApp", appToken)
			assert.Equal(t, "tbl1", tableID)
			assert.Equal(t, "vew1", req.ViewID)

			return &SearchPage{
				Items:     []models.RawRecord{{RecordID: "rec1"}, {RecordID: "rec2"}},
				HasMore:   true,
				PageToken: "next",
			}, nil
		},
	}

	res, err := NewFetcher(mock, nil, Options{}).Fetch(context.Background(), Credentials{AppID: "cli_a", AppSecret: "sec"}, testSource)
	require.NoError(t, err)

	assert.Equal(t, "bascnApp", res.StorageAppID)
	assert.Equal(t, 1, res.Pages, "only the first page is read by default")
	require.Len(t, res.Records, 2)
	assert.Equal(t, "rec1", res.Records[0].RecordID)
	assert.Equal(t, "rec2", res.Records[1].RecordID)
	assert.Len(t, mock.Searches, 1)
}

func TestFetcher_AllPages(t *testing.T) {
	pages := map[string]*SearchPage{
		"":   {Items: []models.RawRecord{{RecordID: "a"}}, HasMore: true, PageToken: "p2"},
		"p2": {Items: []models.RawRecord{{RecordID: "b"}}, HasMore: true, PageToken: "p3"},
		"p3": {Items: []models.RawRecord{{RecordID: "c"}}, HasMore: false},
	}

	mock := &MockClient{
		SearchFunc: func(_, _, _ string, req SearchRequest) (*SearchPage, error) {
			return pages[req.PageToken], nil
		},
	}

	records, err := NewFetcher(mock, nil, Options{AllPages: true, PageSize: 2}).
		FetchRecords(context.Background(), "app", "tbl", "vew", "t")
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.RecordID)
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids)
	require.Len(t, mock.Searches, 3)
	assert.Equal(t, 2, mock.Searches[0].PageSize)
}

func TestFetcher_AllPagesRepeatedToken(t *testing.T) {
	mock := &MockClient{
		SearchFunc: func(_, _, _ string, _ SearchRequest) (*SearchPage, error) {
			return &SearchPage{HasMore: true, PageToken: "loop"}, nil
		},
	}

	_, err := NewFetcher(mock, nil, Options{AllPages: true}).
		FetchRecords(context.Background(), "app", "tbl", "vew", "t")
	require.ErrorIs(t, err, ErrFetch)
}

func TestFetcher_Errors(t *testing.T) {
	tests := map[string]struct {
		mock    *MockClient
		wantErr error
	}{
		"token call fails": {
			mock:    &MockClient{TokenFunc: func(_, _ string) (string, error) { return "", errBoom }},
			wantErr: ErrAuthentication,
		},
		"token missing": {
			mock:    &MockClient{TokenFunc: func(_, _ string) (string, error) { return "", nil }},
			wantErr: ErrAuthentication,
		},
		"node call fails": {
			mock:    &MockClient{NodeFunc: func(_, _ string) (*Node, error) { return nil, errBoom }},
			wantErr: ErrResourceResolution,
		},
		"node missing": {
			mock:    &MockClient{NodeFunc: func(_, _ string) (*Node, error) { return nil, nil }},
			wantErr: ErrResourceResolution,
		},
		"node is a doc": {
			mock: &MockClient{NodeFunc: func(_, _ string) (*Node, error) {
				return &Node{ObjToken: "doxcn", ObjType: "docx"}, nil
			}},
			wantErr: ErrResourceResolution,
		},
		"node without obj token": {
			mock: &MockClient{NodeFunc: func(_, _ string) (*Node, error) {
				return &Node{ObjType: "bitable"}, nil
			}},
			wantErr: ErrResourceResolution,
		},
		"search fails": {
			mock: &MockClient{SearchFunc: func(_, _, _ string, _ SearchRequest) (*SearchPage, error) {
				return nil, &APIError{StatusCode: 200, Code: 1254040, Msg: "view not found"}
			}},
			wantErr: ErrFetch,
		},
		"search returns nothing": {
			mock: &MockClient{SearchFunc: func(_, _, _ string, _ SearchRequest) (*SearchPage, error) {
				return nil, nil
			}},
			wantErr: ErrFetch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := NewFetcher(tt.mock, nil, Options{}).Fetch(context.Background(), Credentials{AppID: "a", AppSecret: "b"}, testSource)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
		})
	}
}

func TestFetcher_WrapsAPIError(t *testing.T) {
	mock := &MockClient{SearchFunc: func(_, _, _ string, _ SearchRequest) (*SearchPage, error) {
		return nil, &APIError{StatusCode: 200, Code: 1254040, Msg: "view not found"}
	}}

	_, err := NewFetcher(mock, nil, Options{}).FetchRecords(context.Background(), "app", "tbl", "vew", "t")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1254040, apiErr.Code)
	assert.Contains(t, err.Error(), "tbl")
}
