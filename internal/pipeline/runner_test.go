package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relnotes/internal/config"
	"relnotes/internal/feishu"
	"relnotes/internal/logger"
	"relnotes/internal/release"
	"relnotes/internal/validator"
)

const expectedDoc = "---\nhide:\n  - toc\n---\n\n" +
	"# Release Notes\n\n" +
	"本页列出 d.run 各项功能的一些重要变更。\n\n" +
	"## 2024-02-01\n\n" +
	"### 用户中心 v0.9.1\n\n" +
	"#### ⚡ 增强优化\n\n" +
	"- [登录]\n\n" +
	"## 2024-01-10\n\n" +
	"### 算力云 v1.2.0\n\n" +
	"#### 🚀 新功能\n\n" +
	"- [GPU调度] A100,H100\n\n" +
	"#### 🐛 故障修复\n\n" +
	"- [修复显存泄漏]\n\n" +
	"## TBD\n\n" +
	"### 费用中心 v0.3.0\n\n" +
	"- [账单导出]\n"

// fakeFeishu serves the three open platform endpoints used by the fetcher.
type fakeFeishu struct {
	t          *testing.T
	searchBody string
	searches   int
}

func (f *fakeFeishu) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/v3/tenant_access_token/internal/":
		_, _ = io.WriteString(w, `{"code":0,"msg":"ok","tenant_access_token":"t-abc","expire":7200}`)
	case "/wiki/v2/spaces/get_node":
		assert.Equal(f.t, "Bearer t-abc", r.Header.Get("Authorization"))
		assert.Equal(f.t, "WikiNode", r.URL.Query().Get("token"))
		_, _ = io.WriteString(w, `{"code":0,"data":{"node":{"obj_token":"bascnApp","obj_type":"bitable"}}}`)
	case "/bitable/v1/apps/bascnApp/tables/tblRel/records/search":
		f.searches++
		_, _ = io.WriteString(w, f.searchBody)
	default:
		http.NotFound(w, r)
	}
}

func newFake(t *testing.T) (*fakeFeishu, *config.Config) {
	t.Helper()

	body, err := os.ReadFile(filepath.Join("testdata", "search_response.json"))
	require.NoError(t, err)

	fake := &fakeFeishu{t: t, searchBody: string(body)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()

	cfg := config.Sample()
	cfg.BaseURL = srv.URL
	cfg.URL = "https://example.feishu.cn/wiki/WikiNode?table=tblRel&view=vewAll"
	cfg.Output.Path = filepath.Join(dir, "rel-notes.md")

	return fake, cfg
}

func TestRunner_Run(t *testing.T) {
	fake, cfg := newFake(t)
	cfg.Output.CSVPath = filepath.Join(filepath.Dir(cfg.Output.Path), "rows.csv")
	cfg.Validation.Enabled = true

	var phases []string

	runner := NewHTTPRunner(cfg, logger.Discard(), Options{
		Progress: func(phase string) { phases = append(phases, phase) },
	})

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, expectedDoc, string(data))

	assert.Equal(t, runner.RunID(), report.RunID)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 4, report.Stats.Kept)
	assert.Equal(t, 1, report.Stats.DroppedNoVersion)
	assert.Equal(t, 3, report.Dates)
	assert.Equal(t, 4, report.Entries)
	assert.True(t, report.Validation.IsValid)
	assert.True(t, report.Markdown.Changed)
	assert.Equal(t, 1, fake.searches)
	assert.NotEmpty(t, phases)

	csvData, err := os.ReadFile(cfg.Output.CSVPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "功能模块,发布版本,发版时间,更新类型,一级功能,二级功能,基线参数", lines[0])
	assert.Equal(t, "算力云,v1.2.0,2024-01-10,故障修复,修复显存泄漏,,", lines[1])
	assert.Equal(t, `算力云,v1.2.0,2024-01-10,新功能,GPU调度,队列,"A100,H100"`, lines[2])
}

func TestRunner_RunTwiceIsUnchanged(t *testing.T) {
	_, cfg := newFake(t)

	first, err := NewHTTPRunner(cfg, nil, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Markdown.Changed)

	second, err := NewHTTPRunner(cfg, nil, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Markdown.Changed)
	assert.Equal(t, first.Markdown.Hash, second.Markdown.Hash)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunner_DryRun(t *testing.T) {
	_, cfg := newFake(t)

	var out bytes.Buffer

	report, err := NewHTTPRunner(cfg, nil, Options{DryRun: true, Out: &out}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Nil(t, report.Markdown)
	assert.Equal(t, expectedDoc, out.String())

	_, err = os.Stat(cfg.Output.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_FailuresWriteNothing(t *testing.T) {
	tests := map[string]struct {
		searchBody string
		mutate     func(*config.Config)
		wantErr    error
	}{
		"search business error": {
			searchBody: `{"code":1254040,"msg":"view not found"}`,
			wantErr:    feishu.ErrFetch,
		},
		"malformed version": {
			searchBody: `{"code":0,"data":{"items":[{"record_id":"r","fields":{"版本":{"value":[{"text":"v1.2-rc1"}]}}}]}}`,
			wantErr:    release.ErrDataQuality,
		},
		"malformed date": {
			searchBody: `{"code":0,"data":{"items":[{"record_id":"r","fields":{"版本":"v1","发版时间":{"value":["soon"]}}}]}}`,
			wantErr:    feishu.ErrFetch,
		},
		"bad source url": {
			mutate:  func(c *config.Config) { c.URL = "https://example.feishu.cn/base/xyz" },
			wantErr: config.ErrMissingNodeToken,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fake, cfg := newFake(t)
			if tt.searchBody != "" {
				fake.searchBody = tt.searchBody
			}

			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			report, err := NewHTTPRunner(cfg, nil, Options{}).Run(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)

			_, statErr := os.Stat(cfg.Output.Path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRunner_CSVFailureLeavesMarkdownAbsent(t *testing.T) {
	_, cfg := newFake(t)

	blocker := filepath.Join(filepath.Dir(cfg.Output.Path), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Output.CSVPath = filepath.Join(blocker, "rows.csv")

	report, err := NewHTTPRunner(cfg, nil, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), cfg.Output.CSVPath)
	assert.Nil(t, report)

	_, statErr := os.Stat(cfg.Output.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_RendersMultiLineAndPaddedValues(t *testing.T) {
	// Values are JSON string bodies, so \n is a newline once decoded.
	tests := map[string]struct {
		version  string
		primary  string
		baseline string
		want     string
	}{
		"padded version": {
			version: "v1.2.0 ",
			primary: "GPU调度",
			want:    "### 算力云 v1.2.0 \n\n#### 🚀 新功能\n\n- [GPU调度]\n",
		},
		"baseline with bullet line": {
			version:  "v1.2.0",
			primary:  "GPU调度",
			baseline: `A100\n- H100`,
			want:     "- [GPU调度] A100\n- H100\n",
		},
		"multi-line feature": {
			version: "v1.2.0",
			primary: `GPU\n调度`,
			want:    "- [GPU\n调度]\n",
		},
		"baseline with heading line": {
			version:  "v1.2.0",
			primary:  "GPU调度",
			baseline: `见说明\n## 注意`,
			want:     "- [GPU调度] 见说明\n## 注意\n",
		},
	}

	for name, tt := range tests {
		for _, validate := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/validate=%t", name, validate), func(t *testing.T) {
				fake, cfg := newFake(t)
				fake.searchBody = fmt.Sprintf(`{"code":0,"data":{"items":[{"record_id":"r","fields":{`+
					`"功能模块":"算力云","版本":"%s","发版时间":1704844800000,"更新类型":"新功能",`+
					`"一级功能":"%s","基线参数":"%s"}}]}}`, tt.version, tt.primary, tt.baseline)
				cfg.Validation.Enabled = validate

				report, err := NewHTTPRunner(cfg, nil, Options{}).Run(context.Background())
				require.NoError(t, err)

				data, err := os.ReadFile(cfg.Output.Path)
				require.NoError(t, err)
				assert.Contains(t, string(data), tt.want)
				assert.Equal(t, 1, report.Entries)

				if !validate {
					assert.Nil(t, report.Validation)

					return
				}

				require.NotNil(t, report.Validation)
				assert.True(t, report.Validation.IsValid, report.Validation.Errors)
				assert.NotEmpty(t, report.Validation.Warnings)
				assert.Equal(t, 1, report.Validation.Stats.Entries)
			})
		}
	}
}

func TestRunner_LenientVersions(t *testing.T) {
	fake, cfg := newFake(t)
	fake.searchBody = `{"code":0,"data":{"items":[
		{"record_id":"a","fields":{"功能模块":"算力云","版本":"v1.2-rc1","发版时间":1704844800000,"一级功能":[{"text":"预览"}]}},
		{"record_id":"b","fields":{"功能模块":"算力云","版本":"v1.2","发版时间":1704844800000,"一级功能":[{"text":"正式"}]}}
	]}}`
	cfg.Release.LenientVersions = true

	var out bytes.Buffer

	_, err := NewHTTPRunner(cfg, nil, Options{DryRun: true, Out: &out}).Run(context.Background())
	require.NoError(t, err)

	doc := out.String()
	assert.Less(t, strings.Index(doc, "### 算力云 v1.2\n"), strings.Index(doc, "### 算力云 v1.2-rc1\n"))
}

func TestRunner_Render(t *testing.T) {
	cfg := config.Sample()
	cfg.Release.UndatedLabel = "待定"

	runner := NewRunner(cfg, nil, nil, Options{})

	doc, err := runner.Render(nil, &Report{})
	require.NoError(t, err)
	assert.True(t, validator.ValidateReleaseNotes(doc).IsValid)
}
