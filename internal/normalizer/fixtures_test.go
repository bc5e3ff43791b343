package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"relnotes/internal/models"
)

// searchItemsJSON mirrors data.items of a records search response.
const searchItemsJSON = `[
  {
    "record_id": "rec001",
    "fields": {
      "功能模块": "算力云",
      "版本": {"type": 1, "value": [{"text": "v1.2.0", "type": "text"}]},
      "发版时间": {"type": 5, "value": [1704844800000]},
      "更新类型": "新功能",
      "一级功能": [{"text": "GPU调度", "type": "text"}],
      "二级功能": [{"text": "队列", "type": "text"}, {"text": "抢占", "type": "text"}],
      "基线参数": [{"text": "A100", "type": "text"}, {"text": "H100", "type": "text"}]
    }
  },
  {
    "record_id": "rec002",
    "fields": {
      "功能模块": "费用中心",
      "一级功能": [{"text": "账单导出", "type": "text"}]
    }
  },
  {
    "record_id": "rec003",
    "fields": {
      "功能模块": "用户中心",
      "版本": {"type": 1, "value": [{"text": "v0.9.1", "type": "text"}]},
      "一级功能": [{"text": "登录", "type": "text"}]
    }
  }
]`

func loadRecords(t *testing.T, data string) []models.RawRecord {
	t.Helper()

	var records []models.RawRecord
	require.NoError(t, json.Unmarshal([]byte(data), &records))

	return records
}

func record(id string, fields map[string]string) models.RawRecord {
	rec := models.RawRecord{RecordID: id, Fields: map[string]json.RawMessage{}}
	for k, v := range fields {
		rec.Fields[k] = json.RawMessage(v)
	}

	return rec
}
