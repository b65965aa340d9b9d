package dto

import "encoding/json"

// CreateDatasetResponse 上传数据集响应（仅确认已调度，结果需轮询）
type CreateDatasetResponse struct {
	DatasetID int64  `json:"dataset_id"`
	Status    string `json:"status"`
}

// DatasetListItem 数据集列表项
type DatasetListItem struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	RowCount       int    `json:"row_count"`
	ColumnCount    int    `json:"column_count"`
	LastAnalyzedAt string `json:"last_analyzed_at,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// DatasetDetail 数据集详情
type DatasetDetail struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	Status           string          `json:"status"`
	RowCount         int             `json:"row_count"`
	ColumnCount      int             `json:"column_count"`
	Columns          []string        `json:"columns,omitempty"`
	Results          json.RawMessage `json:"results,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	FailedAt         string          `json:"failed_at,omitempty"`
	LastAnalyzedAt   string          `json:"last_analyzed_at,omitempty"`
	ArchiveURL       string          `json:"archive_url,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// InsightItem 单条洞察
type InsightItem struct {
	Category   string  `json:"category"`
	Finding    string  `json:"finding"`
	Confidence float64 `json:"confidence"`
	Priority   string  `json:"priority"`
	Impact     string  `json:"impact"`
}

// RetryResponse 重试响应
type RetryResponse struct {
	DatasetID int64  `json:"dataset_id"`
	Status    string `json:"status"`
}
