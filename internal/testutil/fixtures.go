package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/internal/model"
)

// TestDataset 创建测试数据集
func TestDataset(t *testing.T, db *gorm.DB, opts ...func(*model.Dataset)) *model.Dataset {
	t.Helper()

	dataset := &model.Dataset{
		Name:             fmt.Sprintf("Test Dataset %d", time.Now().UnixNano()%10000),
		OriginalFilename: "test.csv",
		Status:           model.StatusPending,
		Columns:          model.StringArray{"region", "revenue"},
		RawRows:          model.RowsArray{{"north", "100"}, {"south", "200"}},
		RowCount:         2,
		ColumnCount:      2,
	}

	for _, opt := range opts {
		opt(dataset)
	}

	if err := db.Create(dataset).Error; err != nil {
		t.Fatalf("Failed to create test dataset: %v", err)
	}

	return dataset
}

// WithName 设置数据集名称
func WithName(name string) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.Name = name
	}
}

// WithStatus 设置状态
func WithStatus(status string) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.Status = status
	}
}

// WithRows 设置列与数据行
func WithRows(columns []string, rows [][]string) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.Columns = model.StringArray(columns)
		d.RawRows = model.RowsArray(rows)
		d.RowCount = len(rows)
		d.ColumnCount = len(columns)
	}
}

// WithResults 设置分析结果
func WithResults(results []byte) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.Results = model.JSONBlob(results)
	}
}

// WithError 设置失败信息
func WithError(message string) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.Status = model.StatusFailed
		d.ErrorMessage = message
		now := time.Now()
		d.FailedAt = &now
	}
}

// WithGeneration 设置运行代数
func WithGeneration(gen int64) func(*model.Dataset) {
	return func(d *model.Dataset) {
		d.RunGeneration = gen
	}
}

// TestInsight 创建测试洞察
func TestInsight(t *testing.T, db *gorm.DB, datasetID int64, category, finding string, position int) *model.Insight {
	t.Helper()

	insight := &model.Insight{
		DatasetID:  datasetID,
		Category:   category,
		Finding:    finding,
		Confidence: 0.8,
		Priority:   "medium",
		Impact:     "moderate",
		Position:   position,
	}

	if err := db.Create(insight).Error; err != nil {
		t.Fatalf("Failed to create test insight: %v", err)
	}

	return insight
}

// TestReport 创建测试报告
func TestReport(t *testing.T, db *gorm.DB, datasetID int64, opts ...func(*model.Report)) *model.Report {
	t.Helper()

	report := &model.Report{
		DatasetID:    datasetID,
		Title:        "Test Dataset - Analysis Report",
		TemplateKind: "standard",
		Sections: model.SectionList{
			{Title: "Executive Summary", Content: "All good.", Order: 1},
		},
		FullText:  "Executive Summary: All good.",
		WordCount: 4,
	}

	for _, opt := range opts {
		opt(report)
	}

	if err := db.Create(report).Error; err != nil {
		t.Fatalf("Failed to create test report: %v", err)
	}

	return report
}

// WithTemplateKind 设置报告模板类型
func WithTemplateKind(kind string) func(*model.Report) {
	return func(r *model.Report) {
		r.TemplateKind = kind
	}
}
