package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ReportSection 报告的一个小节
type ReportSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// SectionList 用于 JSON 小节列表字段
type SectionList []ReportSection

func (s SectionList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *SectionList) Scan(value interface{}) error {
	if value == nil {
		*s = []ReportSection{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, s)
}

// Report 独立持久化的分析报告。重新分析不会删除已有报告，
// 旧报告允许引用重分析前的结果包。
type Report struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	DatasetID    int64       `gorm:"not null;index" json:"dataset_id"`
	Title        string      `gorm:"size:200;not null" json:"title"`
	TemplateKind string      `gorm:"size:50;not null" json:"template_kind"`
	Sections     SectionList `gorm:"type:json" json:"sections"`
	FullText     string      `gorm:"type:text" json:"full_text"`
	WordCount    int         `json:"word_count"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}
