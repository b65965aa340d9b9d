package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 数据集状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
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

// RowsArray 用于保存原始数据行的 JSON 字段
type RowsArray [][]string

func (r RowsArray) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return json.Marshal(r)
}

func (r *RowsArray) Scan(value interface{}) error {
	if value == nil {
		*r = [][]string{}
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
	return json.Unmarshal(bytes, r)
}

// JSONBlob 不透明的 JSON 负载（统计结果包）
type JSONBlob json.RawMessage

func (j JSONBlob) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

func (j *JSONBlob) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append(JSONBlob(nil), v...)
	case string:
		*j = JSONBlob(v)
	}
	return nil
}

func (j JSONBlob) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONBlob) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// Dataset 一次上传的数据集及其分析状态
type Dataset struct {
	ID               int64       `gorm:"primaryKey" json:"id"`
	Name             string      `gorm:"size:200;not null" json:"name"`
	OriginalFilename string      `gorm:"size:500" json:"original_filename,omitempty"`
	Status           string      `gorm:"size:20;default:pending;index" json:"status"` // pending, processing, completed, failed
	RowCount         int         `json:"row_count"`
	ColumnCount      int         `json:"column_count"`
	Columns          StringArray `gorm:"type:json" json:"columns,omitempty"`
	RawRows          RowsArray   `gorm:"type:json" json:"-"`
	Results          JSONBlob    `gorm:"type:json" json:"results,omitempty"`
	RunGeneration    int64       `gorm:"not null;default:0" json:"-"`
	ErrorMessage     string      `gorm:"type:text" json:"error_message,omitempty"`
	FailedAt         *time.Time  `json:"failed_at,omitempty"`
	LastAnalyzedAt   *time.Time  `json:"last_analyzed_at,omitempty"`
	ArchiveURL       string      `gorm:"size:500" json:"archive_url,omitempty"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (Dataset) TableName() string {
	return "datasets"
}
