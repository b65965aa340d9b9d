package model

import (
	"time"
)

// Insight 单条 AI 洞察，随 completed 状态一起原子写入
type Insight struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	DatasetID  int64     `gorm:"not null;index" json:"dataset_id"`
	Category   string    `gorm:"size:50;not null" json:"category"`
	Finding    string    `gorm:"type:text;not null" json:"finding"`
	Confidence float64   `json:"confidence"`
	Priority   string    `gorm:"size:10" json:"priority"` // high, medium, low
	Impact     string    `gorm:"size:10" json:"impact"`   // high, moderate, low
	Position   int       `gorm:"not null" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Insight) TableName() string {
	return "insights"
}
