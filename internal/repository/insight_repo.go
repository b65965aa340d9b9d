package repository

import (
	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/internal/model"
)

type InsightRepository struct {
	db *gorm.DB
}

func NewInsightRepository(db *gorm.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// ListByDatasetID 按合成顺序返回数据集的洞察
func (r *InsightRepository) ListByDatasetID(datasetID int64) ([]*model.Insight, error) {
	var insights []*model.Insight
	err := r.db.Where("dataset_id = ?", datasetID).
		Order("position ASC").
		Find(&insights).Error
	return insights, err
}

func (r *InsightRepository) CountByDatasetID(datasetID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Insight{}).Where("dataset_id = ?", datasetID).Count(&count).Error
	return count, err
}
