package repository

import (
	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(report *model.Report) error {
	return r.db.Create(report).Error
}

// GetByID 按数据集范围查找报告，跨数据集访问视为不存在
func (r *ReportRepository) GetByID(datasetID, reportID int64) (*model.Report, error) {
	var report model.Report
	err := r.db.Where("id = ? AND dataset_id = ?", reportID, datasetID).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) ListByDatasetID(datasetID int64) ([]*model.Report, error) {
	var reports []*model.Report
	err := r.db.Where("dataset_id = ?", datasetID).
		Order("created_at DESC").
		Find(&reports).Error
	return reports, err
}

func (r *ReportRepository) Delete(datasetID, reportID int64) error {
	return r.db.Where("id = ? AND dataset_id = ?", reportID, datasetID).Delete(&model.Report{}).Error
}
