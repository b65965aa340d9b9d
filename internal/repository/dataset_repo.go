package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/internal/model"
)

type DatasetRepository struct {
	db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Create(dataset *model.Dataset) error {
	return r.db.Create(dataset).Error
}

func (r *DatasetRepository) GetByID(id int64) (*model.Dataset, error) {
	var dataset model.Dataset
	err := r.db.Where("id = ?", id).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (r *DatasetRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Dataset{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除数据集及其洞察。已生成的报告独立保留。
func (r *DatasetRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", id).Delete(&model.Insight{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Dataset{}, id).Error
	})
}

// List 获取数据集列表
func (r *DatasetRepository) List(page, pageSize int, search, status string) ([]*model.Dataset, int64, error) {
	var datasets []*model.Dataset
	var total int64

	query := r.db.Model(&model.Dataset{})

	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&datasets).Error; err != nil {
		return nil, 0, err
	}

	return datasets, total, nil
}

// BeginRun 认领一次运行：置为 processing，递增运行代数，清掉上一次
// 运行的结果和洞察。新运行开始后读者不会再看到过期结果。
// 返回本次运行的代数，终态写入时用它做条件更新。
func (r *DatasetRepository) BeginRun(id int64) (int64, error) {
	var generation int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Dataset{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":         model.StatusProcessing,
			"run_generation": gorm.Expr("run_generation + 1"),
			"results":        nil,
			"error_message":  "",
			"failed_at":      nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("dataset_id = ?", id).Delete(&model.Insight{}).Error; err != nil {
			return err
		}

		var dataset model.Dataset
		if err := tx.Select("run_generation").Where("id = ?", id).First(&dataset).Error; err != nil {
			return err
		}
		generation = dataset.RunGeneration
		return nil
	})

	return generation, err
}

// CompleteRun 终态写入：completed + 结果包 + 洞察 + last_analyzed_at，
// 同一事务内原子落库。只有代数仍然匹配的运行才会生效；
// 被新运行抢先的过期写入返回 applied=false，由调用方记日志丢弃。
func (r *DatasetRepository) CompleteRun(id, generation int64, results []byte, insights []*model.Insight, analyzedAt time.Time) (bool, error) {
	applied := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Dataset{}).
			Where("id = ? AND run_generation = ? AND status = ?", id, generation, model.StatusProcessing).
			Updates(map[string]interface{}{
				"status":           model.StatusCompleted,
				"results":          model.JSONBlob(results),
				"error_message":    "",
				"failed_at":        nil,
				"last_analyzed_at": analyzedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // 过期运行，丢弃
		}
		applied = true

		if err := tx.Where("dataset_id = ?", id).Delete(&model.Insight{}).Error; err != nil {
			return err
		}
		if len(insights) > 0 {
			if err := tx.Create(insights).Error; err != nil {
				return err
			}
		}
		return nil
	})

	return applied, err
}

// FailRun 终态写入：failed + 错误信息。代数不匹配时不生效。
// results 非空表示统计已算完但合成失败，结果包照样保留。
func (r *DatasetRepository) FailRun(id, generation int64, message string, results []byte) (bool, error) {
	now := time.Now()
	fields := map[string]interface{}{
		"status":        model.StatusFailed,
		"error_message": message,
		"failed_at":     now,
	}
	if results != nil {
		fields["results"] = model.JSONBlob(results)
	}

	res := r.db.Model(&model.Dataset{}).
		Where("id = ? AND run_generation = ? AND status = ?", id, generation, model.StatusProcessing).
		Updates(fields)

	return res.RowsAffected > 0, res.Error
}

// ResetForRetry 重试入口：回到 pending 并清掉错误，
// 新运行的第一次写入之前错误必须已不可见
func (r *DatasetRepository) ResetForRetry(id int64) error {
	return r.db.Model(&model.Dataset{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.StatusPending,
		"error_message": "",
		"failed_at":     nil,
	}).Error
}

// FailStaleRuns 把卡在 processing 超过期限的记录判为 failed，
// 保证任何运行最终都落在终态
func (r *DatasetRepository) FailStaleRuns(cutoff time.Time, message string) (int64, error) {
	now := time.Now()
	res := r.db.Model(&model.Dataset{}).
		Where("status = ? AND updated_at < ?", model.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        model.StatusFailed,
			"error_message": message,
			"failed_at":     now,
		})
	return res.RowsAffected, res.Error
}
