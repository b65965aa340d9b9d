package service

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/model"
	"github.com/tabsight/sheet_go_server/internal/model/dto"
	"github.com/tabsight/sheet_go_server/internal/pkg/oss"
	"github.com/tabsight/sheet_go_server/internal/pkg/queue"
	"github.com/tabsight/sheet_go_server/internal/repository"
)

var (
	ErrDatasetNotFound = errors.New("数据集不存在")
	ErrNoSourceRows    = errors.New("数据集没有可分析的原始数据")
)

type DatasetService struct {
	datasetRepo *repository.DatasetRepository
	insightRepo *repository.InsightRepository
	taskQueue   *queue.Queue
	ossClient   *oss.Client // 可选，未配置时为 nil
	cfg         *config.Config
}

func NewDatasetService(
	datasetRepo *repository.DatasetRepository,
	insightRepo *repository.InsightRepository,
	taskQueue *queue.Queue,
	ossClient *oss.Client,
	cfg *config.Config,
) *DatasetService {
	return &DatasetService{
		datasetRepo: datasetRepo,
		insightRepo: insightRepo,
		taskQueue:   taskQueue,
		ossClient:   ossClient,
		cfg:         cfg,
	}
}

// Create 创建数据集记录并调度分析。
// 调用方拿到的只是"已调度"的确认，结果需要轮询记录状态。
func (s *DatasetService) Create(ctx context.Context, name, filename string, sheet *ParsedSheet, fileData []byte) (*dto.CreateDatasetResponse, error) {
	dataset := &model.Dataset{
		Name:             name,
		OriginalFilename: filename,
		Status:           model.StatusPending,
		RowCount:         len(sheet.Rows),
		ColumnCount:      len(sheet.Columns),
		Columns:          sheet.Columns,
		RawRows:          sheet.Rows,
	}

	if err := s.datasetRepo.Create(dataset); err != nil {
		return nil, err
	}

	// 归档原始文件（可选，失败不阻塞分析）
	if s.ossClient != nil && len(fileData) > 0 {
		if url, err := s.ossClient.UploadSource(dataset.ID, filename, fileData); err != nil {
			log.Printf("Dataset %d: failed to archive source file: %v", dataset.ID, err)
		} else {
			s.datasetRepo.UpdateFields(dataset.ID, map[string]interface{}{"archive_url": url})
		}
	}

	if err := s.schedule(ctx, dataset.ID); err != nil {
		return nil, err
	}

	return &dto.CreateDatasetResponse{
		DatasetID: dataset.ID,
		Status:    model.StatusPending,
	}, nil
}

// Retry 重试/重新分析。
// 对任何状态都允许调用：与进行中的运行竞争时，由终态写入的
// 代数检查保证最终不会出现撕裂状态。
func (s *DatasetService) Retry(ctx context.Context, datasetID int64) (*dto.RetryResponse, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	if len(dataset.RawRows) == 0 {
		return nil, ErrNoSourceRows
	}

	// 回 pending 并清错误，之后才调度新运行
	if err := s.datasetRepo.ResetForRetry(dataset.ID); err != nil {
		return nil, err
	}

	if err := s.schedule(ctx, dataset.ID); err != nil {
		return nil, err
	}

	return &dto.RetryResponse{
		DatasetID: dataset.ID,
		Status:    model.StatusPending,
	}, nil
}

// schedule 把分析任务入队。入队失败时记录必须可观察地失败，
// 而不是永远停在 pending。
func (s *DatasetService) schedule(ctx context.Context, datasetID int64) error {
	err := s.taskQueue.Push(ctx, &queue.TaskMessage{
		DatasetID: datasetID,
		Task:      queue.TaskAnalyze,
	})
	if err != nil {
		s.datasetRepo.UpdateFields(datasetID, map[string]interface{}{
			"status":        model.StatusFailed,
			"error_message": "failed to schedule analysis: " + err.Error(),
			"failed_at":     time.Now(),
		})
	}
	return err
}

// GetByID 获取数据集详情
func (s *DatasetService) GetByID(datasetID int64) (*dto.DatasetDetail, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	return buildDatasetDetail(dataset), nil
}

// List 获取数据集列表
func (s *DatasetService) List(page, pageSize int, search, status string) ([]*dto.DatasetListItem, int64, error) {
	datasets, total, err := s.datasetRepo.List(page, pageSize, search, status)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.DatasetListItem, len(datasets))
	for i, d := range datasets {
		items[i] = &dto.DatasetListItem{
			ID:          d.ID,
			Name:        d.Name,
			Status:      d.Status,
			RowCount:    d.RowCount,
			ColumnCount: d.ColumnCount,
			CreatedAt:   d.CreatedAt.Format(time.RFC3339),
			UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
		}
		if d.LastAnalyzedAt != nil {
			items[i].LastAnalyzedAt = d.LastAnalyzedAt.Format(time.RFC3339)
		}
	}

	return items, total, nil
}

// Delete 删除数据集。已生成的报告独立保留。
func (s *DatasetService) Delete(datasetID int64) error {
	_, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDatasetNotFound
		}
		return err
	}

	// TODO: 删除 OSS 归档文件（需要先持久化 object key）

	return s.datasetRepo.Delete(datasetID)
}

// Insights 获取数据集的洞察列表
func (s *DatasetService) Insights(datasetID int64) ([]*dto.InsightItem, error) {
	_, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	insights, err := s.insightRepo.ListByDatasetID(datasetID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InsightItem, len(insights))
	for i, ins := range insights {
		items[i] = &dto.InsightItem{
			Category:   ins.Category,
			Finding:    ins.Finding,
			Confidence: ins.Confidence,
			Priority:   ins.Priority,
			Impact:     ins.Impact,
		}
	}

	return items, nil
}

func buildDatasetDetail(d *model.Dataset) *dto.DatasetDetail {
	detail := &dto.DatasetDetail{
		ID:               d.ID,
		Name:             d.Name,
		OriginalFilename: d.OriginalFilename,
		Status:           d.Status,
		RowCount:         d.RowCount,
		ColumnCount:      d.ColumnCount,
		Columns:          d.Columns,
		ErrorMessage:     d.ErrorMessage,
		ArchiveURL:       d.ArchiveURL,
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.Format(time.RFC3339),
	}

	if len(d.Results) > 0 {
		detail.Results = []byte(d.Results)
	}
	if d.FailedAt != nil {
		detail.FailedAt = d.FailedAt.Format(time.RFC3339)
	}
	if d.LastAnalyzedAt != nil {
		detail.LastAnalyzedAt = d.LastAnalyzedAt.Format(time.RFC3339)
	}

	return detail
}
