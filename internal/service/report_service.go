package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/model/dto"
	"github.com/tabsight/sheet_go_server/internal/pkg/queue"
	"github.com/tabsight/sheet_go_server/internal/repository"
	"github.com/tabsight/sheet_go_server/internal/synthesis"
)

var (
	ErrReportNotFound      = errors.New("报告不存在")
	ErrInvalidTemplate     = errors.New("不支持的报告模板")
	ErrAnalysisNotComplete = errors.New("分析尚未完成，无法生成报告")
)

type ReportService struct {
	datasetRepo *repository.DatasetRepository
	reportRepo  *repository.ReportRepository
	taskQueue   *queue.Queue
	cfg         *config.Config
}

func NewReportService(
	datasetRepo *repository.DatasetRepository,
	reportRepo *repository.ReportRepository,
	taskQueue *queue.Queue,
	cfg *config.Config,
) *ReportService {
	return &ReportService{
		datasetRepo: datasetRepo,
		reportRepo:  reportRepo,
		taskQueue:   taskQueue,
		cfg:         cfg,
	}
}

// Generate 调度一次报告生成，立即返回确认。
// 报告基于当时的结果包；重新分析之前生成的报告允许引用旧结果包。
func (s *ReportService) Generate(ctx context.Context, datasetID int64, req *dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	if len(dataset.Results) == 0 {
		return nil, ErrAnalysisNotComplete
	}

	kind := req.TemplateKind
	if kind == "" {
		kind = synthesis.TemplateStandard
	}
	if !validTemplate(kind) {
		return nil, ErrInvalidTemplate
	}

	err = s.taskQueue.Push(ctx, &queue.TaskMessage{
		DatasetID:    datasetID,
		Task:         queue.TaskReport,
		TemplateKind: kind,
		CustomPrompt: req.CustomPrompt,
	})
	if err != nil {
		return nil, err
	}

	return &dto.GenerateReportResponse{
		DatasetID:    datasetID,
		TemplateKind: kind,
		Scheduled:    true,
	}, nil
}

// List 获取数据集的报告列表
func (s *ReportService) List(datasetID int64) ([]*dto.ReportListItem, error) {
	_, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}

	reports, err := s.reportRepo.ListByDatasetID(datasetID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ReportListItem, len(reports))
	for i, r := range reports {
		items[i] = &dto.ReportListItem{
			ID:           r.ID,
			Title:        r.Title,
			TemplateKind: r.TemplateKind,
			WordCount:    r.WordCount,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		}
	}

	return items, nil
}

// Get 获取报告详情
func (s *ReportService) Get(datasetID, reportID int64) (*dto.ReportDetail, error) {
	report, err := s.reportRepo.GetByID(datasetID, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	sections := make([]dto.ReportSectionItem, len(report.Sections))
	for i, sec := range report.Sections {
		sections[i] = dto.ReportSectionItem{
			Title:   sec.Title,
			Content: sec.Content,
			Order:   sec.Order,
		}
	}

	return &dto.ReportDetail{
		ID:           report.ID,
		DatasetID:    report.DatasetID,
		Title:        report.Title,
		TemplateKind: report.TemplateKind,
		Sections:     sections,
		FullText:     report.FullText,
		WordCount:    report.WordCount,
		CreatedAt:    report.CreatedAt.Format(time.RFC3339),
	}, nil
}

// Delete 删除报告
func (s *ReportService) Delete(datasetID, reportID int64) error {
	_, err := s.reportRepo.GetByID(datasetID, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return err
	}

	return s.reportRepo.Delete(datasetID, reportID)
}

func validTemplate(kind string) bool {
	for _, k := range synthesis.TemplateKinds {
		if k == kind {
			return true
		}
	}
	return false
}
