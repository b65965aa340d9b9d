package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/model"
	"github.com/tabsight/sheet_go_server/internal/pkg/queue"
	"github.com/tabsight/sheet_go_server/internal/repository"
	"github.com/tabsight/sheet_go_server/internal/stats"
	"github.com/tabsight/sheet_go_server/internal/synthesis"
)

// Processor 任务处理器。拥有分析记录的状态机：
// 只有它会写 completed / failed 终态。
type Processor struct {
	datasetRepo *repository.DatasetRepository
	reportRepo  *repository.ReportRepository
	synth       *synthesis.Synthesizer
	cfg         *config.Config
}

// NewProcessor 创建任务处理器
func NewProcessor(
	datasetRepo *repository.DatasetRepository,
	reportRepo *repository.ReportRepository,
	synth *synthesis.Synthesizer,
	cfg *config.Config,
) *Processor {
	return &Processor{
		datasetRepo: datasetRepo,
		reportRepo:  reportRepo,
		synth:       synth,
		cfg:         cfg,
	}
}

// Process 处理一条队列任务
func (p *Processor) Process(ctx context.Context, msg *queue.TaskMessage) error {
	switch msg.Task {
	case queue.TaskReport:
		return p.processReport(ctx, msg)
	default:
		return p.processAnalysis(ctx, msg)
	}
}

// processAnalysis 执行一次完整的分析运行。
// 错误不会越过这一层往外抛：每条失败路径都落在可观察的 failed 状态。
// 终态写入以 BeginRun 拿到的代数做条件更新，被并发重试抢先的
// 过期运行只记日志，不覆盖新运行的结果。
func (p *Processor) processAnalysis(ctx context.Context, msg *queue.TaskMessage) error {
	dataset, err := p.datasetRepo.GetByID(msg.DatasetID)
	if err != nil {
		return fmt.Errorf("failed to get dataset: %w", err)
	}

	// 立即置为 processing，轮询方看到的是真实的运行状态
	generation, err := p.datasetRepo.BeginRun(dataset.ID)
	if err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}

	handleFailure := func(step string, cause error, results []byte) error {
		message := fmt.Sprintf("%s: %v", step, cause)
		applied, uerr := p.datasetRepo.FailRun(dataset.ID, generation, message, results)
		if uerr != nil {
			log.Printf("Dataset %d: failed to record failure: %v", dataset.ID, uerr)
			return uerr
		}
		if !applied {
			log.Printf("Dataset %d: discarding stale failure from run %d", dataset.ID, generation)
		}
		return cause
	}

	// Step 1: 统计计算
	log.Printf("Dataset %d: computing statistics (run %d)", dataset.ID, generation)
	results, err := stats.Analyze(dataset.Columns, dataset.RawRows)
	if err != nil {
		return handleFailure("statistics failed", err, nil)
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return handleFailure("statistics failed", fmt.Errorf("encode results: %w", err), nil)
	}

	// Step 2: AI 洞察合成
	log.Printf("Dataset %d: synthesizing insights", dataset.ID)
	meta := synthesis.Metadata{
		DatasetName: dataset.Name,
		RowCount:    dataset.RowCount,
		ColumnCount: dataset.ColumnCount,
	}

	genCtx, cancel := p.generateContext(ctx)
	insights, err := p.synth.Insights(genCtx, results, meta)
	cancel()
	if err != nil {
		// 统计已经算完：保留结果包，只有合成算失败
		return handleFailure("insight synthesis failed", err, resultsJSON)
	}

	rows := make([]*model.Insight, 0, len(insights))
	for i, ins := range insights {
		rows = append(rows, &model.Insight{
			DatasetID:  dataset.ID,
			Category:   ins.Category,
			Finding:    ins.Finding,
			Confidence: ins.Confidence,
			Priority:   ins.Priority,
			Impact:     ins.Impact,
			Position:   i,
		})
	}

	// Step 3: 终态原子写入
	applied, err := p.datasetRepo.CompleteRun(dataset.ID, generation, resultsJSON, rows, time.Now())
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if !applied {
		log.Printf("Dataset %d: discarding stale result from run %d", dataset.ID, generation)
		return nil
	}

	log.Printf("Dataset %d: analysis completed with %d insights", dataset.ID, len(rows))
	return nil
}

// processReport 生成一份报告并追加保存。
// 报告是独立实体：生成失败不改变数据集状态，重新分析也不会作废旧报告。
func (p *Processor) processReport(ctx context.Context, msg *queue.TaskMessage) error {
	dataset, err := p.datasetRepo.GetByID(msg.DatasetID)
	if err != nil {
		return fmt.Errorf("failed to get dataset: %w", err)
	}

	if len(dataset.Results) == 0 {
		return fmt.Errorf("dataset %d has no results bundle", dataset.ID)
	}

	var results stats.Results
	if err := json.Unmarshal(dataset.Results, &results); err != nil {
		return fmt.Errorf("failed to decode results bundle: %w", err)
	}

	meta := synthesis.Metadata{
		DatasetName: dataset.Name,
		RowCount:    dataset.RowCount,
		ColumnCount: dataset.ColumnCount,
	}

	log.Printf("Dataset %d: generating %s report", dataset.ID, msg.TemplateKind)

	genCtx, cancel := p.generateContext(ctx)
	defer cancel()

	report, err := p.synth.Report(genCtx, &results, meta, msg.TemplateKind, msg.CustomPrompt)
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}

	sections := make(model.SectionList, 0, len(report.Sections))
	for _, sec := range report.Sections {
		sections = append(sections, model.ReportSection{
			Title:   sec.Title,
			Content: sec.Content,
			Order:   sec.Order,
		})
	}

	record := &model.Report{
		DatasetID:    dataset.ID,
		Title:        report.Title,
		TemplateKind: msg.TemplateKind,
		Sections:     sections,
		FullText:     report.FullText,
		WordCount:    report.WordCount,
	}

	if err := p.reportRepo.Create(record); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	log.Printf("Dataset %d: report %d saved (%d sections, %d words)",
		dataset.ID, record.ID, len(record.Sections), record.WordCount)

	return nil
}

// generateContext 给外部生成调用加上超时，超时按失败处理
func (p *Processor) generateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(p.cfg.OpenAI.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return context.WithTimeout(ctx, timeout)
}
