package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tabsight/sheet_go_server/internal/pkg/segment"
	"github.com/tabsight/sheet_go_server/internal/stats"
)

// Generator 外部生成式文本提供方。调用失败原样向上传递，这一层不重试。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// InsightCategories 洞察提取的六个固定类别，匹配顺序即列表顺序
var InsightCategories = []string{
	"Key Findings",
	"Data Quality",
	"Patterns",
	"Risks",
	"Opportunities",
	"Recommendations",
}

// FallbackCategory 六类全部未命中时的兜底类别
const FallbackCategory = "general"

// ReportSectionLabels 报告的七个固定小节标签。
// 小节的 order 取标签在此列表中的下标+1，与文本中出现位置无关。
var ReportSectionLabels = []string{
	"Executive Summary",
	"Key Findings",
	"Methodology",
	"Detailed Analysis",
	"Recommendations",
	"Conclusion",
	"Risk Assessment",
}

// FallbackSectionTitle 报告小节全部未命中时的兜底标题
const FallbackSectionTitle = "Analysis Report"

// Insight 一条结构化洞察
type Insight struct {
	Category   string
	Finding    string
	Confidence float64
	Priority   string
	Impact     string
}

// Report 结构化报告
type Report struct {
	Title     string
	Sections  []Section
	FullText  string
	WordCount int
}

// Section 报告小节
type Section struct {
	Title   string
	Content string
	Order   int
}

// Synthesizer 把统计结果包变成洞察或报告：
// 构造提示词 → 调用生成式提供方 → 切分非结构化回复
type Synthesizer struct {
	gen Generator
}

func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Insights 生成扁平的洞察列表。
// 回复不符合预期结构时退化为单条 "general" 洞察，洞察不会被静默丢弃。
func (s *Synthesizer) Insights(ctx context.Context, results *stats.Results, meta Metadata) ([]Insight, error) {
	prompt := BuildInsightPrompt(results, meta)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	segments := segment.Split(raw, InsightCategories, FallbackCategory)

	insights := make([]Insight, 0, len(segments))
	for _, seg := range segments {
		cls := Classify(seg.Content)
		insights = append(insights, Insight{
			Category:   strings.ToLower(seg.Label),
			Finding:    seg.Content,
			Confidence: cls.Confidence,
			Priority:   cls.Priority,
			Impact:     cls.Impact,
		})
	}

	return insights, nil
}

// Report 生成结构化的多小节报告。
// 小节按固定 order 排序；全部未命中时退化为单节 "Analysis Report"。
func (s *Synthesizer) Report(ctx context.Context, results *stats.Results, meta Metadata, templateKind, customPrompt string) (*Report, error) {
	prompt := BuildReportPrompt(results, meta, templateKind, customPrompt)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	orderOf := make(map[string]int, len(ReportSectionLabels))
	for i, label := range ReportSectionLabels {
		orderOf[label] = i + 1
	}

	segments := segment.Split(raw, ReportSectionLabels, FallbackSectionTitle)

	sections := make([]Section, 0, len(segments))
	for _, seg := range segments {
		order, ok := orderOf[seg.Label]
		if !ok {
			// 兜底小节
			order = 1
		}
		sections = append(sections, Section{
			Title:   seg.Label,
			Content: seg.Content,
			Order:   order,
		})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})

	return &Report{
		Title:     fmt.Sprintf("%s - Analysis Report", meta.DatasetName),
		Sections:  sections,
		FullText:  raw,
		WordCount: len(strings.Fields(raw)),
	}, nil
}
