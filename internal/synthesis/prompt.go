package synthesis

import (
	"fmt"
	"strings"

	"github.com/tabsight/sheet_go_server/internal/stats"
)

// Metadata 数据集元信息，随结果包一起进入提示词
type Metadata struct {
	DatasetName string
	RowCount    int
	ColumnCount int
}

// 报告模板
const (
	TemplateStandard  = "standard"
	TemplateExecutive = "executive"
	TemplateTechnical = "technical"
)

// TemplateKinds 支持的报告模板
var TemplateKinds = []string{TemplateStandard, TemplateExecutive, TemplateTechnical}

var templateFocus = map[string]string{
	TemplateStandard:  "Write a balanced report covering findings, methodology and recommendations.",
	TemplateExecutive: "Write for a non-technical executive audience. Keep sections short and lead with business impact.",
	TemplateTechnical: "Write for a data analyst audience. Include concrete numbers from the statistics wherever possible.",
}

// BuildInsightPrompt 把统计结果包渲染成固定的洞察提示词。
// 纯字符串模板，确定性输出。
func BuildInsightPrompt(results *stats.Results, meta Metadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following dataset statistics and produce insights.\n\n")
	fmt.Fprintf(&b, "Dataset: %s (%d rows, %d columns)\n\n", meta.DatasetName, meta.RowCount, meta.ColumnCount)
	writeStatsSummary(&b, results)

	b.WriteString("\nRespond in plain text with these exact section headings, each on its own line followed by its content:\n")
	for _, label := range InsightCategories {
		fmt.Fprintf(&b, "%s:\n", label)
	}
	b.WriteString("\nWithin each section you may note \"confidence: NN%\" where you can quantify it.\n")

	return b.String()
}

// BuildReportPrompt 把统计结果包渲染成报告提示词
func BuildReportPrompt(results *stats.Results, meta Metadata, templateKind, customPrompt string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write an analysis report for the following dataset.\n\n")
	fmt.Fprintf(&b, "Dataset: %s (%d rows, %d columns)\n\n", meta.DatasetName, meta.RowCount, meta.ColumnCount)
	writeStatsSummary(&b, results)

	focus, ok := templateFocus[templateKind]
	if !ok {
		focus = templateFocus[TemplateStandard]
	}
	b.WriteString("\n")
	b.WriteString(focus)
	b.WriteString("\n\nStructure the report in plain text with these exact section headings, each on its own line followed by its content:\n")
	for _, label := range ReportSectionLabels {
		fmt.Fprintf(&b, "%s:\n", label)
	}

	if customPrompt != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", customPrompt)
	}

	return b.String()
}

func writeStatsSummary(b *strings.Builder, results *stats.Results) {
	b.WriteString("Column statistics:\n")
	for _, col := range results.Columns {
		fmt.Fprintf(b, "- %s (%s): %d values, %d missing, %d distinct",
			col.Name, col.Type, col.NonEmpty, col.Missing, col.Distinct)
		if col.Type == stats.TypeNumeric && col.Mean != nil {
			fmt.Fprintf(b, ", min=%.4g, max=%.4g, mean=%.4g, stddev=%.4g",
				*col.Min, *col.Max, *col.Mean, *col.StdDev)
		}
		b.WriteString("\n")
	}
}
