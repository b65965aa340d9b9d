package dto

// GenerateReportRequest 生成报告请求
type GenerateReportRequest struct {
	TemplateKind string `json:"template_kind"`
	CustomPrompt string `json:"custom_prompt"`
}

// GenerateReportResponse 报告生成已调度的确认
type GenerateReportResponse struct {
	DatasetID    int64  `json:"dataset_id"`
	TemplateKind string `json:"template_kind"`
	Scheduled    bool   `json:"scheduled"`
}

// ReportSectionItem 报告小节
type ReportSectionItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// ReportListItem 报告列表项
type ReportListItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	TemplateKind string `json:"template_kind"`
	WordCount    int    `json:"word_count"`
	CreatedAt    string `json:"created_at"`
}

// ReportDetail 报告详情
type ReportDetail struct {
	ID           int64               `json:"id"`
	DatasetID    int64               `json:"dataset_id"`
	Title        string              `json:"title"`
	TemplateKind string              `json:"template_kind"`
	Sections     []ReportSectionItem `json:"sections"`
	FullText     string              `json:"full_text"`
	WordCount    int                 `json:"word_count"`
	CreatedAt    string              `json:"created_at"`
}
