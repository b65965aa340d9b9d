package synthesis

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence 生成成功但文本未标注置信度时的默认值。
// 取“中等可信”而不是 0：生成本身已经成功。
const DefaultConfidence = 0.8

// Classification 从片段文本推导出的三个标量字段
type Classification struct {
	Confidence float64
	Priority   string // high, medium, low
	Impact     string // high, moderate, low
}

var confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]*(\d{1,3})\s*%`)

// 关键词表都是启发式的，后续可以换成模型打分而不影响状态机
var (
	urgencyWords      = []string{"urgent", "critical", "immediate", "severe", "alarming"}
	minimizationWords = []string{"minor", "negligible", "optional", "trivial"}
	magnitudeHigh     = []string{"significant", "major", "substantial", "dramatic"}
	magnitudeLow      = []string{"minor", "small", "slight", "marginal"}
)

// Classify 用词法启发式对片段文本打分
func Classify(text string) Classification {
	return Classification{
		Confidence: parseConfidence(text),
		Priority:   classifyPriority(text),
		Impact:     classifyImpact(text),
	}
}

// parseConfidence 解析显式的 "confidence: NN%" 标注，缺省 0.8
func parseConfidence(text string) float64 {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return DefaultConfidence
	}

	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultConfidence
	}
	if pct > 100 {
		pct = 100
	}
	return float64(pct) / 100
}

func classifyPriority(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, urgencyWords) {
		return "high"
	}
	if containsAny(lower, minimizationWords) {
		return "low"
	}
	return "medium"
}

func classifyImpact(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, magnitudeHigh) {
		return "high"
	}
	if containsAny(lower, magnitudeLow) {
		return "low"
	}
	return "moderate"
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
