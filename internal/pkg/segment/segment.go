package segment

import (
	"regexp"
	"strings"
)

// Segment 一个 (标签, 内容) 片段
type Segment struct {
	Label   string
	Content string
}

// labelMatch 某个标签在文本中首次出现的位置
type labelMatch struct {
	label string
	start int
	end   int
}

// Split 把一段非结构化文本按标签切分成有序片段。
//
// 每个标签独立地在全文中查找一次“标题样”出现（大小写不敏感，允许
// markdown 标记和冒号），内容从匹配结束延伸到任意标签的下一次出现或
// 文本末尾。未出现的标签不产生片段；出现但内容为空的标签产生一个
// 内容为空的片段。因为标签之间互相独立匹配，片段内容允许重叠。
// 返回顺序为 labels 的顺序，而不是文本出现顺序。
//
// 没有任何标签命中时返回唯一一个片段：标签为 fallbackLabel，内容为
// 完整的原始文本。
func Split(text string, labels []string, fallbackLabel string) []Segment {
	matches := make([]labelMatch, 0, len(labels))
	for _, label := range labels {
		if loc := findHeading(text, label); loc != nil {
			matches = append(matches, labelMatch{label: label, start: loc[0], end: loc[1]})
		}
	}

	if len(matches) == 0 {
		return []Segment{{Label: fallbackLabel, Content: text}}
	}

	segments := make([]Segment, 0, len(matches))
	for _, m := range matches {
		end := len(text)
		for _, other := range matches {
			if other.start >= m.end && other.start < end {
				end = other.start
			}
		}
		content := strings.TrimSpace(text[m.end:end])
		segments = append(segments, Segment{Label: m.label, Content: content})
	}

	return segments
}

// findHeading 查找标签的首个标题样出现。
// 行首形式允许省略冒号（如 markdown 标题），行内形式必须带冒号，
// 避免把正文里顺带提到的词当成标题。
func findHeading(text, label string) []int {
	quoted := regexp.QuoteMeta(label)

	lineRe := regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?\*{0,2}` + quoted + `\*{0,2}[ \t]*[:：]?[ \t]*`)
	inlineRe := regexp.MustCompile(`(?i)(?:#{1,6}[ \t]*)?\*{0,2}` + quoted + `\*{0,2}[ \t]*[:：][ \t]*`)

	lineLoc := lineRe.FindStringIndex(text)
	inlineLoc := inlineRe.FindStringIndex(text)

	switch {
	case lineLoc == nil:
		return inlineLoc
	case inlineLoc == nil:
		return lineLoc
	case inlineLoc[0] < lineLoc[0]:
		return inlineLoc
	default:
		return lineLoc
	}
}
