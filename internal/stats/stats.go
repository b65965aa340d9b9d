package stats

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoRows    = errors.New("dataset has no data rows")
	ErrNoColumns = errors.New("dataset has no columns")
)

// 列类型
const (
	TypeNumeric = "numeric"
	TypeText    = "text"
)

// ColumnStats 单列的描述统计
type ColumnStats struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	NonEmpty int      `json:"non_empty"`
	Missing  int      `json:"missing"`
	Distinct int      `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
	StdDev   *float64 `json:"std_dev,omitempty"`
}

// Results 一次统计运行的结果包。对流水线其余部分是不透明负载，
// 只有提示词构造会读取其中字段。
type Results struct {
	RowCount    int           `json:"row_count"`
	ColumnCount int           `json:"column_count"`
	Columns     []ColumnStats `json:"columns"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Analyze 对规整后的行计算描述统计。
// 空输入返回错误，由调用方映射为 failed 状态。
func Analyze(columns []string, rows [][]string) (*Results, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	results := &Results{
		RowCount:    len(rows),
		ColumnCount: len(columns),
		Columns:     make([]ColumnStats, 0, len(columns)),
		GeneratedAt: time.Now(),
	}

	for i, name := range columns {
		results.Columns = append(results.Columns, analyzeColumn(name, i, rows))
	}

	return results, nil
}

func analyzeColumn(name string, index int, rows [][]string) ColumnStats {
	cs := ColumnStats{Name: name, Type: TypeText}

	distinct := make(map[string]struct{})
	var values []float64
	numeric := true

	for _, row := range rows {
		var cell string
		if index < len(row) {
			cell = strings.TrimSpace(row[index])
		}
		if cell == "" {
			cs.Missing++
			continue
		}

		cs.NonEmpty++
		distinct[cell] = struct{}{}

		if numeric {
			v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
			if err != nil {
				numeric = false
			} else {
				values = append(values, v)
			}
		}
	}

	cs.Distinct = len(distinct)

	if numeric && len(values) > 0 {
		cs.Type = TypeNumeric
		min, max, mean, stddev := describe(values)
		cs.Min = &min
		cs.Max = &max
		cs.Mean = &mean
		cs.StdDev = &stddev
	}

	return cs
}

func describe(values []float64) (min, max, mean, stddev float64) {
	min = values[0]
	max = values[0]
	var sum float64
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean = sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		sqDiff += (v - mean) * (v - mean)
	}
	stddev = math.Sqrt(sqDiff / float64(len(values)))

	return min, max, mean, stddev
}
