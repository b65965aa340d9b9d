package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/tabsight/sheet_go_server/config"
)

var (
	ErrUnsupportedFormat  = fmt.Errorf("仅支持 XLSX/CSV 格式")
	ErrInvalidSpreadsheet = fmt.Errorf("文件损坏或无法解析")
	ErrNoHeader           = fmt.Errorf("未找到表头行")
)

// ParsedSheet 规整后的表格数据：表头 + 与表头等宽的数据行
type ParsedSheet struct {
	Columns []string
	Rows    [][]string
}

type IngestService struct {
	cfg *config.Config
}

func NewIngestService(cfg *config.Config) *IngestService {
	return &IngestService{cfg: cfg}
}

// ParseFile 解析上传的表格文件。
// 空表（有表头无数据行）在这里不报错，由分析流水线判为失败。
func (s *IngestService) ParseFile(path, filename string) (*ParsedSheet, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return s.parseCSV(path)
	case ".xlsx", ".xlsm", ".xls":
		return s.parseExcel(path)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func (s *IngestService) parseCSV(path string) (*ParsedSheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // 允许参差不齐的行，规整时补齐

	records, err := reader.ReadAll()
	if err != nil {
		return nil, ErrInvalidSpreadsheet
	}

	return normalize(records)
}

func (s *IngestService) parseExcel(path string) (*ParsedSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ErrInvalidSpreadsheet
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInvalidSpreadsheet
	}

	// 只取第一个工作表
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ErrInvalidSpreadsheet
	}

	return normalize(rows)
}

// normalize 取第一个非空行作为表头，其余行补齐/截断到表头宽度，
// 丢弃完全为空的行
func normalize(records [][]string) (*ParsedSheet, error) {
	var header []string
	start := 0
	for i, record := range records {
		if !rowEmpty(record) {
			header = sanitizeRow(record)
			start = i + 1
			break
		}
	}
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	rows := make([][]string, 0, len(records)-start)
	for _, record := range records[start:] {
		if rowEmpty(record) {
			continue
		}

		row := sanitizeRow(record)
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		} else if len(row) > len(header) {
			row = row[:len(header)]
		}
		rows = append(rows, row)
	}

	return &ParsedSheet{Columns: header, Rows: rows}, nil
}

func rowEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sanitizeRow(record []string) []string {
	row := make([]string, len(record))
	for i, cell := range record {
		row[i] = sanitizeCell(cell)
	}
	return row
}

// sanitizeCell 去掉首尾空白和控制字符
func sanitizeCell(cell string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, cell)
	return strings.TrimSpace(cleaned)
}
