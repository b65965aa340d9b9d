package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tabsight/sheet_go_server/config"
)

func newIngestService() *IngestService {
	return NewIngestService(&config.Config{})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseFile_CSV(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "sales.csv", "region,revenue\nnorth,100\nsouth,200\n")

	sheet, err := svc.ParseFile(path, "sales.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "revenue"}, sheet.Columns)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"north", "100"}, sheet.Rows[0])
	assert.Equal(t, []string{"south", "200"}, sheet.Rows[1])
}

func TestParseFile_CSV_RaggedRows(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "ragged.csv", "a,b,c\n1,2\n4,5,6,7\n")

	sheet, err := svc.ParseFile(path, "ragged.csv")
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 2)
	// 短行补齐，长行截断
	assert.Equal(t, []string{"1", "2", ""}, sheet.Rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, sheet.Rows[1])
}

func TestParseFile_CSV_SkipsEmptyRows(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "gaps.csv", "a,b\n1,2\n,\n3,4\n")

	sheet, err := svc.ParseFile(path, "gaps.csv")
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"1", "2"}, sheet.Rows[0])
	assert.Equal(t, []string{"3", "4"}, sheet.Rows[1])
}

func TestParseFile_CSV_LeadingEmptyRowsBeforeHeader(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "padded.csv", ",\n,\na,b\n1,2\n")

	sheet, err := svc.ParseFile(path, "padded.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, sheet.Columns)
	require.Len(t, sheet.Rows, 1)
}

func TestParseFile_CSV_HeaderOnly(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "header.csv", "a,b\n")

	// 空表不在这里报错，由分析流水线判为失败
	sheet, err := svc.ParseFile(path, "header.csv")
	require.NoError(t, err)
	assert.Empty(t, sheet.Rows)
}

func TestParseFile_CSV_NoHeader(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "empty.csv", "")

	_, err := svc.ParseFile(path, "empty.csv")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestParseFile_CSV_CellSanitized(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "dirty.csv", "a,b\n  north \x00 ,100\n")

	sheet, err := svc.ParseFile(path, "dirty.csv")
	require.NoError(t, err)
	assert.Equal(t, "north", sheet.Rows[0][0])
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "data.txt", "whatever")

	_, err := svc.ParseFile(path, "data.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFile_XLSX(t *testing.T) {
	svc := newIngestService()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"region", "revenue"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"north", 100}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"south", 200}))

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sheet, err := svc.ParseFile(path, "sales.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "revenue"}, sheet.Columns)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"north", "100"}, sheet.Rows[0])
}

func TestParseFile_XLSX_Corrupt(t *testing.T) {
	svc := newIngestService()
	path := writeTempFile(t, "broken.xlsx", "not a zip archive")

	_, err := svc.ParseFile(path, "broken.xlsx")
	assert.ErrorIs(t, err, ErrInvalidSpreadsheet)
}
