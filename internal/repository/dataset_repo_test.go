package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tabsight/sheet_go_server/internal/model"
	"github.com/tabsight/sheet_go_server/internal/testutil"
)

func TestDatasetRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	dataset := testutil.TestDataset(t, db, testutil.WithName("销售数据"))

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, "销售数据", got.Name)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, int64(0), got.RunGeneration)
	assert.Equal(t, model.RowsArray{{"north", "100"}, {"south", "200"}}, got.RawRows)
}

func TestDatasetRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	_, err := repo.GetByID(99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDatasetRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	testutil.TestDataset(t, db, testutil.WithName("Alpha Sales"))
	testutil.TestDataset(t, db, testutil.WithName("Beta Inventory"), testutil.WithStatus(model.StatusCompleted))
	testutil.TestDataset(t, db, testutil.WithName("Gamma Sales"), testutil.WithStatus(model.StatusFailed))

	t.Run("all", func(t *testing.T) {
		items, total, err := repo.List(1, 10, "", "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
	})

	t.Run("search by name", func(t *testing.T) {
		items, total, err := repo.List(1, 10, "Sales", "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		items, total, err := repo.List(1, 10, "", model.StatusFailed)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Gamma Sales", items[0].Name)
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := repo.List(2, 2, "", "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 1)
	})
}

func TestDatasetRepository_BeginRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	dataset := testutil.TestDataset(t, db,
		testutil.WithStatus(model.StatusFailed),
		testutil.WithResults([]byte(`{"row_count":2}`)),
	)
	require.NoError(t, db.Model(dataset).UpdateColumn("error_message", "之前的错误").Error)
	testutil.TestInsight(t, db, dataset.ID, "general", "old finding", 0)

	generation, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), generation)

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Equal(t, int64(1), got.RunGeneration)
	// 旧结果、旧错误、旧洞察在新运行开始时全部清掉
	assert.Empty(t, got.Results)
	assert.Empty(t, got.ErrorMessage)
	assert.Nil(t, got.FailedAt)

	insightRepo := NewInsightRepository(db)
	count, err := insightRepo.CountByDatasetID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestDatasetRepository_BeginRun_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	_, err := repo.BeginRun(99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDatasetRepository_BeginRun_GenerationMonotonic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	g1, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)
	g2, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)
	g3, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), g1)
	assert.Equal(t, int64(2), g2)
	assert.Equal(t, int64(3), g3)
}

func TestDatasetRepository_CompleteRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	generation, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	results, _ := json.Marshal(map[string]int{"row_count": 2})
	insights := []*model.Insight{
		{DatasetID: dataset.ID, Category: "key findings", Finding: "growth", Confidence: 0.9, Priority: "medium", Impact: "moderate", Position: 0},
		{DatasetID: dataset.ID, Category: "risks", Finding: "churn", Confidence: 0.8, Priority: "high", Impact: "high", Position: 1},
	}
	analyzedAt := time.Now()

	applied, err := repo.CompleteRun(dataset.ID, generation, results, insights, analyzedAt)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.JSONEq(t, string(results), string(got.Results))
	assert.NotNil(t, got.LastAnalyzedAt)
	assert.Empty(t, got.ErrorMessage)

	insightRepo := NewInsightRepository(db)
	saved, err := insightRepo.ListByDatasetID(dataset.ID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "key findings", saved[0].Category)
	assert.Equal(t, "risks", saved[1].Category)
}

func TestDatasetRepository_CompleteRun_StaleGeneration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	staleGen, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	// 新运行抢先认领
	_, err = repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	applied, err := repo.CompleteRun(dataset.ID, staleGen, []byte(`{}`), nil, time.Now())
	require.NoError(t, err)
	assert.False(t, applied)

	// 过期写入没有留下任何痕迹
	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Empty(t, got.Results)
}

func TestDatasetRepository_FailRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	generation, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	applied, err := repo.FailRun(dataset.ID, generation, "合成失败", nil)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "合成失败", got.ErrorMessage)
	assert.NotNil(t, got.FailedAt)
	assert.Empty(t, got.Results)
}

func TestDatasetRepository_FailRun_KeepsPartialResults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	generation, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	// 统计已完成但合成失败：结果包保留
	results := []byte(`{"row_count":2}`)
	applied, err := repo.FailRun(dataset.ID, generation, "生成超时", results)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.JSONEq(t, string(results), string(got.Results))
}

func TestDatasetRepository_FailRun_StaleGeneration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	staleGen, err := repo.BeginRun(dataset.ID)
	require.NoError(t, err)
	_, err = repo.BeginRun(dataset.ID)
	require.NoError(t, err)

	applied, err := repo.FailRun(dataset.ID, staleGen, "过期失败", nil)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestDatasetRepository_ResetForRetry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db, testutil.WithError("上次失败"))

	require.NoError(t, repo.ResetForRetry(dataset.ID))

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Nil(t, got.FailedAt)
}

func TestDatasetRepository_FailStaleRuns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)

	stuck := testutil.TestDataset(t, db, testutil.WithStatus(model.StatusProcessing))
	require.NoError(t, db.Model(stuck).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	running := testutil.TestDataset(t, db, testutil.WithStatus(model.StatusProcessing))
	done := testutil.TestDataset(t, db, testutil.WithStatus(model.StatusCompleted))
	require.NoError(t, db.Model(done).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	affected, err := repo.FailStaleRuns(time.Now().Add(-30*time.Minute), "分析超时")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.GetByID(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "分析超时", got.ErrorMessage)

	got, err = repo.GetByID(running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, got.Status)

	got, err = repo.GetByID(done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestDatasetRepository_Delete_KeepsReports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)
	testutil.TestInsight(t, db, dataset.ID, "general", "finding", 0)
	report := testutil.TestReport(t, db, dataset.ID)

	require.NoError(t, repo.Delete(dataset.ID))

	_, err := repo.GetByID(dataset.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	insightRepo := NewInsightRepository(db)
	count, err := insightRepo.CountByDatasetID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// 报告独立保留
	var keptReport model.Report
	require.NoError(t, db.First(&keptReport, report.ID).Error)
	assert.Equal(t, dataset.ID, keptReport.DatasetID)
}

func TestDatasetRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDatasetRepository(db)
	dataset := testutil.TestDataset(t, db)

	require.NoError(t, repo.UpdateFields(dataset.ID, map[string]interface{}{
		"archive_url": "https://cdn.example.com/datasets/1/test.csv",
	}))

	got, err := repo.GetByID(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/datasets/1/test.csv", got.ArchiveURL)
}
