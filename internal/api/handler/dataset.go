package handler

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/pkg/response"
	"github.com/tabsight/sheet_go_server/internal/service"
)

type DatasetHandler struct {
	datasetService *service.DatasetService
	ingestService  *service.IngestService
	cfg            *config.Config
}

func NewDatasetHandler(
	datasetService *service.DatasetService,
	ingestService *service.IngestService,
	cfg *config.Config,
) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		ingestService:  ingestService,
		cfg:            cfg,
	}
}

// Create 上传数据集并调度分析
// POST /api/v1/datasets
func (h *DatasetHandler) Create(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请上传文件")
		return
	}
	defer file.Close()

	if h.cfg.Upload.MaxSize > 0 && header.Size > h.cfg.Upload.MaxSize {
		response.ParamError(c, "文件过大")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.extAllowed(ext) {
		response.ParamError(c, "仅支持 XLSX/CSV 格式")
		return
	}

	// 先落临时文件再解析
	tempFile, err := os.CreateTemp(h.cfg.Upload.TempDir, "dataset-*"+ext)
	if err != nil {
		response.ServerError(c, "文件保存失败")
		return
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, file); err != nil {
		response.ServerError(c, "文件保存失败")
		return
	}

	sheet, err := h.ingestService.ParseFile(tempFile.Name(), header.Filename)
	if err != nil {
		switch err {
		case service.ErrUnsupportedFormat, service.ErrInvalidSpreadsheet, service.ErrNoHeader:
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "解析失败")
		}
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = strings.TrimSuffix(header.Filename, ext)
	}

	fileData, err := os.ReadFile(tempFile.Name())
	if err != nil {
		fileData = nil // 归档失败不阻塞分析
	}

	resp, err := h.datasetService.Create(c.Request.Context(), name, header.Filename, sheet, fileData)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "分析已调度", resp)
}

// List 获取数据集列表
// GET /api/v1/datasets
func (h *DatasetHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	search := c.Query("search")
	status := c.Query("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.datasetService.List(page, pageSize, search, status)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 获取数据集详情（轮询分析状态的端点）
// GET /api/v1/datasets/:id
func (h *DatasetHandler) Get(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	detail, err := h.datasetService.GetByID(datasetID)
	if err != nil {
		switch err {
		case service.ErrDatasetNotFound:
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// Delete 删除数据集
// DELETE /api/v1/datasets/:id
func (h *DatasetHandler) Delete(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	if err := h.datasetService.Delete(datasetID); err != nil {
		switch err {
		case service.ErrDatasetNotFound:
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Insights 获取洞察列表
// GET /api/v1/datasets/:id/insights
func (h *DatasetHandler) Insights(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	items, err := h.datasetService.Insights(datasetID)
	if err != nil {
		switch err {
		case service.ErrDatasetNotFound:
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, items)
}

// Retry 重试/重新分析
// POST /api/v1/datasets/:id/retry
func (h *DatasetHandler) Retry(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	resp, err := h.datasetService.Retry(c.Request.Context(), datasetID)
	if err != nil {
		switch err {
		case service.ErrDatasetNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrNoSourceRows:
			response.ConflictError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "重新分析已调度", resp)
}

func (h *DatasetHandler) extAllowed(ext string) bool {
	if len(h.cfg.Upload.AllowedExtensions) == 0 {
		return ext == ".xlsx" || ext == ".xls" || ext == ".xlsm" || ext == ".csv"
	}
	for _, allowed := range h.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
