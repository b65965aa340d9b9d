package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tabsight/sheet_go_server/internal/model/dto"
	"github.com/tabsight/sheet_go_server/internal/pkg/response"
	"github.com/tabsight/sheet_go_server/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Create 调度报告生成
// POST /api/v1/datasets/:id/reports
func (h *ReportHandler) Create(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.ParamError(c, "无效的请求参数")
		return
	}

	resp, err := h.reportService.Generate(c.Request.Context(), datasetID, &req)
	if err != nil {
		switch err {
		case service.ErrDatasetNotFound:
			response.NotFoundError(c, err.Error())
		case service.ErrInvalidTemplate:
			response.ParamError(c, err.Error())
		case service.ErrAnalysisNotComplete:
			response.ConflictError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "报告生成已调度", resp)
}

// List 获取数据集的报告列表
// GET /api/v1/datasets/:id/reports
func (h *ReportHandler) List(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}

	items, err := h.reportService.List(datasetID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Get 获取报告详情
// GET /api/v1/datasets/:id/reports/:report_id
func (h *ReportHandler) Get(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}
	reportID, err := strconv.ParseInt(c.Param("report_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的报告ID")
		return
	}

	detail, err := h.reportService.Get(datasetID, reportID)
	if err != nil {
		switch err {
		case service.ErrReportNotFound:
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// Delete 删除报告
// DELETE /api/v1/datasets/:id/reports/:report_id
func (h *ReportHandler) Delete(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的数据集ID")
		return
	}
	reportID, err := strconv.ParseInt(c.Param("report_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的报告ID")
		return
	}

	if err := h.reportService.Delete(datasetID, reportID); err != nil {
		switch err {
		case service.ErrReportNotFound:
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
