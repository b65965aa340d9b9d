package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tabsight/sheet_go_server/internal/pkg/response"
	"github.com/tabsight/sheet_go_server/internal/synthesis"
)

type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// List 获取可用的报告模板
// GET /api/v1/report-templates
func (h *TemplateHandler) List(c *gin.Context) {
	response.Success(c, synthesis.TemplateKinds)
}
