package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportMonthlySchedule 导出月度排班表 (.xlsx)
// GET /api/v1/export/schedule?year=2025&month=3
func (h *ExportHandler) ExportMonthlySchedule(c *gin.Context) {
	var req dto.ScheduleQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportMonthlySchedule(c.Request.Context(), req.Year, req.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, contentTypeXLSX, filename, buf.Bytes())
}

// ExportUserScheduleICS 导出个人排班日历 (.ics)
// GET /api/v1/export/schedule/me.ics?year=2025&month=3
func (h *ExportHandler) ExportUserScheduleICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ScheduleQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportUserScheduleICS(c.Request.Context(), userID, req.Year, req.Month)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, contentTypeICS, filename, buf.Bytes())
}

// writeDownload 设置文件下载响应头并写出内容
func writeDownload(c *gin.Context, contentType, filename string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

// handleExportError 统一处理导出模块业务错误
func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoAssignments):
		response.NotFound(c, 16001, "该月份暂无排班记录")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 16002, "用户不存在")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
