package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

// ShiftHandler 班次与排班模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// ListShifts 获取班次列表
// GET /api/v1/shifts
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	shifts, err := h.shiftSvc.ListShifts(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": shifts})
}

// GetShift 获取班次详情
// GET /api/v1/shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班次ID不能为空")
		return
	}

	shift, err := h.shiftSvc.GetShift(c.Request.Context(), id)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// CreateShift 创建班次
// POST /api/v1/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.CreateShift(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, shift)
}

// UpdateShift 更新班次
// PUT /api/v1/shifts/:id
func (h *ShiftHandler) UpdateShift(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班次ID不能为空")
		return
	}

	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	shift, err := h.shiftSvc.UpdateShift(c.Request.Context(), id, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// DeleteShift 删除班次
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) DeleteShift(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "班次ID不能为空")
		return
	}

	if err := h.shiftSvc.DeleteShift(c.Request.Context(), id); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, nil)
}

// Assign 排班：把班次指派给人员的某个日期
// POST /api/v1/assignments
func (h *ShiftHandler) Assign(c *gin.Context) {
	var req dto.AssignShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assignment, err := h.shiftSvc.Assign(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, assignment)
}

// Unassign 取消排班
// DELETE /api/v1/assignments
func (h *ShiftHandler) Unassign(c *gin.Context) {
	var req dto.UnassignShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.shiftSvc.Unassign(c.Request.Context(), &req); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, nil)
}

// MonthlySchedule 月度排班视图
// GET /api/v1/schedule?year=2025&month=3
func (h *ShiftHandler) MonthlySchedule(c *gin.Context) {
	var req dto.ScheduleQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.shiftSvc.MonthlySchedule(c.Request.Context(), req.Year, req.Month)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, schedule)
}

// handleShiftError 统一处理班次模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 12001, "班次不存在")
	case errors.Is(err, service.ErrShiftInUse):
		response.Conflict(c, 12002, "班次仍被排班引用，无法删除")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12003, "用户不存在")
	default:
		response.InternalError(c)
	}
}
