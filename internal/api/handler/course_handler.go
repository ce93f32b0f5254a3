package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

// CourseHandler 课程签到模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 获取课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseSvc.ListCourses(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": courses})
}

// GetCourse 获取课程详情（含会议）
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	course, err := h.courseSvc.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// CreateCourse 创建课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	course, err := h.courseSvc.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// UpdateCourse 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	course, err := h.courseSvc.UpdateCourse(c.Request.Context(), id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除课程
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	if err := h.courseSvc.DeleteCourse(c.Request.Context(), id); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// CreateMeeting 在课程下创建会议并签发签到码
// POST /api/v1/courses/:id/meetings
func (h *CourseHandler) CreateMeeting(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	meeting, err := h.courseSvc.CreateMeeting(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, meeting)
}

// UpdateMeeting 更新会议（签到码与二维码不变）
// PUT /api/v1/meetings/:id
func (h *CourseHandler) UpdateMeeting(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会议ID不能为空")
		return
	}

	var req dto.UpdateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	meeting, err := h.courseSvc.UpdateMeeting(c.Request.Context(), id, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, meeting)
}

// Redeem 会议签到
// POST /api/v1/attendances
func (h *CourseHandler) Redeem(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RedeemAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	att, err := h.courseSvc.Redeem(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, att)
}

// AttendancesByMeeting 会议签到列表
// GET /api/v1/meetings/:id/attendances
func (h *CourseHandler) AttendancesByMeeting(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "会议ID不能为空")
		return
	}

	atts, err := h.courseSvc.AttendancesByMeeting(c.Request.Context(), id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": atts})
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 14001, "课程不存在")
	case errors.Is(err, service.ErrMeetingNotFound):
		response.NotFound(c, 14002, "课程会议不存在")
	case errors.Is(err, service.ErrCourseHasAttendances):
		response.Conflict(c, 14003, "课程已有签到记录，无法删除")
	case errors.Is(err, service.ErrAlreadyRedeemed):
		response.Conflict(c, 14004, "该会议已签到，不能重复签到")
	case errors.Is(err, service.ErrMeetingTimeInvalid):
		response.BadRequest(c, 14005, "会议结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrMeetingTimeFormat):
		response.BadRequest(c, 14007, "会议时间必须为 RFC3339 格式")
	case errors.Is(err, service.ErrCodeNotFound):
		response.NotFound(c, 14006, "编码不存在")
	default:
		response.InternalError(c)
	}
}
