package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

// PatrolHandler 巡逻模块 HTTP 处理器
type PatrolHandler struct {
	storageCfg *config.StorageConfig
	patrolSvc  service.PatrolService
}

// NewPatrolHandler 创建 PatrolHandler
func NewPatrolHandler(storageCfg *config.StorageConfig, patrolSvc service.PatrolService) *PatrolHandler {
	return &PatrolHandler{storageCfg: storageCfg, patrolSvc: patrolSvc}
}

// photoExtAllowed 巡逻照片允许的扩展名
var photoExtAllowed = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// ListPatrols 获取巡逻线路列表
// GET /api/v1/patrols
func (h *PatrolHandler) ListPatrols(c *gin.Context) {
	patrols, err := h.patrolSvc.ListPatrols(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": patrols})
}

// GetPatrol 获取巡逻线路详情（含检查点）
// GET /api/v1/patrols/:id
func (h *PatrolHandler) GetPatrol(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "线路ID不能为空")
		return
	}

	patrol, err := h.patrolSvc.GetPatrol(c.Request.Context(), id)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, patrol)
}

// CreatePatrol 创建巡逻线路
// POST /api/v1/patrols
func (h *PatrolHandler) CreatePatrol(c *gin.Context) {
	var req dto.CreatePatrolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	patrol, err := h.patrolSvc.CreatePatrol(c.Request.Context(), &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.Created(c, patrol)
}

// UpdatePatrol 更新巡逻线路
// PUT /api/v1/patrols/:id
func (h *PatrolHandler) UpdatePatrol(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "线路ID不能为空")
		return
	}

	var req dto.UpdatePatrolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	patrol, err := h.patrolSvc.UpdatePatrol(c.Request.Context(), id, &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, patrol)
}

// DeletePatrol 删除巡逻线路
// DELETE /api/v1/patrols/:id
func (h *PatrolHandler) DeletePatrol(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "线路ID不能为空")
		return
	}

	if err := h.patrolSvc.DeletePatrol(c.Request.Context(), id); err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, nil)
}

// CreateCheckpoint 在线路下创建检查点并签发编码
// POST /api/v1/patrols/:id/checkpoints
func (h *PatrolHandler) CreateCheckpoint(c *gin.Context) {
	patrolID := c.Param("id")
	if patrolID == "" {
		response.BadRequest(c, 10001, "线路ID不能为空")
		return
	}

	var req dto.CreateCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	cp, err := h.patrolSvc.CreateCheckpoint(c.Request.Context(), patrolID, &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.Created(c, cp)
}

// UpdateCheckpoint 更新检查点（编码与二维码不变）
// PUT /api/v1/checkpoints/:id
func (h *PatrolHandler) UpdateCheckpoint(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "检查点ID不能为空")
		return
	}

	var req dto.UpdateCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	cp, err := h.patrolSvc.UpdateCheckpoint(c.Request.Context(), id, &req)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, cp)
}

// Redeem 巡逻打卡（multipart：code + 照片 + 可选坐标/备注）
// POST /api/v1/patrol-logs
func (h *PatrolHandler) Redeem(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RedeemPatrolRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		response.BadRequest(c, 13004, "巡逻打卡必须附带照片")
		return
	}
	if h.storageCfg.MaxPhotoBytes > 0 && fileHeader.Size > h.storageCfg.MaxPhotoBytes {
		response.BadRequest(c, 13005, "照片超出大小限制")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !photoExtAllowed[ext] {
		response.BadRequest(c, 13006, "不支持的照片格式")
		return
	}

	photo, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer photo.Close()

	log, err := h.patrolSvc.Redeem(c.Request.Context(), userID, &req, photo, ext)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.Created(c, log)
}

// LogsByPatrol 按检查点分组的打卡记录（审计视图）
// GET /api/v1/patrols/:id/logs
func (h *PatrolHandler) LogsByPatrol(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "线路ID不能为空")
		return
	}

	groups, err := h.patrolSvc.LogsByPatrol(c.Request.Context(), id)
	if err != nil {
		h.handlePatrolError(c, err)
		return
	}

	response.OK(c, gin.H{"list": groups})
}

// handlePatrolError 统一处理巡逻模块业务错误
func (h *PatrolHandler) handlePatrolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPatrolNotFound):
		response.NotFound(c, 13001, "巡逻线路不存在")
	case errors.Is(err, service.ErrCheckpointNotFound):
		response.NotFound(c, 13002, "检查点不存在")
	case errors.Is(err, service.ErrPatrolHasLogs):
		response.Conflict(c, 13003, "巡逻线路已有打卡记录，无法删除")
	case errors.Is(err, service.ErrPhotoRequired):
		response.BadRequest(c, 13004, "巡逻打卡必须附带照片")
	case errors.Is(err, service.ErrCodeNotFound):
		response.NotFound(c, 13007, "编码不存在")
	case errors.Is(err, service.ErrOutOfGeofence):
		response.BadRequest(c, 13008, "打卡位置超出检查点范围")
	default:
		response.InternalError(c)
	}
}
