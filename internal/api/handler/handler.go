package handler

import (
	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	Shift  *ShiftHandler
	Patrol *PatrolHandler
	Course *CourseHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth),
		Shift:  NewShiftHandler(svc.Shift),
		Patrol: NewPatrolHandler(&cfg.Storage, svc.Patrol),
		Course: NewCourseHandler(svc.Course),
		Export: NewExportHandler(svc.Export),
	}
}
