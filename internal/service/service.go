package service

import (
	"go.uber.org/zap"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
	"github.com/mrexo321/warga-nusa-sub000/pkg/jwt"
	"github.com/mrexo321/warga-nusa-sub000/pkg/redis"
	"github.com/mrexo321/warga-nusa-sub000/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	Shift  ShiftService
	Patrol PatrolService
	Course CourseService
	Export ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	store storage.Storage,
	logger *zap.Logger,
) *Service {
	geofence := NewGeofenceValidator(&cfg.Feature)
	return &Service{
		Auth:   NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Shift:  NewShiftService(cfg, repo, logger),
		Patrol: NewPatrolService(cfg, repo, store, geofence, logger),
		Course: NewCourseService(cfg, repo, store, logger),
		Export: NewExportService(repo, logger),
	}
}
