package service

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
	"github.com/mrexo321/warga-nusa-sub000/pkg/storage"
)

// ── 巡逻模块业务错误 ──

var (
	ErrPatrolNotFound     = errors.New("巡逻线路不存在")
	ErrCheckpointNotFound = errors.New("检查点不存在")
	ErrPatrolHasLogs      = errors.New("巡逻线路已有打卡记录，无法删除")
	ErrPhotoRequired      = errors.New("巡逻打卡必须附带照片")
)

// PatrolService 巡逻业务接口
//
// 打卡（Redeem）语义：
//   - 照片为必传证据，巡逻记录必须可审计
//   - 坐标可缺失：设备拒绝定位时降级为空坐标记录，而不是拒绝打卡
//   - 仅追加：同一检查点可被同一人或不同人多次打卡，每次一行
type PatrolService interface {
	CreatePatrol(ctx context.Context, req *dto.CreatePatrolRequest) (*dto.PatrolResponse, error)
	GetPatrol(ctx context.Context, id string) (*dto.PatrolResponse, error)
	ListPatrols(ctx context.Context) ([]dto.PatrolResponse, error)
	UpdatePatrol(ctx context.Context, id string, req *dto.UpdatePatrolRequest) (*dto.PatrolResponse, error)
	// DeletePatrol 的级联行为由 feature.patrol_delete_cascade 决定
	DeletePatrol(ctx context.Context, id string) error

	CreateCheckpoint(ctx context.Context, patrolID string, req *dto.CreateCheckpointRequest) (*dto.CheckpointResponse, error)
	UpdateCheckpoint(ctx context.Context, id string, req *dto.UpdateCheckpointRequest) (*dto.CheckpointResponse, error)

	Redeem(ctx context.Context, userID string, req *dto.RedeemPatrolRequest, photo io.Reader, photoExt string) (*dto.PatrolLogResponse, error)
	LogsByPatrol(ctx context.Context, patrolID string) ([]dto.CheckpointLogsResponse, error)
}

type patrolService struct {
	cfg      *config.Config
	repo     *repository.Repository
	store    storage.Storage
	geofence *GeofenceValidator
	logger   *zap.Logger
}

// NewPatrolService 创建 PatrolService 实例
func NewPatrolService(
	cfg *config.Config,
	repo *repository.Repository,
	store storage.Storage,
	geofence *GeofenceValidator,
	logger *zap.Logger,
) PatrolService {
	return &patrolService{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		geofence: geofence,
		logger:   logger,
	}
}

// ────────────────────── 线路 CRUD ──────────────────────

func (s *patrolService) CreatePatrol(ctx context.Context, req *dto.CreatePatrolRequest) (*dto.PatrolResponse, error) {
	patrol := &model.Patrol{Name: req.Name}
	if err := s.repo.Patrol.Create(ctx, patrol); err != nil {
		s.logger.Error("创建巡逻线路失败", zap.Error(err))
		return nil, err
	}
	return s.toPatrolResponse(patrol), nil
}

func (s *patrolService) GetPatrol(ctx context.Context, id string) (*dto.PatrolResponse, error) {
	patrol, err := s.repo.Patrol.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatrolNotFound
		}
		s.logger.Error("查询巡逻线路失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toPatrolResponse(patrol), nil
}

func (s *patrolService) ListPatrols(ctx context.Context) ([]dto.PatrolResponse, error) {
	patrols, err := s.repo.Patrol.List(ctx)
	if err != nil {
		s.logger.Error("列出巡逻线路失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.PatrolResponse, 0, len(patrols))
	for i := range patrols {
		result = append(result, *s.toPatrolResponse(&patrols[i]))
	}
	return result, nil
}

func (s *patrolService) UpdatePatrol(ctx context.Context, id string, req *dto.UpdatePatrolRequest) (*dto.PatrolResponse, error) {
	patrol, err := s.repo.Patrol.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatrolNotFound
		}
		s.logger.Error("查询巡逻线路失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		patrol.Name = *req.Name
	}

	if err := s.repo.Patrol.Update(ctx, patrol); err != nil {
		s.logger.Error("更新巡逻线路失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toPatrolResponse(patrol), nil
}

func (s *patrolService) DeletePatrol(ctx context.Context, id string) error {
	if _, err := s.repo.Patrol.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPatrolNotFound
		}
		s.logger.Error("查询巡逻线路失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if s.cfg.Feature.PatrolDeleteCascade {
		return s.repo.Patrol.DeleteCascade(ctx, id)
	}

	// restrict 策略：已有打卡记录则拒绝
	count, err := s.repo.Patrol.CountLogs(ctx, id)
	if err != nil {
		s.logger.Error("统计巡逻打卡失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrPatrolHasLogs
	}

	return s.repo.Patrol.Delete(ctx, id)
}

// ────────────────────── 检查点 ──────────────────────

func (s *patrolService) CreateCheckpoint(ctx context.Context, patrolID string, req *dto.CreateCheckpointRequest) (*dto.CheckpointResponse, error) {
	if _, err := s.repo.Patrol.GetByID(ctx, patrolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatrolNotFound
		}
		s.logger.Error("查询巡逻线路失败", zap.String("id", patrolID), zap.Error(err))
		return nil, err
	}

	var cp *model.PatrolCheckpoint
	err := issueCode(ctx, s.store, "patrol", func(code, qrURL string) error {
		cp = &model.PatrolCheckpoint{
			PatrolID:  patrolID,
			Name:      req.Name,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			SortOrder: req.SortOrder,
			Code:      code,
			QRURL:     qrURL,
		}
		return s.repo.Checkpoint.Create(ctx, cp)
	})
	if err != nil {
		s.logger.Error("创建检查点失败", zap.String("patrol_id", patrolID), zap.Error(err))
		return nil, err
	}

	return s.toCheckpointResponse(cp), nil
}

func (s *patrolService) UpdateCheckpoint(ctx context.Context, id string, req *dto.UpdateCheckpointRequest) (*dto.CheckpointResponse, error) {
	cp, err := s.repo.Checkpoint.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckpointNotFound
		}
		s.logger.Error("查询检查点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		cp.Name = *req.Name
	}
	if req.Latitude != nil {
		cp.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		cp.Longitude = *req.Longitude
	}
	if req.SortOrder != nil {
		cp.SortOrder = *req.SortOrder
	}

	// 编码与二维码不随编辑变化
	if err := s.repo.Checkpoint.Update(ctx, cp); err != nil {
		s.logger.Error("更新检查点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toCheckpointResponse(cp), nil
}

// ────────────────────── 打卡 ──────────────────────

func (s *patrolService) Redeem(ctx context.Context, userID string, req *dto.RedeemPatrolRequest, photo io.Reader, photoExt string) (*dto.PatrolLogResponse, error) {
	if photo == nil {
		return nil, ErrPhotoRequired
	}

	cp, err := s.repo.Checkpoint.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		s.logger.Error("查询检查点编码失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	if err := s.geofence.Check(cp.Latitude, cp.Longitude, req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	// 证据先落存储，行后落库；落库失败时回收照片，绝不留下无照片的打卡行
	photoName := path.Join("photos", "patrol", uuid.New().String()+photoExt)
	photoURL, err := s.store.Save(ctx, photoName, photo)
	if err != nil {
		s.logger.Error("保存巡逻照片失败", zap.Error(err))
		return nil, err
	}

	log := &model.PatrolLog{
		CheckpointID: cp.CheckpointID,
		UserID:       userID,
		LoggedAt:     time.Now(),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Note:         req.Note,
		PhotoURL:     photoURL,
	}
	if err := s.repo.PatrolLog.Create(ctx, log); err != nil {
		_ = s.store.Delete(ctx, photoName)
		s.logger.Error("写入巡逻打卡失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	return s.toLogResponse(log), nil
}

func (s *patrolService) LogsByPatrol(ctx context.Context, patrolID string) ([]dto.CheckpointLogsResponse, error) {
	checkpoints, err := s.repo.Checkpoint.ListByPatrol(ctx, patrolID)
	if err != nil {
		s.logger.Error("列出检查点失败", zap.String("patrol_id", patrolID), zap.Error(err))
		return nil, err
	}

	logs, err := s.repo.PatrolLog.ListByPatrol(ctx, patrolID)
	if err != nil {
		s.logger.Error("列出巡逻打卡失败", zap.String("patrol_id", patrolID), zap.Error(err))
		return nil, err
	}

	// 按检查点分组；无记录的检查点也出现在审计视图中
	byCheckpoint := make(map[string][]dto.PatrolLogResponse)
	for i := range logs {
		l := &logs[i]
		byCheckpoint[l.CheckpointID] = append(byCheckpoint[l.CheckpointID], *s.toLogResponse(l))
	}

	result := make([]dto.CheckpointLogsResponse, 0, len(checkpoints))
	for i := range checkpoints {
		cp := &checkpoints[i]
		group := byCheckpoint[cp.CheckpointID]
		if group == nil {
			group = []dto.PatrolLogResponse{}
		}
		result = append(result, dto.CheckpointLogsResponse{
			Checkpoint: *s.toCheckpointResponse(cp),
			Logs:       group,
		})
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *patrolService) toPatrolResponse(patrol *model.Patrol) *dto.PatrolResponse {
	resp := &dto.PatrolResponse{
		ID:        patrol.PatrolID,
		Name:      patrol.Name,
		CreatedAt: patrol.CreatedAt.Format(time.RFC3339),
		UpdatedAt: patrol.UpdatedAt.Format(time.RFC3339),
	}
	for i := range patrol.Checkpoints {
		resp.Checkpoints = append(resp.Checkpoints, *s.toCheckpointResponse(&patrol.Checkpoints[i]))
	}
	return resp
}

func (s *patrolService) toCheckpointResponse(cp *model.PatrolCheckpoint) *dto.CheckpointResponse {
	return &dto.CheckpointResponse{
		ID:        cp.CheckpointID,
		PatrolID:  cp.PatrolID,
		Name:      cp.Name,
		Latitude:  cp.Latitude,
		Longitude: cp.Longitude,
		SortOrder: cp.SortOrder,
		Code:      cp.Code,
		QRURL:     cp.QRURL,
		CreatedAt: cp.CreatedAt.Format(time.RFC3339),
	}
}

func (s *patrolService) toLogResponse(log *model.PatrolLog) *dto.PatrolLogResponse {
	resp := &dto.PatrolLogResponse{
		ID:           log.LogID,
		CheckpointID: log.CheckpointID,
		UserID:       log.UserID,
		LoggedAt:     log.LoggedAt.Format(time.RFC3339),
		Latitude:     log.Latitude,
		Longitude:    log.Longitude,
		Note:         log.Note,
		PhotoURL:     log.PhotoURL,
	}
	if log.User != nil {
		resp.UserName = log.User.Name
	}
	return resp
}
