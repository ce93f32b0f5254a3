package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
)

// PatrolRepository 巡逻线路数据访问接口
type PatrolRepository interface {
	Create(ctx context.Context, patrol *model.Patrol) error
	GetByID(ctx context.Context, id string) (*model.Patrol, error)
	List(ctx context.Context) ([]model.Patrol, error)
	Update(ctx context.Context, patrol *model.Patrol) error
	Delete(ctx context.Context, id string) error
	// DeleteCascade 在一个事务内删除线路、其检查点以及检查点的打卡记录
	DeleteCascade(ctx context.Context, id string) error
	CountLogs(ctx context.Context, id string) (int64, error)
}

// CheckpointRepository 检查点数据访问接口
type CheckpointRepository interface {
	// Create 依赖 code 唯一约束；冲突时返回 gorm.ErrDuplicatedKey，由调用方重试
	Create(ctx context.Context, cp *model.PatrolCheckpoint) error
	GetByID(ctx context.Context, id string) (*model.PatrolCheckpoint, error)
	GetByCode(ctx context.Context, code string) (*model.PatrolCheckpoint, error)
	ListByPatrol(ctx context.Context, patrolID string) ([]model.PatrolCheckpoint, error)
	Update(ctx context.Context, cp *model.PatrolCheckpoint) error
	Delete(ctx context.Context, id string) error
}

// PatrolLogRepository 巡逻打卡数据访问接口（仅追加）
type PatrolLogRepository interface {
	Create(ctx context.Context, log *model.PatrolLog) error
	ListByPatrol(ctx context.Context, patrolID string) ([]model.PatrolLog, error)
	ListByCheckpoint(ctx context.Context, checkpointID string) ([]model.PatrolLog, error)
}

// ── Patrol Repository 实现 ──

type patrolRepo struct {
	db *gorm.DB
}

func NewPatrolRepo(db *gorm.DB) PatrolRepository {
	return &patrolRepo{db: db}
}

func (r *patrolRepo) Create(ctx context.Context, patrol *model.Patrol) error {
	return r.db.WithContext(ctx).Create(patrol).Error
}

func (r *patrolRepo) GetByID(ctx context.Context, id string) (*model.Patrol, error) {
	var patrol model.Patrol
	err := r.db.WithContext(ctx).
		Preload("Checkpoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Where("patrol_id = ?", id).
		First(&patrol).Error
	if err != nil {
		return nil, err
	}
	return &patrol, nil
}

func (r *patrolRepo) List(ctx context.Context) ([]model.Patrol, error) {
	var patrols []model.Patrol
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&patrols).Error
	return patrols, err
}

func (r *patrolRepo) Update(ctx context.Context, patrol *model.Patrol) error {
	return r.db.WithContext(ctx).
		Model(patrol).
		Where("patrol_id = ?", patrol.PatrolID).
		Update("name", patrol.Name).Error
}

func (r *patrolRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 无打卡记录时也要清掉空检查点，线路不残留孤儿
		if err := tx.Where("patrol_id = ?", id).Delete(&model.PatrolCheckpoint{}).Error; err != nil {
			return err
		}
		return tx.Where("patrol_id = ?", id).Delete(&model.Patrol{}).Error
	})
}

func (r *patrolRepo) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&model.PatrolCheckpoint{}).
			Select("checkpoint_id").
			Where("patrol_id = ?", id)
		if err := tx.Where("checkpoint_id IN (?)", sub).Delete(&model.PatrolLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("patrol_id = ?", id).Delete(&model.PatrolCheckpoint{}).Error; err != nil {
			return err
		}
		return tx.Where("patrol_id = ?", id).Delete(&model.Patrol{}).Error
	})
}

func (r *patrolRepo) CountLogs(ctx context.Context, id string) (int64, error) {
	var count int64
	sub := r.db.Model(&model.PatrolCheckpoint{}).
		Select("checkpoint_id").
		Where("patrol_id = ?", id)
	err := r.db.WithContext(ctx).
		Model(&model.PatrolLog{}).
		Where("checkpoint_id IN (?)", sub).
		Count(&count).Error
	return count, err
}

// ── Checkpoint Repository 实现 ──

type checkpointRepo struct {
	db *gorm.DB
}

func NewCheckpointRepo(db *gorm.DB) CheckpointRepository {
	return &checkpointRepo{db: db}
}

func (r *checkpointRepo) Create(ctx context.Context, cp *model.PatrolCheckpoint) error {
	return r.db.WithContext(ctx).Create(cp).Error
}

func (r *checkpointRepo) GetByID(ctx context.Context, id string) (*model.PatrolCheckpoint, error) {
	var cp model.PatrolCheckpoint
	err := r.db.WithContext(ctx).
		Where("checkpoint_id = ?", id).
		First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *checkpointRepo) GetByCode(ctx context.Context, code string) (*model.PatrolCheckpoint, error) {
	var cp model.PatrolCheckpoint
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *checkpointRepo) ListByPatrol(ctx context.Context, patrolID string) ([]model.PatrolCheckpoint, error) {
	var cps []model.PatrolCheckpoint
	err := r.db.WithContext(ctx).
		Where("patrol_id = ?", patrolID).
		Order("sort_order ASC, created_at ASC").
		Find(&cps).Error
	return cps, err
}

func (r *checkpointRepo) Update(ctx context.Context, cp *model.PatrolCheckpoint) error {
	// code / qr_url 不在更新列中：签发后不可变
	return r.db.WithContext(ctx).
		Model(cp).
		Where("checkpoint_id = ?", cp.CheckpointID).
		Updates(map[string]interface{}{
			"name":       cp.Name,
			"latitude":   cp.Latitude,
			"longitude":  cp.Longitude,
			"sort_order": cp.SortOrder,
		}).Error
}

func (r *checkpointRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("checkpoint_id = ?", id).
		Delete(&model.PatrolCheckpoint{}).Error
}

// ── PatrolLog Repository 实现 ──

type patrolLogRepo struct {
	db *gorm.DB
}

func NewPatrolLogRepo(db *gorm.DB) PatrolLogRepository {
	return &patrolLogRepo{db: db}
}

func (r *patrolLogRepo) Create(ctx context.Context, log *model.PatrolLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *patrolLogRepo) ListByPatrol(ctx context.Context, patrolID string) ([]model.PatrolLog, error) {
	var logs []model.PatrolLog
	sub := r.db.Model(&model.PatrolCheckpoint{}).
		Select("checkpoint_id").
		Where("patrol_id = ?", patrolID)
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("checkpoint_id IN (?)", sub).
		Order("logged_at DESC").
		Find(&logs).Error
	return logs, err
}

func (r *patrolLogRepo) ListByCheckpoint(ctx context.Context, checkpointID string) ([]model.PatrolLog, error) {
	var logs []model.PatrolLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("checkpoint_id = ?", checkpointID).
		Order("logged_at DESC").
		Find(&logs).Error
	return logs, err
}
