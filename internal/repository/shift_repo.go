package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	List(ctx context.Context) ([]model.Shift, error)
	Update(ctx context.Context, shift *model.Shift) error
	Delete(ctx context.Context, id string) error
	// DeleteCascade 在一个事务内删除班次及其全部排班
	DeleteCascade(ctx context.Context, id string) error
}

// AssignmentRepository 排班数据访问接口
type AssignmentRepository interface {
	// Replace 原子替换 (user, date) 的排班：先删后插。
	// 与并发写失败的一方会撞上唯一约束，在事务内重试一次。
	Replace(ctx context.Context, a *model.ShiftAssignment) error
	DeleteByUserDate(ctx context.Context, userID string, date time.Time) error
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.ShiftAssignment, error)
	ListByUserDateRange(ctx context.Context, userID string, from, to time.Time) ([]model.ShiftAssignment, error)
	CountByShift(ctx context.Context, shiftID string) (int64, error)
}

// ── Shift Repository 实现 ──

type shiftRepo struct {
	db *gorm.DB
}

func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) List(ctx context.Context) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Order("start_time ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).
		Model(shift).
		Where("shift_id = ?", shift.ShiftID).
		Updates(map[string]interface{}{
			"name":       shift.Name,
			"start_time": shift.StartTime,
			"end_time":   shift.EndTime,
		}).Error
}

func (r *shiftRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		Delete(&model.Shift{}).Error
}

func (r *shiftRepo) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shift_id = ?", id).Delete(&model.ShiftAssignment{}).Error; err != nil {
			return err
		}
		return tx.Where("shift_id = ?", id).Delete(&model.Shift{}).Error
	})
}

// ── Assignment Repository 实现 ──

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Replace(ctx context.Context, a *model.ShiftAssignment) error {
	replaceOnce := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.
				Where("user_id = ? AND work_date = ?", a.UserID, a.WorkDate).
				Delete(&model.ShiftAssignment{}).Error; err != nil {
				return err
			}
			return tx.Create(a).Error
		})
	}

	err := replaceOnce()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 并发写在删除与插入之间落了一行；重试即转为替换对方的结果
		a.AssignmentID = ""
		err = replaceOnce()
	}
	return err
}

func (r *assignmentRepo) DeleteByUserDate(ctx context.Context, userID string, date time.Time) error {
	// 行不存在时 Delete 影响 0 行且不报错，天然幂等
	return r.db.WithContext(ctx).
		Where("user_id = ? AND work_date = ?", userID, date).
		Delete(&model.ShiftAssignment{}).Error
}

func (r *assignmentRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.ShiftAssignment, error) {
	var assignments []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Shift").
		Where("work_date >= ? AND work_date <= ?", from, to).
		Order("work_date ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) ListByUserDateRange(ctx context.Context, userID string, from, to time.Time) ([]model.ShiftAssignment, error) {
	var assignments []model.ShiftAssignment
	err := r.db.WithContext(ctx).
		Preload("Shift").
		Where("user_id = ? AND work_date >= ? AND work_date <= ?", userID, from, to).
		Order("work_date ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) CountByShift(ctx context.Context, shiftID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShiftAssignment{}).
		Where("shift_id = ?", shiftID).
		Count(&count).Error
	return count, err
}
