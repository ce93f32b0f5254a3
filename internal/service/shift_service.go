package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound = errors.New("班次不存在")
	ErrShiftInUse    = errors.New("班次仍被排班引用，无法删除")
)

const dateLayout = "2006-01-02"

// ShiftService 班次与排班业务接口
type ShiftService interface {
	// 班次目录 CRUD
	CreateShift(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error)
	GetShift(ctx context.Context, id string) (*dto.ShiftResponse, error)
	ListShifts(ctx context.Context) ([]dto.ShiftResponse, error)
	UpdateShift(ctx context.Context, id string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error)
	// DeleteShift 的级联行为由 feature.shift_delete_cascade 决定
	DeleteShift(ctx context.Context, id string) error

	// 排班台账
	Assign(ctx context.Context, req *dto.AssignShiftRequest) (*dto.AssignmentResponse, error)
	Unassign(ctx context.Context, req *dto.UnassignShiftRequest) error
	MonthlySchedule(ctx context.Context, year, month int) (*dto.MonthlyScheduleResponse, error)
}

type shiftService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ShiftService {
	return &shiftService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── 班次目录 ──────────────────────

func (s *shiftService) CreateShift(ctx context.Context, req *dto.CreateShiftRequest) (*dto.ShiftResponse, error) {
	shift := &model.Shift{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, err
	}

	return s.toShiftResponse(shift), nil
}

func (s *shiftService) GetShift(ctx context.Context, id string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toShiftResponse(shift), nil
}

func (s *shiftService) ListShifts(ctx context.Context) ([]dto.ShiftResponse, error) {
	shifts, err := s.repo.Shift.List(ctx)
	if err != nil {
		s.logger.Error("列出班次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *s.toShiftResponse(&shifts[i]))
	}
	return result, nil
}

func (s *shiftService) UpdateShift(ctx context.Context, id string, req *dto.UpdateShiftRequest) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		shift.Name = *req.Name
	}
	if req.StartTime != nil {
		shift.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		shift.EndTime = *req.EndTime
	}

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("更新班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toShiftResponse(shift), nil
}

func (s *shiftService) DeleteShift(ctx context.Context, id string) error {
	if _, err := s.repo.Shift.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if s.cfg.Feature.ShiftDeleteCascade {
		return s.repo.Shift.DeleteCascade(ctx, id)
	}

	// restrict 策略：仍有排班引用则拒绝
	count, err := s.repo.Assignment.CountByShift(ctx, id)
	if err != nil {
		s.logger.Error("统计班次排班失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrShiftInUse
	}

	return s.repo.Shift.Delete(ctx, id)
}

// ────────────────────── 排班台账 ──────────────────────

func (s *shiftService) Assign(ctx context.Context, req *dto.AssignShiftRequest) (*dto.AssignmentResponse, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	// 班次与用户必须存在
	shift, err := s.repo.Shift.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", req.ShiftID), zap.Error(err))
		return nil, err
	}
	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", req.UserID), zap.Error(err))
		return nil, err
	}

	assignment := &model.ShiftAssignment{
		UserID:   req.UserID,
		ShiftID:  req.ShiftID,
		WorkDate: date,
	}

	// 同一 (用户, 日期) 已有排班时原子替换，不产生第二行
	if err := s.repo.Assignment.Replace(ctx, assignment); err != nil {
		s.logger.Error("排班失败",
			zap.String("user_id", req.UserID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.AssignmentResponse{
		ID:     assignment.AssignmentID,
		UserID: assignment.UserID,
		Date:   assignment.WorkDate.Format(dateLayout),
		Shift:  *s.toShiftResponse(shift),
	}, nil
}

func (s *shiftService) Unassign(ctx context.Context, req *dto.UnassignShiftRequest) error {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return err
	}

	// 行不存在时为幂等空操作
	if err := s.repo.Assignment.DeleteByUserDate(ctx, req.UserID, date); err != nil {
		s.logger.Error("取消排班失败",
			zap.String("user_id", req.UserID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *shiftService) MonthlySchedule(ctx context.Context, year, month int) (*dto.MonthlyScheduleResponse, error) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	assignments, err := s.repo.Assignment.ListByDateRange(ctx, first, last)
	if err != nil {
		s.logger.Error("查询月度排班失败", zap.Int("year", year), zap.Int("month", month), zap.Error(err))
		return nil, err
	}

	// 按用户聚合；仅包含当月至少有一条排班的用户
	type userDays struct {
		name string
		days map[string]*dto.ShiftSummary
	}
	byUser := make(map[string]*userDays)

	for i := range assignments {
		a := &assignments[i]
		entry, ok := byUser[a.UserID]
		if !ok {
			entry = &userDays{days: s.emptyMonth(first, last)}
			if a.User != nil {
				entry.name = a.User.Name
			}
			byUser[a.UserID] = entry
		}
		if a.Shift != nil {
			entry.days[a.WorkDate.Format(dateLayout)] = &dto.ShiftSummary{
				ID:        a.Shift.ShiftID,
				Name:      a.Shift.Name,
				StartTime: a.Shift.StartTime,
				EndTime:   a.Shift.EndTime,
			}
		}
	}

	users := make([]dto.UserScheduleResponse, 0, len(byUser))
	for userID, entry := range byUser {
		users = append(users, dto.UserScheduleResponse{
			UserID: userID,
			Name:   entry.name,
			Days:   entry.days,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	return &dto.MonthlyScheduleResponse{
		Year:  year,
		Month: month,
		Users: users,
	}, nil
}

// ── 内部辅助方法 ──

// emptyMonth 生成覆盖当月每一天、值全为 null 的日历
func (s *shiftService) emptyMonth(first, last time.Time) map[string]*dto.ShiftSummary {
	days := make(map[string]*dto.ShiftSummary, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days[d.Format(dateLayout)] = nil
	}
	return days
}

func (s *shiftService) toShiftResponse(shift *model.Shift) *dto.ShiftResponse {
	return &dto.ShiftResponse{
		ID:        shift.ShiftID,
		Name:      shift.Name,
		StartTime: shift.StartTime,
		EndTime:   shift.EndTime,
		CreatedAt: shift.CreatedAt.Format(time.RFC3339),
		UpdatedAt: shift.UpdatedAt.Format(time.RFC3339),
	}
}
