package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/dto"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
	"github.com/mrexo321/warga-nusa-sub000/pkg/storage"
)

// ── 课程签到模块业务错误 ──

var (
	ErrCourseNotFound       = errors.New("课程不存在")
	ErrMeetingNotFound      = errors.New("课程会议不存在")
	ErrCourseHasAttendances = errors.New("课程已有签到记录，无法删除")
	ErrAlreadyRedeemed      = errors.New("该会议已签到，不能重复签到")
	ErrMeetingTimeInvalid   = errors.New("会议结束时间必须晚于开始时间")
	ErrMeetingTimeFormat    = errors.New("会议时间必须为 RFC3339 格式")
)

// CourseService 课程签到业务接口
//
// 签到（Redeem）语义：
//   - 存在性检查与写入合并为一次条件插入，并发去重交给唯一约束
//   - 同一 (会议, 用户) 的第二次签到返回 ErrAlreadyRedeemed，不产生第二行
type CourseService interface {
	CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	GetCourse(ctx context.Context, id string) (*dto.CourseResponse, error)
	ListCourses(ctx context.Context) ([]dto.CourseResponse, error)
	UpdateCourse(ctx context.Context, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	// DeleteCourse 的级联行为由 feature.patrol_delete_cascade 的课程镜像开关决定
	DeleteCourse(ctx context.Context, id string) error

	CreateMeeting(ctx context.Context, courseID string, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, error)
	UpdateMeeting(ctx context.Context, id string, req *dto.UpdateMeetingRequest) (*dto.MeetingResponse, error)

	Redeem(ctx context.Context, userID string, req *dto.RedeemAttendanceRequest) (*dto.AttendanceResponse, error)
	AttendancesByMeeting(ctx context.Context, meetingID string) ([]dto.AttendanceResponse, error)
}

type courseService struct {
	cfg    *config.Config
	repo   *repository.Repository
	store  storage.Storage
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(
	cfg *config.Config,
	repo *repository.Repository,
	store storage.Storage,
	logger *zap.Logger,
) CourseService {
	return &courseService{
		cfg:    cfg,
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

// ────────────────────── 课程 CRUD ──────────────────────

func (s *courseService) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	course := &model.Course{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return s.toCourseResponse(course), nil
}

func (s *courseService) GetCourse(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toCourseResponse(course), nil
}

func (s *courseService) ListCourses(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *s.toCourseResponse(&courses[i]))
	}
	return result, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}

	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toCourseResponse(course), nil
}

func (s *courseService) DeleteCourse(ctx context.Context, id string) error {
	if _, err := s.repo.Course.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if s.cfg.Feature.PatrolDeleteCascade {
		return s.repo.Course.DeleteCascade(ctx, id)
	}

	// restrict 策略：已有签到记录则拒绝
	count, err := s.repo.Course.CountAttendances(ctx, id)
	if err != nil {
		s.logger.Error("统计课程签到失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrCourseHasAttendances
	}

	return s.repo.Course.Delete(ctx, id)
}

// ────────────────────── 会议 ──────────────────────

func (s *courseService) CreateMeeting(ctx context.Context, courseID string, req *dto.CreateMeetingRequest) (*dto.MeetingResponse, error) {
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, ErrMeetingTimeFormat
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, ErrMeetingTimeFormat
	}
	if !endsAt.After(startsAt) {
		return nil, ErrMeetingTimeInvalid
	}

	var meeting *model.CourseMeeting
	err = issueCode(ctx, s.store, "course", func(code, qrURL string) error {
		meeting = &model.CourseMeeting{
			CourseID: courseID,
			Title:    req.Title,
			StartsAt: startsAt,
			EndsAt:   endsAt,
			Code:     code,
			QRURL:    qrURL,
		}
		return s.repo.Meeting.Create(ctx, meeting)
	})
	if err != nil {
		s.logger.Error("创建课程会议失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	return s.toMeetingResponse(meeting), nil
}

func (s *courseService) UpdateMeeting(ctx context.Context, id string, req *dto.UpdateMeetingRequest) (*dto.MeetingResponse, error) {
	meeting, err := s.repo.Meeting.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		s.logger.Error("查询课程会议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Title != nil {
		meeting.Title = *req.Title
	}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return nil, ErrMeetingTimeFormat
		}
		meeting.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return nil, ErrMeetingTimeFormat
		}
		meeting.EndsAt = t
	}
	if !meeting.EndsAt.After(meeting.StartsAt) {
		return nil, ErrMeetingTimeInvalid
	}

	// 签到码与二维码不随编辑变化
	if err := s.repo.Meeting.Update(ctx, meeting); err != nil {
		s.logger.Error("更新课程会议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toMeetingResponse(meeting), nil
}

// ────────────────────── 签到 ──────────────────────

func (s *courseService) Redeem(ctx context.Context, userID string, req *dto.RedeemAttendanceRequest) (*dto.AttendanceResponse, error) {
	meeting, err := s.repo.Meeting.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		s.logger.Error("查询签到码失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	att := &model.Attendance{
		MeetingID:  meeting.MeetingID,
		UserID:     userID,
		RecordedAt: time.Now(),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	}
	// 并发提交只有一条能写入，其余命中唯一约束
	if err := s.repo.Attendance.Create(ctx, att); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyRedeemed
		}
		s.logger.Error("写入签到记录失败", zap.String("code", req.Code), zap.Error(err))
		return nil, err
	}

	return s.toAttendanceResponse(att), nil
}

func (s *courseService) AttendancesByMeeting(ctx context.Context, meetingID string) ([]dto.AttendanceResponse, error) {
	if _, err := s.repo.Meeting.GetByID(ctx, meetingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		s.logger.Error("查询课程会议失败", zap.String("id", meetingID), zap.Error(err))
		return nil, err
	}

	atts, err := s.repo.Attendance.ListByMeeting(ctx, meetingID)
	if err != nil {
		s.logger.Error("列出签到记录失败", zap.String("meeting_id", meetingID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(atts))
	for i := range atts {
		result = append(result, *s.toAttendanceResponse(&atts[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *courseService) toCourseResponse(course *model.Course) *dto.CourseResponse {
	resp := &dto.CourseResponse{
		ID:          course.CourseID,
		Name:        course.Name,
		Description: course.Description,
		CreatedAt:   course.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   course.UpdatedAt.Format(time.RFC3339),
	}
	for i := range course.Meetings {
		resp.Meetings = append(resp.Meetings, *s.toMeetingResponse(&course.Meetings[i]))
	}
	return resp
}

func (s *courseService) toMeetingResponse(meeting *model.CourseMeeting) *dto.MeetingResponse {
	return &dto.MeetingResponse{
		ID:        meeting.MeetingID,
		CourseID:  meeting.CourseID,
		Title:     meeting.Title,
		StartsAt:  meeting.StartsAt.Format(time.RFC3339),
		EndsAt:    meeting.EndsAt.Format(time.RFC3339),
		Code:      meeting.Code,
		QRURL:     meeting.QRURL,
		CreatedAt: meeting.CreatedAt.Format(time.RFC3339),
	}
}

func (s *courseService) toAttendanceResponse(att *model.Attendance) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		ID:         att.AttendanceID,
		MeetingID:  att.MeetingID,
		UserID:     att.UserID,
		RecordedAt: att.RecordedAt.Format(time.RFC3339),
		Latitude:   att.Latitude,
		Longitude:  att.Longitude,
	}
	if att.User != nil {
		resp.UserName = att.User.Name
	}
	return resp
}
