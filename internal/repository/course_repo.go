package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id string) error
	// DeleteCascade 在一个事务内删除课程、其会议以及会议的签到记录
	DeleteCascade(ctx context.Context, id string) error
	CountAttendances(ctx context.Context, id string) (int64, error)
}

// MeetingRepository 课程会议数据访问接口
type MeetingRepository interface {
	// Create 依赖 code 唯一约束；冲突时返回 gorm.ErrDuplicatedKey，由调用方重试
	Create(ctx context.Context, meeting *model.CourseMeeting) error
	GetByID(ctx context.Context, id string) (*model.CourseMeeting, error)
	GetByCode(ctx context.Context, code string) (*model.CourseMeeting, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.CourseMeeting, error)
	Update(ctx context.Context, meeting *model.CourseMeeting) error
	Delete(ctx context.Context, id string) error
}

// AttendanceRepository 签到数据访问接口
type AttendanceRepository interface {
	// Create 存在性检查与插入合并为一次条件插入：
	// (meeting_id, user_id) 已存在时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, att *model.Attendance) error
	ListByMeeting(ctx context.Context, meetingID string) ([]model.Attendance, error)
}

// ── Course Repository 实现 ──

type courseRepo struct {
	db *gorm.DB
}

func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Preload("Meetings", func(db *gorm.DB) *gorm.DB {
			return db.Order("starts_at ASC")
		}).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).
		Model(course).
		Where("course_id = ?", course.CourseID).
		Updates(map[string]interface{}{
			"name":        course.Name,
			"description": course.Description,
		}).Error
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseMeeting{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", id).Delete(&model.Course{}).Error
	})
}

func (r *courseRepo) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&model.CourseMeeting{}).
			Select("meeting_id").
			Where("course_id = ?", id)
		if err := tx.Where("meeting_id IN (?)", sub).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseMeeting{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", id).Delete(&model.Course{}).Error
	})
}

func (r *courseRepo) CountAttendances(ctx context.Context, id string) (int64, error) {
	var count int64
	sub := r.db.Model(&model.CourseMeeting{}).
		Select("meeting_id").
		Where("course_id = ?", id)
	err := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("meeting_id IN (?)", sub).
		Count(&count).Error
	return count, err
}

// ── Meeting Repository 实现 ──

type meetingRepo struct {
	db *gorm.DB
}

func NewMeetingRepo(db *gorm.DB) MeetingRepository {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Create(ctx context.Context, meeting *model.CourseMeeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*model.CourseMeeting, error) {
	var meeting model.CourseMeeting
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", id).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) GetByCode(ctx context.Context, code string) (*model.CourseMeeting, error) {
	var meeting model.CourseMeeting
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&meeting).Error
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) ListByCourse(ctx context.Context, courseID string) ([]model.CourseMeeting, error) {
	var meetings []model.CourseMeeting
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("starts_at ASC").
		Find(&meetings).Error
	return meetings, err
}

func (r *meetingRepo) Update(ctx context.Context, meeting *model.CourseMeeting) error {
	// code / qr_url 不在更新列中：签发后不可变
	return r.db.WithContext(ctx).
		Model(meeting).
		Where("meeting_id = ?", meeting.MeetingID).
		Updates(map[string]interface{}{
			"title":     meeting.Title,
			"starts_at": meeting.StartsAt,
			"ends_at":   meeting.EndsAt,
		}).Error
}

func (r *meetingRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Where("meeting_id = ?", id).Delete(&model.CourseMeeting{}).Error
	})
}

// ── Attendance Repository 实现 ──

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, att *model.Attendance) error {
	return r.db.WithContext(ctx).Create(att).Error
}

func (r *attendanceRepo) ListByMeeting(ctx context.Context, meetingID string) ([]model.Attendance, error) {
	var atts []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("meeting_id = ?", meetingID).
		Order("recorded_at ASC").
		Find(&atts).Error
	return atts, err
}
