package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Shift      ShiftRepository
	Assignment AssignmentRepository
	Patrol     PatrolRepository
	Checkpoint CheckpointRepository
	PatrolLog  PatrolLogRepository
	Course     CourseRepository
	Meeting    MeetingRepository
	Attendance AttendanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Shift:      NewShiftRepo(db),
		Assignment: NewAssignmentRepo(db),
		Patrol:     NewPatrolRepo(db),
		Checkpoint: NewCheckpointRepo(db),
		PatrolLog:  NewPatrolLogRepo(db),
		Course:     NewCourseRepo(db),
		Meeting:    NewMeetingRepo(db),
		Attendance: NewAttendanceRepo(db),
	}
}
