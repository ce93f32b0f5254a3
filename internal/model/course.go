package model

import "time"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	BaseModel

	// 关联
	Meetings []CourseMeeting `gorm:"foreignKey:CourseID" json:"meetings,omitempty"`
}

func (Course) TableName() string { return "courses" }

// CourseMeeting 课程会议表 — 对应 course_meetings
// 签到码与巡逻检查点共用一套签发算法，命名空间独立
type CourseMeeting struct {
	MeetingID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"meeting_id"`
	CourseID  string    `gorm:"type:uuid;not null;index"                       json:"course_id"`
	Title     string    `gorm:"type:varchar(200);not null"                     json:"title"`
	StartsAt  time.Time `gorm:"not null"                                       json:"starts_at"`
	EndsAt    time.Time `gorm:"not null"                                       json:"ends_at"`
	Code      string    `gorm:"type:varchar(12);not null;uniqueIndex:uq_meeting_code" json:"code"`
	QRURL     string    `gorm:"type:varchar(500);not null;column:qr_url"       json:"qr_url"`
	BaseModel
}

func (CourseMeeting) TableName() string { return "course_meetings" }

// Attendance 会议签到表 — 对应 attendances
// (meeting_id, user_id) 唯一：重复签到被约束拒绝而不是产生第二行
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"       json:"attendance_id"`
	MeetingID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_meeting_user" json:"meeting_id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_meeting_user" json:"user_id"`
	RecordedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                   json:"recorded_at"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`

	// 关联
	Meeting *CourseMeeting `gorm:"foreignKey:MeetingID;references:MeetingID" json:"meeting,omitempty"`
	User    *User          `gorm:"foreignKey:UserID;references:UserID"       json:"user,omitempty"`
}

func (Attendance) TableName() string { return "attendances" }
