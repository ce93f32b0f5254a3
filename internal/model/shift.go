package model

import "time"

// Shift 班次表 — 对应 shifts
type Shift struct {
	ShiftID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	StartTime string `gorm:"type:varchar(5);not null"                       json:"start_time"` // "HH:MM"
	EndTime   string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	BaseModel
}

func (Shift) TableName() string { return "shifts" }

// ShiftAssignment 排班表 — 对应 shift_assignments
// (user_id, work_date) 唯一：每人每天最多一个班次，换班 = 删除 + 插入
type ShiftAssignment struct {
	AssignmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"      json:"assignment_id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:uq_assignment_user_date" json:"user_id"`
	ShiftID      string    `gorm:"type:uuid;not null"                                  json:"shift_id"`
	WorkDate     time.Time `gorm:"type:date;not null;uniqueIndex:uq_assignment_user_date" json:"work_date"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                  json:"created_at"`

	// 关联
	User  *User  `gorm:"foreignKey:UserID;references:UserID"    json:"user,omitempty"`
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID"  json:"shift,omitempty"`
}

func (ShiftAssignment) TableName() string { return "shift_assignments" }
