package model

import "time"

// Patrol 巡逻线路表 — 对应 patrols
type Patrol struct {
	PatrolID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"patrol_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel

	// 关联
	Checkpoints []PatrolCheckpoint `gorm:"foreignKey:PatrolID" json:"checkpoints,omitempty"`
}

func (Patrol) TableName() string { return "patrols" }

// PatrolCheckpoint 巡逻检查点表 — 对应 patrol_checkpoints
// Code 在创建时生成且全局唯一；编辑名称/坐标不会重新生成
type PatrolCheckpoint struct {
	CheckpointID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"checkpoint_id"`
	PatrolID     string  `gorm:"type:uuid;not null;index"                       json:"patrol_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Latitude     float64 `gorm:"not null"                                       json:"latitude"`
	Longitude    float64 `gorm:"not null"                                       json:"longitude"`
	SortOrder    int     `gorm:"not null;default:0"                             json:"sort_order"`
	Code         string  `gorm:"type:varchar(12);not null;uniqueIndex:uq_checkpoint_code" json:"code"`
	QRURL        string  `gorm:"type:varchar(500);not null;column:qr_url"       json:"qr_url"`
	BaseModel
}

func (PatrolCheckpoint) TableName() string { return "patrol_checkpoints" }

// PatrolLog 巡逻打卡记录表 — 对应 patrol_logs
// 仅追加：同一 (检查点, 用户) 允许多条记录，一个点位一晚可能被扫多轮
type PatrolLog struct {
	LogID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	CheckpointID string    `gorm:"type:uuid;not null;index"                       json:"checkpoint_id"`
	UserID       string    `gorm:"type:uuid;not null;index"                       json:"user_id"`
	LoggedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"logged_at"`
	Latitude     *float64  `json:"latitude,omitempty"`  // 设备拒绝定位时为空
	Longitude    *float64  `json:"longitude,omitempty"`
	Note         string    `gorm:"type:varchar(500)"                              json:"note,omitempty"`
	PhotoURL     string    `gorm:"type:varchar(500);not null"                     json:"photo_url"`

	// 关联
	Checkpoint *PatrolCheckpoint `gorm:"foreignKey:CheckpointID;references:CheckpointID" json:"checkpoint,omitempty"`
	User       *User             `gorm:"foreignKey:UserID;references:UserID"             json:"user,omitempty"`
}

func (PatrolLog) TableName() string { return "patrol_logs" }
