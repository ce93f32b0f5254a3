package dto

// ── 巡逻模块 DTO ──

// CreatePatrolRequest 创建巡逻线路请求
type CreatePatrolRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// UpdatePatrolRequest 更新巡逻线路请求
type UpdatePatrolRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=100"`
}

// PatrolResponse 巡逻线路响应
type PatrolResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Checkpoints []CheckpointResponse `json:"checkpoints,omitempty"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

// CreateCheckpointRequest 创建检查点请求
type CreateCheckpointRequest struct {
	Name      string  `json:"name"      binding:"required,min=2,max=100"`
	Latitude  float64 `json:"latitude"  binding:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"required,min=-180,max=180"`
	SortOrder int     `json:"sort_order"`
}

// UpdateCheckpointRequest 更新检查点请求
// 编码与二维码不可更新：签发后不可变
type UpdateCheckpointRequest struct {
	Name      *string  `json:"name"      binding:"omitempty,min=2,max=100"`
	Latitude  *float64 `json:"latitude"  binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	SortOrder *int     `json:"sort_order"`
}

// CheckpointResponse 检查点响应
type CheckpointResponse struct {
	ID        string  `json:"id"`
	PatrolID  string  `json:"patrol_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SortOrder int     `json:"sort_order"`
	Code      string  `json:"code"`
	QRURL     string  `json:"qr_url"`
	CreatedAt string  `json:"created_at"`
}

// RedeemPatrolRequest 巡逻打卡请求（multipart 表单，photo 为必传文件）
type RedeemPatrolRequest struct {
	Code      string   `form:"code" binding:"required"`
	Latitude  *float64 `form:"latitude"  binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `form:"longitude" binding:"omitempty,min=-180,max=180"`
	Note      string   `form:"note" binding:"omitempty,max=500"`
}

// PatrolLogResponse 巡逻打卡记录响应
type PatrolLogResponse struct {
	ID           string   `json:"id"`
	CheckpointID string   `json:"checkpoint_id"`
	UserID       string   `json:"user_id"`
	UserName     string   `json:"user_name,omitempty"`
	LoggedAt     string   `json:"logged_at"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Note         string   `json:"note,omitempty"`
	PhotoURL     string   `json:"photo_url"`
}

// CheckpointLogsResponse 按检查点分组的打卡记录（审计视图）
type CheckpointLogsResponse struct {
	Checkpoint CheckpointResponse  `json:"checkpoint"`
	Logs       []PatrolLogResponse `json:"logs"`
}
