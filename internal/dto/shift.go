package dto

// ── 班次模块 DTO ──

// CreateShiftRequest 创建班次请求
type CreateShiftRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StartTime string `json:"start_time" binding:"required,len=5"` // "HH:MM"
	EndTime   string `json:"end_time"   binding:"required,len=5"`
}

// UpdateShiftRequest 更新班次请求
type UpdateShiftRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=2,max=100"`
	StartTime *string `json:"start_time" binding:"omitempty,len=5"`
	EndTime   *string `json:"end_time"   binding:"omitempty,len=5"`
}

// ShiftResponse 班次信息响应
type ShiftResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AssignShiftRequest 排班请求
type AssignShiftRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	ShiftID string `json:"shift_id" binding:"required,uuid"`
	Date    string `json:"date"    binding:"required,datetime=2006-01-02"`
}

// UnassignShiftRequest 取消排班请求
type UnassignShiftRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Date   string `json:"date"    binding:"required,datetime=2006-01-02"`
}

// AssignmentResponse 排班结果响应
type AssignmentResponse struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id"`
	Date    string        `json:"date"`
	Shift   ShiftResponse `json:"shift"`
}
