package dto

// ── 月度排班查询 DTO ──

// ScheduleQueryRequest 月度排班查询参数
type ScheduleQueryRequest struct {
	Year  int `form:"year"  binding:"required,min=2000,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// ShiftSummary 日历单元格中的班次摘要
type ShiftSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// UserScheduleResponse 单个用户的月度稀疏日历
// Days 覆盖当月每一天："2006-01-02" → 班次摘要，无班次的日期为 null
type UserScheduleResponse struct {
	UserID string                   `json:"user_id"`
	Name   string                   `json:"name"`
	Days   map[string]*ShiftSummary `json:"days"`
}

// MonthlyScheduleResponse 月度排班响应
// 仅包含当月至少有一条排班的用户；空月份 Users 为空数组
type MonthlyScheduleResponse struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Users []UserScheduleResponse `json:"users"`
}
