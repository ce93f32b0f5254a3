package dto

// ── 课程签到模块 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name        string `json:"name"        binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// UpdateCourseRequest 更新课程请求
type UpdateCourseRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Meetings    []MeetingResponse `json:"meetings,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// CreateMeetingRequest 创建课程会议请求
type CreateMeetingRequest struct {
	Title    string `json:"title"     binding:"required,min=2,max=200"`
	StartsAt string `json:"starts_at" binding:"required"` // RFC3339
	EndsAt   string `json:"ends_at"   binding:"required"`
}

// UpdateMeetingRequest 更新课程会议请求
// 签到码与二维码不可更新
type UpdateMeetingRequest struct {
	Title    *string `json:"title"     binding:"omitempty,min=2,max=200"`
	StartsAt *string `json:"starts_at"`
	EndsAt   *string `json:"ends_at"`
}

// MeetingResponse 课程会议响应
type MeetingResponse struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Code      string `json:"code"`
	QRURL     string `json:"qr_url"`
	CreatedAt string `json:"created_at"`
}

// RedeemAttendanceRequest 会议签到请求（无需照片）
type RedeemAttendanceRequest struct {
	Code      string   `json:"code" binding:"required"`
	Latitude  *float64 `json:"latitude"  binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
}

// AttendanceResponse 签到记录响应
type AttendanceResponse struct {
	ID         string   `json:"id"`
	MeetingID  string   `json:"meeting_id"`
	UserID     string   `json:"user_id"`
	UserName   string   `json:"user_name,omitempty"`
	RecordedAt string   `json:"recorded_at"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}
