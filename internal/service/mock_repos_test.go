package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/config"
	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
)

// ── Mock Repositories ──
//
// 打卡/排班的唯一性语义在真库由唯一约束裁决，
// mock 里用互斥锁 + map 等价模拟，冲突时返回 gorm.ErrDuplicatedKey。

// ── User ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Shift ──

type mockShiftRepo struct {
	shifts map[string]*model.Shift
	seq    int
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[string]*model.Shift)}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	if shift.ShiftID == "" {
		m.seq++
		shift.ShiftID = fmt.Sprintf("shift-%d", m.seq)
	}
	m.shifts[shift.ShiftID] = shift
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	if s, ok := m.shifts[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) List(_ context.Context) ([]model.Shift, error) {
	var all []model.Shift
	for _, s := range m.shifts {
		all = append(all, *s)
	}
	return all, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	m.shifts[shift.ShiftID] = shift
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string) error {
	delete(m.shifts, id)
	return nil
}

func (m *mockShiftRepo) DeleteCascade(_ context.Context, id string) error {
	delete(m.shifts, id)
	return nil
}

// ── Assignment ──

type mockAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]*model.ShiftAssignment // key: user_id + ":" + date
	shifts      *mockShiftRepo                    // Preload Shift 的等价物
	users       *mockUserRepo                     // Preload User 的等价物
	seq         int
}

func newMockAssignmentRepo(shifts *mockShiftRepo, users *mockUserRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]*model.ShiftAssignment),
		shifts:      shifts,
		users:       users,
	}
}

func assignmentKey(userID string, date time.Time) string {
	return userID + ":" + date.Format("2006-01-02")
}

func (m *mockAssignmentRepo) Replace(_ context.Context, a *model.ShiftAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.AssignmentID = fmt.Sprintf("assignment-%d", m.seq)
	m.assignments[assignmentKey(a.UserID, a.WorkDate)] = a
	return nil
}

func (m *mockAssignmentRepo) DeleteByUserDate(_ context.Context, userID string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments, assignmentKey(userID, date))
	return nil
}

func (m *mockAssignmentRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ShiftAssignment
	for _, a := range m.assignments {
		if !a.WorkDate.Before(from) && !a.WorkDate.After(to) {
			all = append(all, *m.withAssociations(a))
		}
	}
	return all, nil
}

func (m *mockAssignmentRepo) ListByUserDateRange(_ context.Context, userID string, from, to time.Time) ([]model.ShiftAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ShiftAssignment
	for _, a := range m.assignments {
		if a.UserID == userID && !a.WorkDate.Before(from) && !a.WorkDate.After(to) {
			all = append(all, *m.withAssociations(a))
		}
	}
	return all, nil
}

func (m *mockAssignmentRepo) CountByShift(_ context.Context, shiftID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, a := range m.assignments {
		if a.ShiftID == shiftID {
			count++
		}
	}
	return count, nil
}

func (m *mockAssignmentRepo) withAssociations(a *model.ShiftAssignment) *model.ShiftAssignment {
	copied := *a
	if s, ok := m.shifts.shifts[a.ShiftID]; ok {
		copied.Shift = s
	}
	if u, ok := m.users.users[a.UserID]; ok {
		copied.User = u
	}
	return &copied
}

// ── Patrol ──

type mockPatrolRepo struct {
	patrols     map[string]*model.Patrol
	checkpoints *mockCheckpointRepo
	logs        *mockPatrolLogRepo
	seq         int
}

func newMockPatrolRepo(checkpoints *mockCheckpointRepo, logs *mockPatrolLogRepo) *mockPatrolRepo {
	return &mockPatrolRepo{
		patrols:     make(map[string]*model.Patrol),
		checkpoints: checkpoints,
		logs:        logs,
	}
}

func (m *mockPatrolRepo) Create(_ context.Context, patrol *model.Patrol) error {
	if patrol.PatrolID == "" {
		m.seq++
		patrol.PatrolID = fmt.Sprintf("patrol-%d", m.seq)
	}
	m.patrols[patrol.PatrolID] = patrol
	return nil
}

func (m *mockPatrolRepo) GetByID(_ context.Context, id string) (*model.Patrol, error) {
	if p, ok := m.patrols[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPatrolRepo) List(_ context.Context) ([]model.Patrol, error) {
	var all []model.Patrol
	for _, p := range m.patrols {
		all = append(all, *p)
	}
	return all, nil
}

func (m *mockPatrolRepo) Update(_ context.Context, patrol *model.Patrol) error {
	m.patrols[patrol.PatrolID] = patrol
	return nil
}

func (m *mockPatrolRepo) Delete(_ context.Context, id string) error {
	for cpID, cp := range m.checkpoints.byID {
		if cp.PatrolID == id {
			delete(m.checkpoints.byID, cpID)
			delete(m.checkpoints.byCode, cp.Code)
		}
	}
	delete(m.patrols, id)
	return nil
}

func (m *mockPatrolRepo) DeleteCascade(_ context.Context, id string) error {
	for cpID, cp := range m.checkpoints.byID {
		if cp.PatrolID == id {
			var kept []*model.PatrolLog
			for _, l := range m.logs.logs {
				if l.CheckpointID != cpID {
					kept = append(kept, l)
				}
			}
			m.logs.logs = kept
			delete(m.checkpoints.byID, cpID)
			delete(m.checkpoints.byCode, cp.Code)
		}
	}
	delete(m.patrols, id)
	return nil
}

func (m *mockPatrolRepo) CountLogs(_ context.Context, id string) (int64, error) {
	var count int64
	for _, l := range m.logs.logs {
		if cp, ok := m.checkpoints.byID[l.CheckpointID]; ok && cp.PatrolID == id {
			count++
		}
	}
	return count, nil
}

// ── Checkpoint ──

type mockCheckpointRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.PatrolCheckpoint
	byCode map[string]*model.PatrolCheckpoint
	seq    int
	// rejectOnce 置为非 nil 后可按码拒绝插入，模拟唯一约束碰撞
	rejectOnce func(code string) bool
}

func newMockCheckpointRepo() *mockCheckpointRepo {
	return &mockCheckpointRepo{
		byID:   make(map[string]*model.PatrolCheckpoint),
		byCode: make(map[string]*model.PatrolCheckpoint),
	}
}

func (m *mockCheckpointRepo) Create(_ context.Context, cp *model.PatrolCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectOnce != nil && m.rejectOnce(cp.Code) {
		return gorm.ErrDuplicatedKey
	}
	if _, dup := m.byCode[cp.Code]; dup {
		return gorm.ErrDuplicatedKey
	}
	m.seq++
	cp.CheckpointID = fmt.Sprintf("checkpoint-%d", m.seq)
	m.byID[cp.CheckpointID] = cp
	m.byCode[cp.Code] = cp
	return nil
}

func (m *mockCheckpointRepo) GetByID(_ context.Context, id string) (*model.PatrolCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.byID[id]; ok {
		return cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCheckpointRepo) GetByCode(_ context.Context, code string) (*model.PatrolCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.byCode[code]; ok {
		return cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCheckpointRepo) ListByPatrol(_ context.Context, patrolID string) ([]model.PatrolCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.PatrolCheckpoint
	for _, cp := range m.byID {
		if cp.PatrolID == patrolID {
			all = append(all, *cp)
		}
	}
	return all, nil
}

func (m *mockCheckpointRepo) Update(_ context.Context, cp *model.PatrolCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[cp.CheckpointID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// code / qr_url 不可变
	existing.Name = cp.Name
	existing.Latitude = cp.Latitude
	existing.Longitude = cp.Longitude
	existing.SortOrder = cp.SortOrder
	return nil
}

func (m *mockCheckpointRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cp, ok := m.byID[id]; ok {
		delete(m.byCode, cp.Code)
		delete(m.byID, id)
	}
	return nil
}

// ── PatrolLog ──

type mockPatrolLogRepo struct {
	mu          sync.Mutex
	logs        []*model.PatrolLog
	checkpoints *mockCheckpointRepo
	seq         int
	failNext    error // 置为非 nil 时下一次 Create 失败一次
}

func newMockPatrolLogRepo(checkpoints *mockCheckpointRepo) *mockPatrolLogRepo {
	return &mockPatrolLogRepo{checkpoints: checkpoints}
}

func (m *mockPatrolLogRepo) Create(_ context.Context, log *model.PatrolLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.seq++
	log.LogID = fmt.Sprintf("log-%d", m.seq)
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockPatrolLogRepo) ListByPatrol(_ context.Context, patrolID string) ([]model.PatrolLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.PatrolLog
	for _, l := range m.logs {
		if cp, ok := m.checkpoints.byID[l.CheckpointID]; ok && cp.PatrolID == patrolID {
			all = append(all, *l)
		}
	}
	return all, nil
}

func (m *mockPatrolLogRepo) ListByCheckpoint(_ context.Context, checkpointID string) ([]model.PatrolLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.PatrolLog
	for _, l := range m.logs {
		if l.CheckpointID == checkpointID {
			all = append(all, *l)
		}
	}
	return all, nil
}

// ── Course ──

type mockCourseRepo struct {
	courses     map[string]*model.Course
	meetings    *mockMeetingRepo
	attendances *mockAttendanceRepo
	seq         int
}

func newMockCourseRepo(meetings *mockMeetingRepo, attendances *mockAttendanceRepo) *mockCourseRepo {
	return &mockCourseRepo{
		courses:     make(map[string]*model.Course),
		meetings:    meetings,
		attendances: attendances,
	}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		m.seq++
		course.CourseID = fmt.Sprintf("course-%d", m.seq)
	}
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	var all []model.Course
	for _, c := range m.courses {
		all = append(all, *c)
	}
	return all, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	for mtID, mt := range m.meetings.byID {
		if mt.CourseID == id {
			delete(m.meetings.byID, mtID)
			delete(m.meetings.byCode, mt.Code)
		}
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) DeleteCascade(_ context.Context, id string) error {
	for mtID, mt := range m.meetings.byID {
		if mt.CourseID == id {
			m.attendances.deleteByMeeting(mtID)
			delete(m.meetings.byID, mtID)
			delete(m.meetings.byCode, mt.Code)
		}
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) CountAttendances(_ context.Context, id string) (int64, error) {
	var count int64
	for _, a := range m.attendances.rows {
		if mt, ok := m.meetings.byID[a.MeetingID]; ok && mt.CourseID == id {
			count++
		}
	}
	return count, nil
}

// ── Meeting ──

type mockMeetingRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.CourseMeeting
	byCode map[string]*model.CourseMeeting
	seq    int
}

func newMockMeetingRepo() *mockMeetingRepo {
	return &mockMeetingRepo{
		byID:   make(map[string]*model.CourseMeeting),
		byCode: make(map[string]*model.CourseMeeting),
	}
}

func (m *mockMeetingRepo) Create(_ context.Context, meeting *model.CourseMeeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byCode[meeting.Code]; dup {
		return gorm.ErrDuplicatedKey
	}
	m.seq++
	meeting.MeetingID = fmt.Sprintf("meeting-%d", m.seq)
	m.byID[meeting.MeetingID] = meeting
	m.byCode[meeting.Code] = meeting
	return nil
}

func (m *mockMeetingRepo) GetByID(_ context.Context, id string) (*model.CourseMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.byID[id]; ok {
		return mt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMeetingRepo) GetByCode(_ context.Context, code string) (*model.CourseMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.byCode[code]; ok {
		return mt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMeetingRepo) ListByCourse(_ context.Context, courseID string) ([]model.CourseMeeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.CourseMeeting
	for _, mt := range m.byID {
		if mt.CourseID == courseID {
			all = append(all, *mt)
		}
	}
	return all, nil
}

func (m *mockMeetingRepo) Update(_ context.Context, meeting *model.CourseMeeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[meeting.MeetingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// code / qr_url 不可变
	existing.Title = meeting.Title
	existing.StartsAt = meeting.StartsAt
	existing.EndsAt = meeting.EndsAt
	return nil
}

func (m *mockMeetingRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.byID[id]; ok {
		delete(m.byCode, mt.Code)
		delete(m.byID, id)
	}
	return nil
}

// ── Attendance ──

type mockAttendanceRepo struct {
	mu   sync.Mutex
	rows []*model.Attendance
	keys map[string]bool // meeting_id + ":" + user_id
	seq  int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{keys: make(map[string]bool)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, att *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := att.MeetingID + ":" + att.UserID
	if m.keys[key] {
		return gorm.ErrDuplicatedKey
	}
	m.keys[key] = true
	m.seq++
	att.AttendanceID = fmt.Sprintf("attendance-%d", m.seq)
	m.rows = append(m.rows, att)
	return nil
}

func (m *mockAttendanceRepo) ListByMeeting(_ context.Context, meetingID string) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Attendance
	for _, a := range m.rows {
		if a.MeetingID == meetingID {
			all = append(all, *a)
		}
	}
	return all, nil
}

func (m *mockAttendanceRepo) deleteByMeeting(meetingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Attendance
	for _, a := range m.rows {
		if a.MeetingID != meetingID {
			kept = append(kept, a)
		} else {
			delete(m.keys, a.MeetingID+":"+a.UserID)
		}
	}
	m.rows = kept
}

// ── Mock Storage ──

type mockStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return "/uploads/" + name, nil
}

func (m *mockStorage) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	m.deleted = append(m.deleted, name)
	return nil
}

// ── 测试装配 ──

func newTestRepository() (*repository.Repository, *mocks) {
	userRepo := newMockUserRepo()
	shiftRepo := newMockShiftRepo()
	assignmentRepo := newMockAssignmentRepo(shiftRepo, userRepo)
	checkpointRepo := newMockCheckpointRepo()
	patrolLogRepo := newMockPatrolLogRepo(checkpointRepo)
	patrolRepo := newMockPatrolRepo(checkpointRepo, patrolLogRepo)
	meetingRepo := newMockMeetingRepo()
	attendanceRepo := newMockAttendanceRepo()
	courseRepo := newMockCourseRepo(meetingRepo, attendanceRepo)

	repo := &repository.Repository{
		User:       userRepo,
		Shift:      shiftRepo,
		Assignment: assignmentRepo,
		Patrol:     patrolRepo,
		Checkpoint: checkpointRepo,
		PatrolLog:  patrolLogRepo,
		Course:     courseRepo,
		Meeting:    meetingRepo,
		Attendance: attendanceRepo,
	}
	return repo, &mocks{
		user:       userRepo,
		shift:      shiftRepo,
		assignment: assignmentRepo,
		patrol:     patrolRepo,
		checkpoint: checkpointRepo,
		patrolLog:  patrolLogRepo,
		course:     courseRepo,
		meeting:    meetingRepo,
		attendance: attendanceRepo,
	}
}

type mocks struct {
	user       *mockUserRepo
	shift      *mockShiftRepo
	assignment *mockAssignmentRepo
	patrol     *mockPatrolRepo
	checkpoint *mockCheckpointRepo
	patrolLog  *mockPatrolLogRepo
	course     *mockCourseRepo
	meeting    *mockMeetingRepo
	attendance *mockAttendanceRepo
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-at-least-16-chars"
	cfg.Auth.AccessTokenTTL = 2 * time.Hour
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	return cfg
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func photoReader() io.Reader {
	return bytes.NewReader([]byte("fake-jpeg-bytes"))
}
