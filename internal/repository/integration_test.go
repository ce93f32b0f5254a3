//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=warga_nusa password=warga_nusa_password dbname=warga_nusa_test sslmode=disable TimeZone=Asia/Jakarta"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // 唯一约束冲突须映射为 gorm.ErrDuplicatedKey
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Shift{},
		&model.ShiftAssignment{},
		&model.Patrol{},
		&model.PatrolCheckpoint{},
		&model.PatrolLog{},
		&model.Course{},
		&model.CourseMeeting{},
		&model.Attendance{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (user *model.User, shift *model.Shift, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	user = &model.User{
		Name:         "测试人员",
		Email:        fmt.Sprintf("test%d@warga-nusa.id", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStaff,
	}
	if err := testDB.WithContext(ctx).Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}

	shift = &model.Shift{
		Name:      fmt.Sprintf("测试班次-%d", time.Now().UnixNano()),
		StartTime: "06:00",
		EndTime:   "14:00",
	}
	if err := testDB.WithContext(ctx).Create(shift).Error; err != nil {
		t.Fatalf("创建班次失败: %v", err)
	}

	cleanup = func() {
		testDB.Where("user_id = ?", user.UserID).Delete(&model.ShiftAssignment{})
		testDB.Where("shift_id = ?", shift.ShiftID).Delete(&model.Shift{})
		testDB.Where("user_id = ?", user.UserID).Delete(&model.User{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Test: ShiftAssignment Replace
// ═══════════════════════════════════════════════════════════

func TestAssignmentReplace_OneRowPerUserDate(t *testing.T) {
	user, shift, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	workDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first := &model.ShiftAssignment{
		UserID:   user.UserID,
		ShiftID:  shift.ShiftID,
		WorkDate: workDate,
	}
	if err := repo.Assignment.Replace(ctx, first); err != nil {
		t.Fatalf("首次排班失败: %v", err)
	}

	second := &model.Shift{Name: "测试夜班", StartTime: "22:00", EndTime: "06:00"}
	if err := testDB.WithContext(ctx).Create(second).Error; err != nil {
		t.Fatalf("创建第二个班次失败: %v", err)
	}
	defer testDB.Where("shift_id = ?", second.ShiftID).Delete(&model.Shift{})

	// 同人同日换班：旧排班被替换而不是产生第二行
	replacement := &model.ShiftAssignment{
		UserID:   user.UserID,
		ShiftID:  second.ShiftID,
		WorkDate: workDate,
	}
	if err := repo.Assignment.Replace(ctx, replacement); err != nil {
		t.Fatalf("换班失败: %v", err)
	}

	var count int64
	testDB.Model(&model.ShiftAssignment{}).
		Where("user_id = ? AND work_date = ?", user.UserID, workDate).
		Count(&count)
	if count != 1 {
		t.Errorf("期望 1 条排班记录, got %d", count)
	}

	var got model.ShiftAssignment
	testDB.Where("user_id = ? AND work_date = ?", user.UserID, workDate).First(&got)
	if got.ShiftID != second.ShiftID {
		t.Errorf("期望排班指向新班次 %s, got %s", second.ShiftID, got.ShiftID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Attendance Unique Constraint
// ═══════════════════════════════════════════════════════════

func setupMeeting(t *testing.T) (*model.Course, *model.CourseMeeting, func()) {
	t.Helper()
	ctx := context.Background()

	course := &model.Course{Name: fmt.Sprintf("测试课程-%d", time.Now().UnixNano())}
	if err := testDB.WithContext(ctx).Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	meeting := &model.CourseMeeting{
		CourseID: course.CourseID,
		Title:    "测试会议",
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(2 * time.Hour),
		Code:     fmt.Sprintf("T%d", time.Now().UnixNano()%100000000000), // 12 字符内
		QRURL:    "/uploads/qr/course/test.png",
	}
	if err := testDB.WithContext(ctx).Create(meeting).Error; err != nil {
		t.Fatalf("创建会议失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("meeting_id = ?", meeting.MeetingID).Delete(&model.Attendance{})
		testDB.Where("meeting_id = ?", meeting.MeetingID).Delete(&model.CourseMeeting{})
		testDB.Where("course_id = ?", course.CourseID).Delete(&model.Course{})
	}
	return course, meeting, cleanup
}

func TestAttendance_DuplicateRejectedByConstraint(t *testing.T) {
	user, _, cleanupBase := setupTestData(t)
	defer cleanupBase()
	_, meeting, cleanupMeeting := setupMeeting(t)
	defer cleanupMeeting()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first := &model.Attendance{MeetingID: meeting.MeetingID, UserID: user.UserID}
	if err := repo.Attendance.Create(ctx, first); err != nil {
		t.Fatalf("首次签到失败: %v", err)
	}

	dup := &model.Attendance{MeetingID: meeting.MeetingID, UserID: user.UserID}
	err := repo.Attendance.Create(ctx, dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("期望 gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestAttendance_ConcurrentExactlyOneWins(t *testing.T) {
	user, _, cleanupBase := setupTestData(t)
	defer cleanupBase()
	_, meeting, cleanupMeeting := setupMeeting(t)
	defer cleanupMeeting()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	success, dup := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			att := &model.Attendance{MeetingID: meeting.MeetingID, UserID: user.UserID}
			err := repo.Attendance.Create(ctx, att)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, gorm.ErrDuplicatedKey):
				dup++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("期望恰好 1 次签到成功, got %d", success)
	}
	if dup != n-1 {
		t.Errorf("期望 %d 次唯一约束拒绝, got %d", n-1, dup)
	}

	var count int64
	testDB.Model(&model.Attendance{}).
		Where("meeting_id = ? AND user_id = ?", meeting.MeetingID, user.UserID).
		Count(&count)
	if count != 1 {
		t.Errorf("期望签到表恰好 1 行, got %d", count)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Checkpoint Code Uniqueness
// ═══════════════════════════════════════════════════════════

func TestCheckpointCode_GloballyUnique(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	patrol := &model.Patrol{Name: fmt.Sprintf("测试线路-%d", time.Now().UnixNano())}
	if err := testDB.WithContext(ctx).Create(patrol).Error; err != nil {
		t.Fatalf("创建巡逻线路失败: %v", err)
	}
	defer func() {
		testDB.Where("patrol_id = ?", patrol.PatrolID).Delete(&model.PatrolCheckpoint{})
		testDB.Where("patrol_id = ?", patrol.PatrolID).Delete(&model.Patrol{})
	}()

	code := fmt.Sprintf("C%d", time.Now().UnixNano()%100000000000)
	first := &model.PatrolCheckpoint{
		PatrolID:  patrol.PatrolID,
		Name:      "测试点位A",
		Latitude:  -6.2001,
		Longitude: 106.8166,
		Code:      code,
		QRURL:     "/uploads/qr/patrol/a.png",
	}
	if err := repo.Checkpoint.Create(ctx, first); err != nil {
		t.Fatalf("创建检查点失败: %v", err)
	}

	clash := &model.PatrolCheckpoint{
		PatrolID:  patrol.PatrolID,
		Name:      "测试点位B",
		Latitude:  -6.2002,
		Longitude: 106.8167,
		Code:      code,
		QRURL:     "/uploads/qr/patrol/b.png",
	}
	err := repo.Checkpoint.Create(ctx, clash)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("期望 gorm.ErrDuplicatedKey, got %v", err)
	}
}
