package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mocks) {
	repo, m := newTestRepository()
	svc := NewExportService(repo, testLogger())
	return svc, m
}

func seedExportData(m *mocks) {
	m.shift.shifts["shift-pagi"] = &model.Shift{
		ShiftID: "shift-pagi", Name: "Pagi", StartTime: "06:00", EndTime: "14:00",
	}
	m.shift.shifts["shift-malam"] = &model.Shift{
		ShiftID: "shift-malam", Name: "Malam", StartTime: "22:00", EndTime: "06:00",
	}
	m.user.users["user-1"] = &model.User{UserID: "user-1", Name: "Budi", Email: "budi@example.com"}
	m.user.users["user-2"] = &model.User{UserID: "user-2", Name: "Siti", Email: "siti@example.com"}

	seed := []struct {
		user  string
		shift string
		date  string
	}{
		{"user-1", "shift-pagi", "2025-03-03"},
		{"user-1", "shift-malam", "2025-03-04"},
		{"user-2", "shift-pagi", "2025-03-03"},
	}
	for _, s := range seed {
		d, _ := time.ParseInLocation("2006-01-02", s.date, time.Local)
		_ = m.assignment.Replace(context.Background(), &model.ShiftAssignment{
			UserID: s.user, ShiftID: s.shift, WorkDate: d,
		})
	}
}

// ── ExportMonthlySchedule 测试 ──

func TestExportService_ExportMonthlySchedule_EmptyMonth(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportMonthlySchedule(context.Background(), 2025, 4)
	if !errors.Is(err, ErrExportNoAssignments) {
		t.Errorf("空月份期望 ErrExportNoAssignments，实际: %v", err)
	}
}

func TestExportService_ExportMonthlySchedule_Success(t *testing.T) {
	svc, m := setupTestExportService()
	seedExportData(m)

	buf, filename, err := svc.ExportMonthlySchedule(context.Background(), 2025, 3)
	if err != nil {
		t.Fatalf("ExportMonthlySchedule 应成功: %v", err)
	}
	if filename != "排班表_202503.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	// 回读 Excel 验证单元格内容
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("排班表")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 2个用户
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际=%d", len(rows))
	}

	// 按姓名排序：Budi 在前
	if rows[2][0] != "Budi" || rows[3][0] != "Siti" {
		t.Errorf("人员行序不符: %q / %q", rows[2][0], rows[3][0])
	}
	// 3月3日为 D 列（A=姓名，B=1日 …）
	if got, _ := f.GetCellValue("排班表", "D3"); got != "Pagi" {
		t.Errorf("Budi 3日应为 Pagi，实际=%q", got)
	}
	if got, _ := f.GetCellValue("排班表", "E3"); got != "Malam" {
		t.Errorf("Budi 4日应为 Malam，实际=%q", got)
	}
	// 无排班日期为 "-"
	if got, _ := f.GetCellValue("排班表", "F3"); got != "-" {
		t.Errorf("Budi 5日应为 -，实际=%q", got)
	}
}

// ── ExportUserScheduleICS 测试 ──

func TestExportService_ExportUserScheduleICS_UserNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportUserScheduleICS(context.Background(), "nonexistent", 2025, 3)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("未知用户期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestExportService_ExportUserScheduleICS_Success(t *testing.T) {
	svc, m := setupTestExportService()
	seedExportData(m)

	buf, filename, err := svc.ExportUserScheduleICS(context.Background(), "user-1", 2025, 3)
	if err != nil {
		t.Fatalf("ExportUserScheduleICS 应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("导出内容应为合法 iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("user-1 三月有 2 条排班，期望 2 个事件，实际=%d", len(events))
	}

	summaries := make(map[string]bool)
	for _, ev := range events {
		if prop := ev.GetProperty(ics.ComponentPropertySummary); prop != nil {
			summaries[prop.Value] = true
		}
	}
	if !summaries["Pagi"] || !summaries["Malam"] {
		t.Errorf("事件摘要应包含 Pagi 与 Malam，实际=%v", summaries)
	}
}

func TestExportService_ExportUserScheduleICS_OvernightShiftSpansDays(t *testing.T) {
	svc, m := setupTestExportService()
	seedExportData(m)

	buf, _, err := svc.ExportUserScheduleICS(context.Background(), "user-1", 2025, 3)
	if err != nil {
		t.Fatalf("ExportUserScheduleICS 应成功: %v", err)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	// Malam 班 22:00-06:00 跨零点：结束时间应落在次日
	for _, ev := range cal.Events() {
		prop := ev.GetProperty(ics.ComponentPropertySummary)
		if prop == nil || prop.Value != "Malam" {
			continue
		}
		start, err := ev.GetStartAt()
		if err != nil {
			t.Fatalf("读取 DTSTART 失败: %v", err)
		}
		end, err := ev.GetEndAt()
		if err != nil {
			t.Fatalf("读取 DTEND 失败: %v", err)
		}
		if !end.After(start) {
			t.Errorf("跨零点班次结束时间应晚于开始: start=%v end=%v", start, end)
		}
		if end.Sub(start) != 8*time.Hour {
			t.Errorf("Malam 班时长应为 8 小时，实际=%v", end.Sub(start))
		}
	}
}
