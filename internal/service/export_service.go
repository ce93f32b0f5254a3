package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrexo321/warga-nusa-sub000/internal/model"
	"github.com/mrexo321/warga-nusa-sub000/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAssignments = errors.New("该月份暂无排班记录")
	ErrExportGenerateFail  = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 月度排班表导出为 Excel (.xlsx)：行为人员，列为日期，单元格为班次名
//   - 个人排班导出为 iCalendar (.ics)：每条排班一个 VEVENT，可订阅到日历客户端
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportMonthlySchedule 导出某月全员排班表为 Excel
	ExportMonthlySchedule(ctx context.Context, year, month int) (*bytes.Buffer, string, error)
	// ExportUserScheduleICS 导出某人某月排班为 iCalendar
	ExportUserScheduleICS(ctx context.Context, userID string, year, month int) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportMonthlySchedule — 导出月度排班表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "排班表"
//   - 行头：人员姓名（按姓名排序）
//   - 列头：1 日 ~ 月末
//   - 单元格：班次名；当天无排班为 "-"
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportMonthlySchedule(ctx context.Context, year, month int) (*bytes.Buffer, string, error) {
	from, to := monthRange(year, month)

	assignments, err := s.repo.Assignment.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询月度排班失败", zap.Error(err))
		return nil, "", err
	}
	if len(assignments) == 0 {
		return nil, "", ErrExportNoAssignments
	}

	// 索引: "userID:day" → 班次名；同时收集人员
	type person struct {
		userID string
		name   string
	}
	cellIndex := make(map[string]string)
	seen := make(map[string]bool)
	var people []person

	for i := range assignments {
		a := &assignments[i]
		name := a.UserID
		if a.User != nil {
			name = a.User.Name
		}
		if !seen[a.UserID] {
			seen[a.UserID] = true
			people = append(people, person{userID: a.UserID, name: name})
		}
		shiftName := ""
		if a.Shift != nil {
			shiftName = a.Shift.Name
		}
		cellIndex[fmt.Sprintf("%s:%d", a.UserID, a.WorkDate.Day())] = shiftName
	}
	sort.Slice(people, func(i, j int) bool { return people[i].name < people[j].name })

	daysInMonth := to.Day()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排班表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 16)
	lastCol, _ := excelize.ColumnNumberToName(1 + daysInMonth)
	f.SetColWidth(sheetName, "B", lastCol, 8)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%d年%02d月 — 排班表", year, month))
	f.MergeCell(sheetName, "A1", fmt.Sprintf("%s1", lastCol))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "姓名")
	for day := 1; day <= daysInMonth; day++ {
		col, _ := excelize.ColumnNumberToName(1 + day)
		f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, row), fmt.Sprintf("%d日", day))
	}

	// 数据行
	row = 3
	for _, p := range people {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), p.name)
		for day := 1; day <= daysInMonth; day++ {
			col, _ := excelize.ColumnNumberToName(1 + day)
			text := cellIndex[fmt.Sprintf("%s:%d", p.userID, day)]
			if text == "" {
				text = "-"
			}
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, row), text)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排班表_%d%02d.xlsx", year, month)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportUserScheduleICS — 导出个人排班为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每条排班生成一个 VEVENT：
//   - UID 取排班记录 ID，重复导出产生相同事件，日历客户端幂等合并
//   - DTSTART/DTEND 由排班日期 + 班次起止时间 (HH:MM) 拼出
//   - 跨零点班次（end <= start）顺延到次日

func (s *exportService) ExportUserScheduleICS(ctx context.Context, userID string, year, month int) (*bytes.Buffer, string, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, "", err
	}

	from, to := monthRange(year, month)
	assignments, err := s.repo.Assignment.ListByUserDateRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询个人排班失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", err
	}
	if len(assignments) == 0 {
		return nil, "", ErrExportNoAssignments
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//warga-nusa//schedule//ID")
	cal.SetName(fmt.Sprintf("%s 排班 %d-%02d", user.Name, year, month))

	now := time.Now()
	for i := range assignments {
		a := &assignments[i]
		if a.Shift == nil {
			continue
		}

		start, end, err := shiftWindow(a.WorkDate, a.Shift)
		if err != nil {
			s.logger.Warn("班次时间格式非法，跳过该排班",
				zap.String("assignment_id", a.AssignmentID), zap.Error(err))
			continue
		}

		ev := cal.AddEvent(a.AssignmentID)
		ev.SetCreatedTime(now)
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(a.Shift.Name)
		ev.SetDescription(fmt.Sprintf("%s（%s-%s）", a.Shift.Name, a.Shift.StartTime, a.Shift.EndTime))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("schedule_%s_%d%02d.ics", user.Name, year, month)
	return buf, filename, nil
}

// ── 辅助函数 ──

// monthRange 返回当月首日与末日（闭区间）
func monthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return from, from.AddDate(0, 1, -1)
}

// shiftWindow 由排班日期与班次 HH:MM 起止拼出事件时间窗
func shiftWindow(date time.Time, shift *model.Shift) (time.Time, time.Time, error) {
	st, err := time.Parse("15:04", shift.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	et, err := time.Parse("15:04", shift.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), st.Hour(), st.Minute(), 0, 0, time.Local)
	end := time.Date(date.Year(), date.Month(), date.Day(), et.Hour(), et.Minute(), 0, 0, time.Local)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
