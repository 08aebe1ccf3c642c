// file: internals/features/school/reports/formatter/attendance.go
package formatter

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	attendanceModel "schooldesk_backend/internals/features/school/attendance/model"
	"schooldesk_backend/internals/features/school/exams/aggregation"

	"github.com/google/uuid"
)

// AttendanceCSVHeader is the fixed export header.
const AttendanceCSVHeader = "Roll Number,Name,Total Days,Present,Absent,Late,Excused,Attendance %"

const dateLayout = "2006-01-02"

type AttendanceStudent struct {
	StudentID  uuid.UUID
	RollNumber int
	Name       string
}

type AttendanceMark struct {
	StudentID uuid.UUID
	Date      time.Time
	Status    string
}

type StatusCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

func (c *StatusCounts) add(status string) bool {
	switch status {
	case attendanceModel.StatusPresent:
		c.Present++
	case attendanceModel.StatusAbsent:
		c.Absent++
	case attendanceModel.StatusLate:
		c.Late++
	case attendanceModel.StatusExcused:
		c.Excused++
	default:
		return false
	}
	return true
}

type AttendanceRow struct {
	StudentID  uuid.UUID `json:"student_id"`
	RollNumber int       `json:"roll_number"`
	Name       string    `json:"name"`
	TotalDays  int       `json:"total_days"`
	StatusCounts
	// Late counts as attended; nil when the student has no marked day.
	Percentage *float64 `json:"attendance_percentage"`
}

type DaySummary struct {
	Date string `json:"date"`
	StatusCounts
	Total int `json:"total"`
}

type AttendanceReport struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rows []AttendanceRow `json:"rows"`
	Days []DaySummary    `json:"days"`
}

// BuildAttendanceReport tallies marks in [from, to] per student (roster
// order) and per date (ascending). Marks of students not on the roster only
// count towards the day summary.
func BuildAttendanceReport(students []AttendanceStudent, marks []AttendanceMark, from, to time.Time) AttendanceReport {
	lo, hi := attendanceModel.DateOnly(from), attendanceModel.DateOnly(to)
	rep := AttendanceReport{
		From: lo.Format(dateLayout),
		To:   hi.Format(dateLayout),
		Rows: make([]AttendanceRow, 0, len(students)),
		Days: []DaySummary{},
	}

	idx := make(map[uuid.UUID]int, len(students))
	for i, s := range students {
		idx[s.StudentID] = i
		rep.Rows = append(rep.Rows, AttendanceRow{StudentID: s.StudentID, RollNumber: s.RollNumber, Name: s.Name})
	}

	dayIdx := map[string]int{}
	for _, m := range marks {
		d := attendanceModel.DateOnly(m.Date)
		if d.Before(lo) || d.After(hi) {
			continue
		}
		status := strings.ToLower(strings.TrimSpace(m.Status))

		key := d.Format(dateLayout)
		di, ok := dayIdx[key]
		if !ok {
			di = len(rep.Days)
			dayIdx[key] = di
			rep.Days = append(rep.Days, DaySummary{Date: key})
		}
		if rep.Days[di].add(status) {
			rep.Days[di].Total++
		}

		if i, ok := idx[m.StudentID]; ok && rep.Rows[i].add(status) {
			rep.Rows[i].TotalDays++
		}
	}

	for i := range rep.Rows {
		r := &rep.Rows[i]
		if r.TotalDays > 0 {
			p := Round2(float64(r.Present+r.Late) / float64(r.TotalDays) * 100)
			r.Percentage = &p
		}
	}
	sortDays(rep.Days)
	return rep
}

func sortDays(days []DaySummary) {
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
}

// WriteCSV writes the per-student export. The name column is always quoted.
func (r AttendanceReport) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(AttendanceCSVHeader + "\n"); err != nil {
		return err
	}
	for _, row := range r.Rows {
		line := strings.Join([]string{
			strconv.Itoa(row.RollNumber),
			quoteAlways(row.Name),
			strconv.Itoa(row.TotalDays),
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Absent),
			strconv.Itoa(row.Late),
			strconv.Itoa(row.Excused),
			percentText(row.Percentage),
		}, ",")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func percentText(p *float64) string {
	if p == nil {
		return aggregation.TokenNoData
	}
	return fmt.Sprintf("%.2f", *p)
}

func quoteAlways(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
