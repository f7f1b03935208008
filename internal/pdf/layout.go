// Package pdf renders tickets onto the printed work-order form. Layout decides
// what goes where; Renderer draws it with fpdf.
package pdf

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// Align is horizontal text alignment relative to the mark's X.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

const (
	textSize   = 14.0
	headerSize = 16.0
	checkSize  = 24.0
	// wrapWidth is the column width, in mm, of the free-text boxes.
	wrapWidth = 90.0
	maxParts  = 8
)

// Mark is one piece of ink on the form. Wrap > 0 asks the renderer to split
// Text into lines no wider than Wrap mm.
type Mark struct {
	X, Y  float64
	Size  float64
	Align Align
	Text  string
	Wrap  float64
}

// IsCheck reports whether the mark ticks a box.
func (m Mark) IsCheck() bool {
	return m.Text == "/" && m.Size == checkSize
}

type layout struct {
	marks []Mark
	loc   *time.Location
}

func (l *layout) text(s string, x, y float64) {
	l.textSized(s, x, y, textSize, AlignLeft)
}

func (l *layout) textSized(s string, x, y, size float64, align Align) {
	if s == "" {
		return
	}
	l.marks = append(l.marks, Mark{X: x, Y: y, Size: size, Align: align, Text: s})
}

func (l *layout) wrapped(s string, x, y float64) {
	if strings.TrimSpace(s) == "" {
		return
	}
	l.marks = append(l.marks, Mark{X: x, Y: y, Size: textSize, Text: s, Wrap: wrapWidth})
}

func (l *layout) check(x, y float64, checked bool) {
	if checked {
		l.marks = append(l.marks, Mark{X: x, Y: y, Size: checkSize, Text: "/"})
	}
}

func (l *layout) date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ThaiDate(t.In(l.loc))
}

func (l *layout) clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ThaiTime(t.In(l.loc))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Layout places a ticket's fields on the A4 form. Coordinates are mm from the
// top-left corner; Y is the text baseline. Dates print in loc.
func Layout(t *domain.Ticket, loc *time.Location) []Mark {
	if loc == nil {
		loc = time.UTC
	}
	l := &layout{loc: loc}

	id := strings.ToUpper(t.ID)
	if len([]rune(id)) > 12 {
		id = string([]rune(id)[:12])
	}
	l.textSized(id, 175, 24, headerSize, AlignCenter)

	l.requester(t)
	l.location(t)

	l.text(t.IssueItem, 15, 73.5)
	l.text(t.IssueDetail, 15, 80)

	l.cause(t)
	l.parts(t)
	l.wrapped(t.Prevention, 15, 202)
	l.result(t)
	l.mttr(t)

	l.check(51, 263.5, t.MCStatus == domain.MachineStopped)
	l.check(51, 268.2, t.MCStatus == domain.MachineNotStopped)

	l.signatures(t)
	return l.marks
}

func (l *layout) requester(t *domain.Ticket) {
	job := t.JobType
	isOther := strings.Contains(job, domain.OtherOption)
	l.check(30.5, 43.2, strings.Contains(job, "เครื่องจักร"))
	l.check(30.5, 48, strings.Contains(job, "อุปกรณ์"))
	l.check(30.5, 53, strings.Contains(job, "สาธารณูปโภค"))
	l.check(30.5, 58, strings.Contains(job, "ปรับปรุง"))
	l.check(30.5, 63, isOther)
	if isOther {
		l.text(domain.OtherText(job), 48, 62)
	}

	l.text(t.RequesterFullname, 133, 44)
	l.text(t.Department, 143, 49)
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		l.text(l.date(&created), 123, 54)
		l.text(l.clock(&created), 172, 54)
	}
	l.text(t.MachineName, 122, 59)
}

func (l *layout) location(t *domain.Ticket) {
	sal01 := t.Factory == domain.FactorySAL01
	sal02 := t.Factory == domain.FactorySAL02
	l.check(117, 73, sal01)
	l.check(160.5, 73, sal02)

	area := t.Area
	l.check(117, 78, containsAny(area, "สำนักงาน", "HeadOffice"))
	l.check(117, 82.5, containsAny(area, "อัดรีด", "Extrusion"))
	l.check(117, 87.5, containsAny(area, "ตัด", "Cutting"))
	l.check(117, 92.5, containsAny(area, "บด", "Grinding"))

	l.check(160.5, 78, strings.Contains(area, "Office-WH"))
	l.check(160.5, 82.5, containsAny(area, "คลังสินค้า", "Warehouse"))
	l.check(160.5, 87.5, containsAny(area, "Dock", "loading"))

	isOther := containsAny(area, domain.OtherOption, "Other")
	l.check(117, 97.5, sal01 && isOther)
	l.check(160.5, 92.5, sal02 && isOther)
	if isOther {
		if sal01 {
			l.text(domain.OtherText(area), 132.5, 97)
		} else {
			l.text(domain.OtherText(area), 175, 91.5)
		}
	}
}

func (l *layout) cause(t *domain.Ticket) {
	l.wrapped(t.CauseDetail, 15, 115)

	cc := t.CauseCategory
	l.check(117, 114.5, containsAny(cc, "Dirty", "สกปรก"))
	l.check(117, 119.5, containsAny(cc, "Loosen", "หลวม"))
	l.check(117, 124.5, containsAny(cc, "Broken", "แตกหัก"))
	l.check(117, 129, containsAny(cc, "Defect", "บกพร่อง"))
	l.check(117, 134, containsAny(cc, "Expired", "หมดอายุ"))
	l.check(117, 139, containsAny(cc, "Person", "ผิดพลาด"))

	isOther := containsAny(cc, domain.OtherOption, "Other")
	l.check(117, 144, isOther)
	if isOther {
		l.text(t.CauseCategoryOther, 140, 143)
	}

	l.wrapped(t.Solution, 15, 158)
}

func (l *layout) parts(t *domain.Ticket) {
	y := 158.0
	for i, part := range t.SpareParts {
		if i >= maxParts {
			break
		}
		l.text(part.Name, 112, y)
		l.textSized(strconv.FormatFloat(part.Qty, 'f', -1, 64), 170, y, textSize, AlignCenter)
		y += 5
	}
}

func (l *layout) result(t *domain.Ticket) {
	res := t.MaintenanceResult
	remark := t.ResultRemark
	if remark == "" {
		remark = t.MaintenanceResultOther
	}

	completed := containsAny(res, "สมบูรณ์", "Completed")
	waitPart := containsAny(res, "รออะไหล่", "Part")
	supplier := containsAny(res, "ภายนอก", "Supplier")
	other := containsAny(res, domain.OtherOption, "Other")

	l.check(117, 201.5, completed)
	l.check(117, 206.5, waitPart)
	l.check(117, 216.3, supplier)
	l.check(117, 226, other)

	switch {
	case waitPart:
		l.text(remark, 140, 206.5)
	case supplier:
		l.text(remark, 140, 216)
	case other:
		l.text(t.MaintenanceResultOther, 140, 225.5)
	}
}

func (l *layout) mttr(t *domain.Ticket) {
	if t.StartTime != nil {
		l.text(l.date(t.StartTime), 35, 237)
		l.text(l.clock(t.StartTime), 35, 242)
	}
	if t.EndTime != nil {
		l.text(l.date(t.EndTime), 90, 237)
		l.text(l.clock(t.EndTime), 90, 242)
	}
	if t.TotalHours > 0 {
		hours := math.Floor(t.TotalHours)
		minutes := math.Round((t.TotalHours - hours) * 60)
		l.textSized(strconv.Itoa(int(hours)), 145, 242, textSize, AlignCenter)
		l.textSized(strconv.Itoa(int(minutes)), 175, 242, textSize, AlignCenter)
	}
}

func (l *layout) signatures(t *domain.Ticket) {
	if t.TechnicianName != "" {
		l.textSized(t.TechnicianName, 41, 274, textSize, AlignCenter)
		signed := t.EndTime
		if signed == nil && !t.UpdatedAt.IsZero() {
			updated := t.UpdatedAt
			signed = &updated
		}
		l.textSized(l.date(signed), 41, 279, textSize, AlignCenter)
	}

	if t.RequesterFullname != "" {
		l.textSized(t.RequesterFullname, 100, 274, textSize, AlignCenter)
		l.textSized(l.date(t.VerifiedAt), 100, 279, textSize, AlignCenter)
	}

	approver := t.ApprovedBy
	if approver == "" && t.Status == domain.TicketStatusClosed {
		approver = "Auto Approved"
	}
	if approver != "" {
		l.textSized(approver, 165, 274, textSize, AlignCenter)
		approvedAt := t.ApprovedAt
		if approvedAt == nil {
			approvedAt = t.ClosedAt
		}
		l.textSized(l.date(approvedAt), 165, 279, textSize, AlignCenter)
	}
}
