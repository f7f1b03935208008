package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDepartmentCode prefixes ticket IDs for departments without a code.
const DefaultDepartmentCode = "MT"

// TicketCounter is the per-month sequence source for ticket IDs.
type TicketCounter struct {
	YearMonth string
	Count     int
}

// YearMonth formats t as the YYMM bucket used in ticket IDs.
func YearMonth(t time.Time) string {
	return t.Format("0601")
}

// FormatTicketID builds {code}-{YYMM}-{seq}, padding seq to three digits.
func FormatTicketID(code, yearMonth string, seq int) string {
	if strings.TrimSpace(code) == "" {
		code = DefaultDepartmentCode
	}
	return fmt.Sprintf("%s-%s-%03d", code, yearMonth, seq)
}

// TicketIDParts is a decoded ticket ID. IDs renamed by hand may not decode.
type TicketIDParts struct {
	Code      string
	YearMonth string
	Seq       int
}

// ParseTicketID splits an ID on its last two dashes. The department code may
// itself contain dashes.
func ParseTicketID(id string) (TicketIDParts, bool) {
	last := strings.LastIndex(id, "-")
	if last <= 0 {
		return TicketIDParts{}, false
	}
	seq, err := strconv.Atoi(id[last+1:])
	if err != nil {
		return TicketIDParts{}, false
	}
	head := id[:last]
	mid := strings.LastIndex(head, "-")
	if mid <= 0 {
		return TicketIDParts{}, false
	}
	ym := head[mid+1:]
	if len(ym) != 4 {
		return TicketIDParts{}, false
	}
	if _, err := strconv.Atoi(ym); err != nil {
		return TicketIDParts{}, false
	}
	return TicketIDParts{Code: head[:mid], YearMonth: ym, Seq: seq}, true
}
