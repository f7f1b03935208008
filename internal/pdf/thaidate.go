package pdf

import (
	"fmt"
	"time"
)

var thaiMonths = [...]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar.
const buddhistEraOffset = 543

// ThaiDate formats t as "5 ม.ค. 68": day, abbreviated Thai month and
// two-digit Buddhist year.
func ThaiDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %02d", t.Day(), thaiMonths[t.Month()-1], (t.Year()+buddhistEraOffset)%100)
}

// ThaiTime formats t as "09:05 น.".
func ThaiTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d น.", t.Hour(), t.Minute())
}
