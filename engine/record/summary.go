package record

import (
	"fmt"
	"strings"
)

// Summary renders a submission as the one-line text that gets embedded
// and stored as the point payload. Key order is fixed so that equal
// records always embed identical text.
func (s Submission) Summary() string {
	var pairs []string
	switch s.Kind {
	case KindAttendance:
		a := s.Attendance
		if a == nil {
			return string(s.Kind) + ":"
		}
		pairs = []string{
			"name: " + a.Name,
			"email: " + a.Email,
			"date: " + a.Date,
			"time_in: " + a.TimeIn,
			"time_out: " + a.TimeOut,
		}
	case KindLeave:
		l := s.Leave
		if l == nil {
			return string(s.Kind) + ":"
		}
		pairs = []string{
			"name: " + l.Name,
			"email: " + l.Email,
			"start_date: " + l.StartDate,
			"end_date: " + l.EndDate,
			"type: " + string(l.Type),
			"reason: " + l.Reason,
		}
		if l.Approver != "" {
			pairs = append(pairs, "approver: "+l.Approver)
		}
	}
	return fmt.Sprintf("%s: %s", s.Kind, strings.Join(pairs, ", "))
}
