// Package record defines the core submission types, constants, and
// validation for the Leave Buddy pipeline. It acts as the validation gate
// at every pipeline entry point.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the two submission types.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindLeave      Kind = "leave"
)

// DateLayout is the wire format for all dates. Records are compared as
// strings in this layout, which orders the same as the dates themselves.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for clock times.
const TimeLayout = "15:04"

// LeaveType classifies a leave request.
type LeaveType string

const (
	LeaveCasual LeaveType = "casual"
	LeaveSick   LeaveType = "sick"
	LeaveEarned LeaveType = "earned"
	LeaveUnpaid LeaveType = "unpaid"
)

// ValidLeaveTypes is the set of recognised leave types.
var ValidLeaveTypes = map[LeaveType]bool{
	LeaveCasual: true, LeaveSick: true, LeaveEarned: true, LeaveUnpaid: true,
}

// Attendance is a single day's attendance entry.
type Attendance struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Date    string `json:"date"`
	TimeIn  string `json:"time_in"`
	TimeOut string `json:"time_out"`
}

// Leave is a leave request covering an inclusive date range.
type Leave struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Type      LeaveType `json:"type"`
	Reason    string    `json:"reason"`
	Approver  string    `json:"approver"`
}

// Submission is the tagged union carried on the wire and through the
// ingestion pipeline. Exactly one of Attendance/Leave is set, matching Kind.
type Submission struct {
	Kind        Kind        `json:"kind"`
	Attendance  *Attendance `json:"attendance,omitempty"`
	Leave       *Leave      `json:"leave,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Name returns the employee name regardless of kind.
func (s Submission) Name() string {
	switch s.Kind {
	case KindAttendance:
		if s.Attendance != nil {
			return s.Attendance.Name
		}
	case KindLeave:
		if s.Leave != nil {
			return s.Leave.Name
		}
	}
	return ""
}

// Date returns the record date (start date for leave) regardless of kind.
func (s Submission) Date() string {
	switch s.Kind {
	case KindAttendance:
		if s.Attendance != nil {
			return s.Attendance.Date
		}
	case KindLeave:
		if s.Leave != nil {
			return s.Leave.StartDate
		}
	}
	return ""
}

// ID returns a deterministic record identifier. The submission timestamp
// makes repeated submissions for the same day distinct records, matching
// the create-once lifecycle.
func (s Submission) ID() string {
	return fmt.Sprintf("%s:%s:%s:%d", s.Kind, slug(s.Name()), s.Date(), s.SubmittedAt.UnixNano())
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
