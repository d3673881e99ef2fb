package record

import (
	"regexp"
	"strings"
	"time"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateSubmission checks a Submission before ingestion.
func ValidateSubmission(s Submission) error {
	switch s.Kind {
	case KindAttendance:
		if s.Attendance == nil {
			return NewValidationError("attendance", "", ErrMissingBody)
		}
		return ValidateAttendance(*s.Attendance)
	case KindLeave:
		if s.Leave == nil {
			return NewValidationError("leave", "", ErrMissingBody)
		}
		return ValidateLeave(*s.Leave)
	default:
		return NewValidationError("kind", string(s.Kind), ErrUnknownKind)
	}
}

// ValidateAttendance checks a single attendance entry.
func ValidateAttendance(a Attendance) error {
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", a.Name, ErrEmptyName)
	}
	if !emailRegex.MatchString(a.Email) {
		return NewValidationError("email", a.Email, ErrInvalidEmail)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return NewValidationError("date", a.Date, ErrInvalidDate)
	}
	in, err := time.Parse(TimeLayout, a.TimeIn)
	if err != nil {
		return NewValidationError("time_in", a.TimeIn, ErrInvalidTime)
	}
	out, err := time.Parse(TimeLayout, a.TimeOut)
	if err != nil {
		return NewValidationError("time_out", a.TimeOut, ErrInvalidTime)
	}
	if out.Before(in) {
		return NewValidationError("time_out", a.TimeOut, ErrTimeOutBeforeIn)
	}
	return nil
}

// ValidateLeave checks a leave request.
func ValidateLeave(l Leave) error {
	if strings.TrimSpace(l.Name) == "" {
		return NewValidationError("name", l.Name, ErrEmptyName)
	}
	if !emailRegex.MatchString(l.Email) {
		return NewValidationError("email", l.Email, ErrInvalidEmail)
	}
	start, err := time.Parse(DateLayout, l.StartDate)
	if err != nil {
		return NewValidationError("start_date", l.StartDate, ErrInvalidDate)
	}
	end, err := time.Parse(DateLayout, l.EndDate)
	if err != nil {
		return NewValidationError("end_date", l.EndDate, ErrInvalidDate)
	}
	if end.Before(start) {
		return NewValidationError("end_date", l.EndDate, ErrEndBeforeStart)
	}
	if !ValidLeaveTypes[l.Type] {
		return NewValidationError("type", string(l.Type), ErrUnknownLeaveType)
	}
	if strings.TrimSpace(l.Reason) == "" {
		return NewValidationError("reason", l.Reason, ErrEmptyReason)
	}
	if l.Approver != "" && strings.EqualFold(strings.TrimSpace(l.Approver), strings.TrimSpace(l.Name)) {
		return NewValidationError("approver", l.Approver, ErrSelfApproval)
	}
	return nil
}
