package record

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validAttendance() Attendance {
	return Attendance{
		Name:    "Dhanush",
		Email:   "dhanush@klmsolutions.in",
		Date:    "2025-03-14",
		TimeIn:  "09:15",
		TimeOut: "18:00",
	}
}

func validLeave() Leave {
	return Leave{
		Name:      "Prateeka",
		Email:     "prateeka@klmsolutions.in",
		StartDate: "2025-04-01",
		EndDate:   "2025-04-03",
		Type:      LeaveSick,
		Reason:    "fever",
		Approver:  "Nandhakumar",
	}
}

func TestValidateAttendance_Valid(t *testing.T) {
	if err := ValidateAttendance(validAttendance()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateAttendance_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Attendance)
		want   error
	}{
		{"empty name", func(a *Attendance) { a.Name = "  " }, ErrEmptyName},
		{"bad email", func(a *Attendance) { a.Email = "not-an-email" }, ErrInvalidEmail},
		{"bad date", func(a *Attendance) { a.Date = "14/03/2025" }, ErrInvalidDate},
		{"bad time in", func(a *Attendance) { a.TimeIn = "9am" }, ErrInvalidTime},
		{"bad time out", func(a *Attendance) { a.TimeOut = "" }, ErrInvalidTime},
		{"out before in", func(a *Attendance) { a.TimeIn = "18:00"; a.TimeOut = "09:00" }, ErrTimeOutBeforeIn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAttendance()
			tc.mutate(&a)
			err := ValidateAttendance(a)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateLeave_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Leave)
		want   error
	}{
		{"end before start", func(l *Leave) { l.EndDate = "2025-03-30" }, ErrEndBeforeStart},
		{"unknown type", func(l *Leave) { l.Type = "sabbatical" }, ErrUnknownLeaveType},
		{"empty reason", func(l *Leave) { l.Reason = "" }, ErrEmptyReason},
		{"self approval", func(l *Leave) { l.Approver = "prateeka " }, ErrSelfApproval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := validLeave()
			tc.mutate(&l)
			err := ValidateLeave(l)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateLeave_ApproverOptional(t *testing.T) {
	l := validLeave()
	l.Approver = ""
	if err := ValidateLeave(l); err != nil {
		t.Fatalf("expected valid without approver, got %v", err)
	}
}

func TestValidateSubmission_KindMismatch(t *testing.T) {
	s := Submission{Kind: KindAttendance}
	if err := ValidateSubmission(s); !errors.Is(err, ErrMissingBody) {
		t.Fatalf("expected ErrMissingBody, got %v", err)
	}
	s = Submission{Kind: "overtime"}
	if err := ValidateSubmission(s); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestValidationErrorFields(t *testing.T) {
	a := validAttendance()
	a.Email = "bogus"
	err := ValidateAttendance(a)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "email" || verr.Value != "bogus" {
		t.Errorf("unexpected field/value: %s/%s", verr.Field, verr.Value)
	}
}

func TestSummary_Attendance(t *testing.T) {
	a := validAttendance()
	s := Submission{Kind: KindAttendance, Attendance: &a, SubmittedAt: time.Now()}
	got := s.Summary()
	want := "attendance: name: Dhanush, email: dhanush@klmsolutions.in, date: 2025-03-14, time_in: 09:15, time_out: 18:00"
	if got != want {
		t.Errorf("summary mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestSummary_LeaveIncludesApprover(t *testing.T) {
	l := validLeave()
	s := Submission{Kind: KindLeave, Leave: &l}
	got := s.Summary()
	if !strings.HasPrefix(got, "leave: name: Prateeka") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, "approver: Nandhakumar") {
		t.Errorf("approver missing from %q", got)
	}

	l.Approver = ""
	s.Leave = &l
	if strings.Contains(s.Summary(), "approver") {
		t.Error("approver rendered when empty")
	}
}

func TestSubmissionID_Deterministic(t *testing.T) {
	a := validAttendance()
	at := time.Date(2025, 3, 14, 18, 2, 3, 4, time.UTC)
	s := Submission{Kind: KindAttendance, Attendance: &a, SubmittedAt: at}
	id := s.ID()
	if id != s.ID() {
		t.Error("ID not stable")
	}
	if !strings.HasPrefix(id, "attendance:dhanush:2025-03-14:") {
		t.Errorf("unexpected ID shape: %q", id)
	}
}
