package leave

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// LeaveRequest transitions one-directionally out of PENDING; APPROVED and
// REJECTED are terminal.
type LeaveRequest struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestNumber int64     `gorm:"not null;default:0"`
	EmployeeID    string    `gorm:"type:varchar(10);not null;uniqueIndex:uq_leave_request_identity;index:idx_leave_requests_employee_dates"`
	LeaveType     string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_leave_request_identity"`
	StartDate     time.Time `gorm:"type:date;not null;uniqueIndex:uq_leave_request_identity;index:idx_leave_requests_employee_dates"`
	EndDate       time.Time `gorm:"type:date;not null;uniqueIndex:uq_leave_request_identity;index:idx_leave_requests_employee_dates"`
	Days          float64   `gorm:"type:numeric(5,1);not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Remarks       string    `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InclusiveDays counts calendar days between start and end, both ends
// included. Monday through Wednesday is 3 days.
func InclusiveDays(start, end time.Time) float64 {
	start = truncateToDate(start)
	end = truncateToDate(end)
	return float64(int(end.Sub(start).Hours()/24) + 1)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeTypeName capitalizes a leave type the way the spreadsheets spell
// them (Sick, Casual, Paid).
func NormalizeTypeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// ParseStatus maps a spreadsheet cell to a request status.
func ParseStatus(s string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown leave status: %q", s)
	}
}
