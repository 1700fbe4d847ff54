package events

import "time"

const (
	LeaveLifecycleTopic = "hr.leave.lifecycle.v1"
	LeaveApprovedType   = "leave.approved"
)

type LeaveApprovedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	EmployeeID string    `json:"employee_id"`
	LeaveType  string    `json:"leave_type"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Days       float64   `json:"days"`
	OccurredAt time.Time `json:"occurred_at"`
}
