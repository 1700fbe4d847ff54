package leave

import "time"

type CreateLeaveRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	LeaveType  string `json:"leave_type" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

type RejectLeaveRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type LeaveResponse struct {
	ID            string  `json:"id"`
	RequestNumber int64   `json:"request_number"`
	EmployeeID    string  `json:"employee_id"`
	LeaveType     string  `json:"leave_type"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Days          float64 `json:"days"`
	Status        string  `json:"status"`
	Remarks       string  `json:"remarks,omitempty"`
}

type BalanceResponse struct {
	EmployeeID  string  `json:"employee_id"`
	LeaveType   string  `json:"leave_type"`
	BalanceDays float64 `json:"balance_days"`
	Year        int     `json:"year"`
	LastUpdated string  `json:"last_updated"`
}

type LeaveTypeResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DefaultBalance float64 `json:"default_balance"`
}

func mapToResponse(lr LeaveRequest) LeaveResponse {
	return LeaveResponse{
		ID:            lr.ID.String(),
		RequestNumber: lr.RequestNumber,
		EmployeeID:    lr.EmployeeID,
		LeaveType:     lr.LeaveType,
		StartDate:     lr.StartDate.Format("2006-01-02"),
		EndDate:       lr.EndDate.Format("2006-01-02"),
		Days:          lr.Days,
		Status:        lr.Status,
		Remarks:       lr.Remarks,
	}
}

func mapToListResponse(requests []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(requests))
	for i, lr := range requests {
		resp[i] = mapToResponse(lr)
	}
	return resp
}

func mapToBalanceResponse(b LeaveBalance) BalanceResponse {
	return BalanceResponse{
		EmployeeID:  b.EmployeeID,
		LeaveType:   b.LeaveType,
		BalanceDays: b.BalanceDays,
		Year:        b.Year,
		LastUpdated: b.LastUpdated.UTC().Format(time.RFC3339),
	}
}
