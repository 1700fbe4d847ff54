package ingest

import (
	"fmt"
	"time"

	"go-leave/internal/employee"
	"go-leave/internal/leave"
	"go-leave/internal/leavetype"

	"github.com/google/uuid"
)

// NewEmployeeParser reads EMP_ID, EMP_NAME and DEPARTMENT.
func NewEmployeeParser() Parser[employee.Employee] {
	return &xlsxParser[employee.Employee]{
		mapRow: func(row []string) (employee.Employee, error) {
			rawID, err := requiredCell(row, colEmpID)
			if err != nil {
				return employee.Employee{}, err
			}
			id, ok := employee.NormalizeID(rawID)
			if !ok {
				return employee.Employee{}, fmt.Errorf("invalid employee id: %s", rawID)
			}

			name, err := requiredCell(row, colEmpName)
			if err != nil {
				return employee.Employee{}, err
			}

			return employee.Employee{
				ID:         id,
				Name:       name,
				Department: cellValue(row, colDepartment),
			}, nil
		},
	}
}

// NewLeaveTypeParser reads LEAVE_TYPE and BALANCE_LEAVE (as default balance).
func NewLeaveTypeParser() Parser[leavetype.LeaveType] {
	return &xlsxParser[leavetype.LeaveType]{
		mapRow: func(row []string) (leavetype.LeaveType, error) {
			name, err := requiredCell(row, colLeaveType)
			if err != nil {
				return leavetype.LeaveType{}, err
			}

			defaultBalance, err := floatCell(row, colBalanceLeave)
			if err != nil {
				return leavetype.LeaveType{}, err
			}

			return leavetype.LeaveType{
				ID:             uuid.New(),
				Name:           leave.NormalizeTypeName(name),
				DefaultBalance: defaultBalance,
			}, nil
		},
	}
}

// NewLeaveBalanceParser reads EMP_ID, LEAVE_TYPE and BALANCE_LEAVE. Balances
// land in the current year's row.
func NewLeaveBalanceParser() Parser[leave.LeaveBalance] {
	return &xlsxParser[leave.LeaveBalance]{
		mapRow: func(row []string) (leave.LeaveBalance, error) {
			rawID, err := requiredCell(row, colEmpID)
			if err != nil {
				return leave.LeaveBalance{}, err
			}
			id, ok := employee.NormalizeID(rawID)
			if !ok {
				return leave.LeaveBalance{}, fmt.Errorf("invalid employee id: %s", rawID)
			}

			typeName, err := requiredCell(row, colLeaveType)
			if err != nil {
				return leave.LeaveBalance{}, err
			}

			balance, err := floatCell(row, colBalanceLeave)
			if err != nil {
				return leave.LeaveBalance{}, err
			}
			if balance < 0 {
				return leave.LeaveBalance{}, fmt.Errorf("negative balance: %v", balance)
			}

			now := time.Now().UTC()
			return leave.LeaveBalance{
				ID:          uuid.New(),
				EmployeeID:  id,
				LeaveType:   leave.NormalizeTypeName(typeName),
				BalanceDays: balance,
				Year:        now.Year(),
				LastUpdated: now,
			}, nil
		},
	}
}

// NewLeaveRequestParser reads EMP_ID, LEAVE_TYPE, the date pair, LEAVE_DAYS,
// LEAVE_STATUS and REMARKS.
func NewLeaveRequestParser() Parser[leave.LeaveRequest] {
	return &xlsxParser[leave.LeaveRequest]{
		mapRow: func(row []string) (leave.LeaveRequest, error) {
			rawID, err := requiredCell(row, colEmpID)
			if err != nil {
				return leave.LeaveRequest{}, err
			}
			id, ok := employee.NormalizeID(rawID)
			if !ok {
				return leave.LeaveRequest{}, fmt.Errorf("invalid employee id: %s", rawID)
			}

			typeName, err := requiredCell(row, colLeaveType)
			if err != nil {
				return leave.LeaveRequest{}, err
			}

			start, err := dateCell(row, colStartDate)
			if err != nil {
				return leave.LeaveRequest{}, err
			}
			end, err := dateCell(row, colEndDate)
			if err != nil {
				return leave.LeaveRequest{}, err
			}

			days, err := floatCell(row, colLeaveDays)
			if err != nil {
				return leave.LeaveRequest{}, err
			}

			status, err := leave.ParseStatus(cellValue(row, colLeaveStatus))
			if err != nil {
				return leave.LeaveRequest{}, err
			}

			return leave.LeaveRequest{
				ID:         uuid.New(),
				EmployeeID: id,
				LeaveType:  leave.NormalizeTypeName(typeName),
				StartDate:  start,
				EndDate:    end,
				Days:       days,
				Status:     status,
				Remarks:    cellValue(row, colRemarks),
			}, nil
		},
	}
}
