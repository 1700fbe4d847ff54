package leaveerrors

import (
	"net/http"

	"go-leave/internal/shared/apperror"
)

// Message text follows the wording users of the legacy system already know.
var (
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"Employee does not exist",
		http.StatusNotFound,
	)
	ErrUnknownLeaveType = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid leave type",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrStartAfterEnd = apperror.New(
		apperror.CodeInvalidInput,
		"Start date must be before or equal to end date",
		http.StatusBadRequest,
	)
	ErrPastStartDate = apperror.New(
		apperror.CodeInvalidInput,
		"Leave cannot be requested for past dates",
		http.StatusBadRequest,
	)
	ErrSameStartEnd = apperror.New(
		apperror.CodeInvalidInput,
		"Start and end dates cannot be the same",
		http.StatusBadRequest,
	)
	ErrWeekendDates = apperror.New(
		apperror.CodeInvalidInput,
		"Leave cannot be requested on weekends",
		http.StatusBadRequest,
	)
	ErrStartTooFarAheadMonth = apperror.New(
		apperror.CodeInvalidInput,
		"Leave cannot be requested more than a month in advance",
		http.StatusBadRequest,
	)
	ErrStartTooFarAheadWeeks = apperror.New(
		apperror.CodeInvalidInput,
		"Leave cannot be requested more than two weeks in advance",
		http.StatusBadRequest,
	)
	ErrSpanTooLong = apperror.New(
		apperror.CodeInvalidInput,
		"Leave cannot be requested for more than 14 days",
		http.StatusBadRequest,
	)
	ErrOverlappingRequest = apperror.New(
		apperror.CodeConflict,
		"Employee already has leave requests for the selected dates",
		http.StatusConflict,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"Leave request not found",
		http.StatusNotFound,
	)
	ErrRequestNotPending = apperror.New(
		apperror.CodeInvalidState,
		"Only pending requests can be modified",
		http.StatusConflict,
	)
	ErrBalanceNotFound = apperror.New(
		apperror.CodeNotFound,
		"No leave balance found for employee and leave type",
		http.StatusNotFound,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInvalidState,
		"Insufficient leave balance",
		http.StatusConflict,
	)
	ErrRejectionReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"A reason is required when rejecting a request",
		http.StatusBadRequest,
	)
)
