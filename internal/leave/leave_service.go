package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go-leave/internal/employee"
	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/leavetype"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/counter"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	balancesKeyPrefix = "leave:balances:"
	balancesCacheTTL  = time.Minute
	requestCounter    = "leave_request"
)

func balancesCacheKey(employeeID string) string {
	return balancesKeyPrefix + employeeID
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	RequestLeave(ctx context.Context, req CreateLeaveRequest) (LeaveResponse, error)
	ApproveLeave(ctx context.Context, id string) (LeaveResponse, error)
	RejectLeave(ctx context.Context, id, reason string) (LeaveResponse, error)
	GetLeaveBalances(ctx context.Context, employeeID string) ([]BalanceResponse, error)
	GetLeaveHistory(ctx context.Context, employeeID string) ([]LeaveResponse, error)
	GetLeaveTypes(ctx context.Context) ([]LeaveTypeResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	balances  BalanceRepository
	employees employee.Repository
	types     leavetype.Repository
	counter   counter.Repository
	outbox    kafka.OutboxRepository
	rdb       *redis.Client
	sf        *singleflight.Group
	locks     *keyedMutex
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	balances BalanceRepository,
	employees employee.Repository,
	types leavetype.Repository,
	counterRepo counter.Repository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	return NewServiceWithOutbox(db, repo, balances, employees, types, counterRepo, nil, rdb, logger...)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	balances BalanceRepository,
	employees employee.Repository,
	types leavetype.Repository,
	counterRepo counter.Repository,
	outboxRepo kafka.OutboxRepository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		balances:  balances,
		employees: employees,
		types:     types,
		counter:   counterRepo,
		outbox:    outboxRepo,
		rdb:       rdb,
		sf:        &singleflight.Group{},
		locks:     newKeyedMutex(),
		logger:    l,
	}
}

func (s *service) RequestLeave(ctx context.Context, req CreateLeaveRequest) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("request leave",
		zap.String("request_id", rid),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", req.LeaveType),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	employeeID, err := s.requireEmployee(ctx, req.EmployeeID)
	if err != nil {
		return LeaveResponse{}, err
	}

	lt, err := s.types.FindByName(ctx, req.LeaveType)
	if err != nil {
		s.logger.Error("request leave type lookup failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if lt == nil {
		s.logger.Warn("request leave unknown type", zap.String("leave_type", req.LeaveType))
		return LeaveResponse{}, leaveerrors.ErrUnknownLeaveType
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	if err := validateLeaveDates(start, end); err != nil {
		s.logger.Warn("request leave date validation failed",
			zap.String("employee_id", employeeID),
			zap.String("reason", err.Error()),
		)
		return LeaveResponse{}, err
	}

	overlapping, err := s.repo.FindOverlappingRequests(ctx, employeeID, start, end)
	if err != nil {
		s.logger.Error("request leave overlap check failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	if len(overlapping) > 0 {
		s.logger.Warn("request leave overlap detected",
			zap.String("employee_id", employeeID),
			zap.Int("overlapping", len(overlapping)),
		)
		return LeaveResponse{}, leaveerrors.ErrOverlappingRequest
	}

	number, err := s.counter.GetNextValue(ctx, requestCounter)
	if err != nil {
		s.logger.Error("request leave generate number failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	lr := &LeaveRequest{
		ID:            uuid.New(),
		RequestNumber: number,
		EmployeeID:    employeeID,
		LeaveType:     lt.Name,
		StartDate:     start,
		EndDate:       end,
		Days:          InclusiveDays(start, end),
		Status:        StatusPending,
		Remarks:       "None",
	}

	// Insufficient balance is a recorded outcome, not a failure: the request
	// is still persisted, immediately rejected with the shortfall noted.
	balance, err := s.balances.FindByEmployeeIDAndLeaveType(ctx, employeeID, lt.Name, start.Year())
	if err != nil {
		s.logger.Error("request leave balance lookup failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	switch {
	case balance == nil:
		lr.Status = StatusRejected
		lr.Remarks = fmt.Sprintf("No leave balance found for employee: %s and leave type: %s", employeeID, lt.Name)
	case !balance.HasEnough(lr.Days):
		lr.Status = StatusRejected
		lr.Remarks = fmt.Sprintf("Insufficient leave balance. Available: %.1f, Requested: %.1f", balance.BalanceDays, lr.Days)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("request leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Save(ctx, lr); err != nil {
		s.logger.Error("request leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("request leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("request leave success",
		zap.String("leave_id", lr.ID.String()),
		zap.Int64("request_number", lr.RequestNumber),
		zap.String("employee_id", employeeID),
		zap.String("status", lr.Status),
	)

	return mapToResponse(*lr), nil
}

func (s *service) ApproveLeave(ctx context.Context, id string) (LeaveResponse, error) {
	// Critical section per request id: without it two concurrent approvals
	// could both load the request as PENDING and double-deduct the balance.
	unlock := s.locks.Lock(id)
	defer unlock()

	s.logger.Debug("approve leave requested", zap.String("leave_id", id))

	lr, err := s.loadPendingRequest(ctx, id)
	if err != nil {
		return LeaveResponse{}, err
	}

	year := lr.StartDate.Year()
	balance, err := s.balances.FindByEmployeeIDAndLeaveType(ctx, lr.EmployeeID, lr.LeaveType, year)
	if err != nil {
		s.logger.Error("approve leave balance lookup failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if balance == nil {
		return LeaveResponse{}, leaveerrors.ErrBalanceNotFound
	}
	if !balance.HasEnough(lr.Days) {
		// Request creation already gated on sufficiency; this is a safety net
		// against balances drained since then.
		s.logger.Warn("approve leave insufficient balance",
			zap.String("leave_id", id),
			zap.Float64("available", balance.BalanceDays),
			zap.Float64("requested", lr.Days),
		)
		return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("approve leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qBalances := s.balances.WithTx(tx)
	qRequests := s.repo.WithTx(tx)

	deducted, err := qBalances.DeductBalance(ctx, lr.EmployeeID, lr.LeaveType, year, lr.Days)
	if err != nil {
		s.logger.Error("approve leave deduct failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if !deducted {
		return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
	}

	transitioned, err := qRequests.UpdateStatus(ctx, id, StatusApproved, lr.Remarks)
	if err != nil {
		s.logger.Error("approve leave status update failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if !transitioned {
		return LeaveResponse{}, leaveerrors.ErrRequestNotPending
	}

	if s.outbox != nil {
		if err := s.enqueueApprovedEvent(ctx, tx, lr); err != nil {
			s.logger.Error("approve leave outbox enqueue failed", zap.String("leave_id", id), zap.Error(err))
			return LeaveResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("approve leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}

	s.invalidateBalancesCache(ctx, lr.EmployeeID)
	s.logger.Info("approve leave success",
		zap.String("leave_id", id),
		zap.String("employee_id", lr.EmployeeID),
		zap.Float64("days", lr.Days),
	)

	lr.Status = StatusApproved
	return mapToResponse(*lr), nil
}

func (s *service) RejectLeave(ctx context.Context, id, reason string) (LeaveResponse, error) {
	if reason == "" {
		return LeaveResponse{}, leaveerrors.ErrRejectionReasonRequired
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	s.logger.Debug("reject leave requested", zap.String("leave_id", id))

	lr, err := s.loadPendingRequest(ctx, id)
	if err != nil {
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("reject leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	transitioned, err := s.repo.WithTx(tx).UpdateStatus(ctx, id, StatusRejected, reason)
	if err != nil {
		s.logger.Error("reject leave status update failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	if !transitioned {
		return LeaveResponse{}, leaveerrors.ErrRequestNotPending
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("reject leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("reject leave success", zap.String("leave_id", id))

	lr.Status = StatusRejected
	lr.Remarks = reason
	return mapToResponse(*lr), nil
}

func (s *service) GetLeaveBalances(ctx context.Context, employeeID string) ([]BalanceResponse, error) {
	id, err := s.requireEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, balancesCacheKey(id)).Bytes(); err == nil {
			var resp []BalanceResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(balancesCacheKey(id), func() (any, error) {
		balances, err := s.balances.FindByEmployeeID(ctx, id)
		if err != nil {
			return nil, err
		}

		resp := make([]BalanceResponse, len(balances))
		for i, b := range balances {
			resp[i] = mapToBalanceResponse(b)
		}

		if s.rdb != nil {
			if payload, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, balancesCacheKey(id), payload, balancesCacheTTL)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]BalanceResponse), nil
}

func (s *service) GetLeaveHistory(ctx context.Context, employeeID string) ([]LeaveResponse, error) {
	id, err := s.requireEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	requests, err := s.repo.FindByEmployeeID(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) GetLeaveTypes(ctx context.Context) ([]LeaveTypeResponse, error) {
	types, err := s.types.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]LeaveTypeResponse, len(types))
	for i, lt := range types {
		resp[i] = LeaveTypeResponse{
			ID:             lt.ID.String(),
			Name:           lt.Name,
			DefaultBalance: lt.DefaultBalance,
		}
	}
	return resp, nil
}

func (s *service) requireEmployee(ctx context.Context, employeeID string) (string, error) {
	id, ok := employee.NormalizeID(employeeID)
	if !ok {
		return "", leaveerrors.ErrEmployeeNotFound
	}

	exists, err := s.employees.ExistsByID(ctx, id)
	if err != nil {
		s.logger.Error("employee existence check failed", zap.String("employee_id", id), zap.Error(err))
		return "", err
	}
	if !exists {
		return "", leaveerrors.ErrEmployeeNotFound
	}
	return id, nil
}

func (s *service) loadPendingRequest(ctx context.Context, id string) (*LeaveRequest, error) {
	lr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, leaveerrors.ErrRequestNotFound
		}
		s.logger.Error("load leave request failed", zap.String("leave_id", id), zap.Error(err))
		return nil, err
	}
	if lr.Status != StatusPending {
		s.logger.Warn("leave request not pending",
			zap.String("leave_id", id),
			zap.String("status", lr.Status),
		)
		return nil, leaveerrors.ErrRequestNotPending
	}
	return lr, nil
}

func (s *service) enqueueApprovedEvent(ctx context.Context, tx *sql.Tx, lr *LeaveRequest) error {
	payload, err := json.Marshal(events.LeaveApprovedEvent{
		EventType:  events.LeaveApprovedType,
		RequestID:  lr.ID.String(),
		EmployeeID: lr.EmployeeID,
		LeaveType:  lr.LeaveType,
		StartDate:  lr.StartDate.Format("2006-01-02"),
		EndDate:    lr.EndDate.Format("2006-01-02"),
		Days:       lr.Days,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		AggregateType: "leave_request",
		AggregateID:   lr.ID.String(),
		EventType:     events.LeaveApprovedType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) invalidateBalancesCache(ctx context.Context, employeeID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, balancesCacheKey(employeeID)).Err(); err != nil {
		s.logger.Warn("invalidate balances cache failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
	}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

// validateLeaveDates applies the date rules in order; the first violation
// wins. The two-weeks rule is stricter than the one-month rule, but both are
// checked so each produces its own message.
func validateLeaveDates(start, end time.Time) error {
	start = truncateToDate(start)
	end = truncateToDate(end)
	today := truncateToDate(time.Now().UTC())

	if start.After(end) {
		return leaveerrors.ErrStartAfterEnd
	}
	if start.Before(today) {
		return leaveerrors.ErrPastStartDate
	}
	if start.Equal(end) {
		return leaveerrors.ErrSameStartEnd
	}
	if isWeekend(start) || isWeekend(end) {
		return leaveerrors.ErrWeekendDates
	}
	if start.After(today.AddDate(0, 1, 0)) {
		return leaveerrors.ErrStartTooFarAheadMonth
	}
	if start.After(today.AddDate(0, 0, 14)) {
		return leaveerrors.ErrStartTooFarAheadWeeks
	}
	// 14 inclusive days is the maximum span, so the latest allowed end is
	// start + 13 days.
	if end.After(start.AddDate(0, 0, 13)) {
		return leaveerrors.ErrSpanTooLong
	}
	return nil
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
