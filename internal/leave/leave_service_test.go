package leave_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-leave/internal/employee"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/leavetype"
	"go-leave/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveRepository struct {
	mu              sync.Mutex
	withTxFn        func(tx *sql.Tx) leave.Repository
	findByIDFn      func(ctx context.Context, id string) (*leave.LeaveRequest, error)
	findByEmpFn     func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error)
	findByStatusFn  func(ctx context.Context, status string) ([]leave.LeaveRequest, error)
	findOverlapFn   func(ctx context.Context, employeeID string, start, end time.Time) ([]leave.LeaveRequest, error)
	saveFn          func(ctx context.Context, lr *leave.LeaveRequest) error
	saveAllFn       func(ctx context.Context, records []leave.LeaveRequest) error
	updateStatusFn  func(ctx context.Context, id, status, remarks string) (bool, error)
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) FindByEmployeeID(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	if f.findByEmpFn != nil {
		return f.findByEmpFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindByStatus(ctx context.Context, status string) ([]leave.LeaveRequest, error) {
	if f.findByStatusFn != nil {
		return f.findByStatusFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindOverlappingRequests(ctx context.Context, employeeID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	if f.findOverlapFn != nil {
		return f.findOverlapFn(ctx, employeeID, start, end)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) Save(ctx context.Context, lr *leave.LeaveRequest) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, lr)
	}
	return nil
}

func (f *fakeLeaveRepository) SaveAll(ctx context.Context, records []leave.LeaveRequest) error {
	if f.saveAllFn != nil {
		return f.saveAllFn(ctx, records)
	}
	return nil
}

func (f *fakeLeaveRepository) UpdateStatus(ctx context.Context, id, status, remarks string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status, remarks)
	}
	return true, nil
}

type fakeBalanceRepository struct {
	withTxFn        func(tx *sql.Tx) leave.BalanceRepository
	findByEmpTypeFn func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error)
	findByEmpFn     func(ctx context.Context, employeeID string) ([]leave.LeaveBalance, error)
	saveFn          func(ctx context.Context, b *leave.LeaveBalance) error
	saveAllFn       func(ctx context.Context, records []leave.LeaveBalance) error
	deductFn        func(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error)
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) leave.BalanceRepository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeBalanceRepository) FindByEmployeeIDAndLeaveType(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
	if f.findByEmpTypeFn != nil {
		return f.findByEmpTypeFn(ctx, employeeID, leaveType, year)
	}
	return nil, nil
}

func (f *fakeBalanceRepository) FindByEmployeeID(ctx context.Context, employeeID string) ([]leave.LeaveBalance, error) {
	if f.findByEmpFn != nil {
		return f.findByEmpFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeBalanceRepository) Save(ctx context.Context, b *leave.LeaveBalance) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) SaveAll(ctx context.Context, records []leave.LeaveBalance) error {
	if f.saveAllFn != nil {
		return f.saveAllFn(ctx, records)
	}
	return nil
}

func (f *fakeBalanceRepository) DeductBalance(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error) {
	if f.deductFn != nil {
		return f.deductFn(ctx, employeeID, leaveType, year, days)
	}
	return true, nil
}

type fakeEmployeeRepository struct {
	existsByIDFn func(ctx context.Context, id string) (bool, error)
}

func (f *fakeEmployeeRepository) WithTx(tx *sql.Tx) employee.Repository { return f }

func (f *fakeEmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	if f.existsByIDFn != nil {
		return f.existsByIDFn(ctx, id)
	}
	return true, nil
}

func (f *fakeEmployeeRepository) FindAll(ctx context.Context) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepository) Save(ctx context.Context, e *employee.Employee) error { return nil }

func (f *fakeEmployeeRepository) SaveAll(ctx context.Context, records []employee.Employee) error {
	return nil
}

type fakeLeaveTypeRepository struct {
	findByNameFn func(ctx context.Context, name string) (*leavetype.LeaveType, error)
	findAllFn    func(ctx context.Context) ([]leavetype.LeaveType, error)
}

func (f *fakeLeaveTypeRepository) FindByID(ctx context.Context, id string) (*leavetype.LeaveType, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveTypeRepository) FindByName(ctx context.Context, name string) (*leavetype.LeaveType, error) {
	if f.findByNameFn != nil {
		return f.findByNameFn(ctx, name)
	}
	return &leavetype.LeaveType{ID: uuid.New(), Name: name, DefaultBalance: 10}, nil
}

func (f *fakeLeaveTypeRepository) FindAll(ctx context.Context) ([]leavetype.LeaveType, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeLeaveTypeRepository) Save(ctx context.Context, lt *leavetype.LeaveType) error {
	return nil
}

func (f *fakeLeaveTypeRepository) SaveAll(ctx context.Context, records []leavetype.LeaveType) error {
	return nil
}

type fakeCounterRepository struct {
	mu   sync.Mutex
	next int64
}

func (f *fakeCounterRepository) GetNextValue(ctx context.Context, counterType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next, nil
}

type fakeOutboxRepository struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type leaveServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   leave.Service
	repo      *fakeLeaveRepository
	balances  *fakeBalanceRepository
	employees *fakeEmployeeRepository
	types     *fakeLeaveTypeRepository
	outbox    *fakeOutboxRepository
}

func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLeaveRepository{}
	balances := &fakeBalanceRepository{}
	employees := &fakeEmployeeRepository{}
	types := &fakeLeaveTypeRepository{}
	outbox := &fakeOutboxRepository{}
	svc := leave.NewServiceWithOutbox(db, repo, balances, employees, types, &fakeCounterRepository{}, outbox, nil)

	return &leaveServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		balances:  balances,
		employees: employees,
		types:     types,
		outbox:    outbox,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func weekdayOnOrAfter(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func nextWeekdayOf(t time.Time, day time.Weekday) time.Time {
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func TestLeaveService_RequestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		end := weekdayOnOrAfter(start.AddDate(0, 0, 1))

		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			assert.Equal(t, "E001", employeeID)
			assert.Equal(t, "Casual", leaveType)
			assert.Equal(t, start.Year(), year)
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 10, Year: year}, nil
		}
		deps.repo.saveFn = func(ctx context.Context, lr *leave.LeaveRequest) error {
			assert.Equal(t, "E001", lr.EmployeeID)
			assert.Equal(t, "Casual", lr.LeaveType)
			assert.Equal(t, leave.StatusPending, lr.Status)
			assert.Equal(t, "None", lr.Remarks)
			assert.Equal(t, leave.InclusiveDays(start, end), lr.Days)
			assert.Equal(t, int64(1), lr.RequestNumber)
			return nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Equal(t, "E001", resp.EmployeeID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative unknown employee", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.employees.existsByIDFn = func(ctx context.Context, id string) (bool, error) {
			return false, nil
		}

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		_, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E999",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(start.AddDate(0, 0, 1)),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrEmployeeNotFound)
	})

	t.Run("negative unknown leave type", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.types.findByNameFn = func(ctx context.Context, name string) (*leavetype.LeaveType, error) {
			return nil, nil
		}

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		_, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Sabbatical",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(start.AddDate(0, 0, 1)),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrUnknownLeaveType)
	})

	t.Run("negative malformed date", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  "06-01-2025",
			EndDate:    "2025-01-08",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidDateFormat)
	})

	t.Run("negative overlapping request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		end := weekdayOnOrAfter(start.AddDate(0, 0, 1))

		deps.repo.findOverlapFn = func(ctx context.Context, employeeID string, s, e time.Time) ([]leave.LeaveRequest, error) {
			assert.Equal(t, "E001", employeeID)
			return []leave.LeaveRequest{{ID: uuid.New(), Status: leave.StatusPending}}, nil
		}

		_, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrOverlappingRequest)
	})

	t.Run("insufficient balance records rejected request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		end := weekdayOnOrAfter(start.AddDate(0, 0, 1))
		days := leave.InclusiveDays(start, end)

		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: days - 1, Year: year}, nil
		}

		var saved *leave.LeaveRequest
		deps.repo.saveFn = func(ctx context.Context, lr *leave.LeaveRequest) error {
			saved = lr
			return nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})

		assert.NoError(t, err)
		assert.NotNil(t, saved)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.Contains(t, resp.Remarks, "Insufficient leave balance")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("missing balance records rejected request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		start := weekdayOnOrAfter(today().AddDate(0, 0, 1))
		end := weekdayOnOrAfter(start.AddDate(0, 0, 1))

		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return nil, nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.Contains(t, resp.Remarks, "No leave balance found")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLeaveService_RequestLeave_DateRules(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, start, end time.Time) error {
		t.Helper()
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})
		return err
	}

	t.Run("start after end", func(t *testing.T) {
		err := run(t, today().AddDate(0, 0, 5), today().AddDate(0, 0, 3))
		assert.ErrorIs(t, err, leaveerrors.ErrStartAfterEnd)
	})

	t.Run("start in the past", func(t *testing.T) {
		err := run(t, today().AddDate(0, 0, -7), today().AddDate(0, 0, -5))
		assert.ErrorIs(t, err, leaveerrors.ErrPastStartDate)
	})

	t.Run("start equals end", func(t *testing.T) {
		d := today().AddDate(0, 0, 1)
		err := run(t, d, d)
		assert.ErrorIs(t, err, leaveerrors.ErrSameStartEnd)
	})

	t.Run("start on weekend", func(t *testing.T) {
		saturday := nextWeekdayOf(today().AddDate(0, 0, 1), time.Saturday)
		err := run(t, saturday, saturday.AddDate(0, 0, 2))
		assert.ErrorIs(t, err, leaveerrors.ErrWeekendDates)
	})

	t.Run("start beyond one month", func(t *testing.T) {
		start := weekdayOnOrAfter(today().AddDate(0, 1, 7))
		err := run(t, start, weekdayOnOrAfter(start.AddDate(0, 0, 1)))
		assert.ErrorIs(t, err, leaveerrors.ErrStartTooFarAheadMonth)
	})

	t.Run("start beyond two weeks", func(t *testing.T) {
		start := weekdayOnOrAfter(today().AddDate(0, 0, 16))
		err := run(t, start, weekdayOnOrAfter(start.AddDate(0, 0, 1)))
		assert.ErrorIs(t, err, leaveerrors.ErrStartTooFarAheadWeeks)
	})

	t.Run("fourteen day span allowed", func(t *testing.T) {
		// Tuesday start keeps both ends off the weekend for a 14-day span.
		start := nextWeekdayOf(today().AddDate(0, 0, 1), time.Tuesday)
		end := start.AddDate(0, 0, 13)

		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 20, Year: year}, nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.RequestLeave(ctx, leave.CreateLeaveRequest{
			EmployeeID: "E001",
			LeaveType:  "Casual",
			StartDate:  fmtDate(start),
			EndDate:    fmtDate(end),
		})

		assert.NoError(t, err)
		assert.Equal(t, float64(14), resp.Days)
		assert.Equal(t, leave.StatusPending, resp.Status)
	})

	t.Run("fifteen day span rejected", func(t *testing.T) {
		start := nextWeekdayOf(today().AddDate(0, 0, 1), time.Tuesday)
		err := run(t, start, start.AddDate(0, 0, 14))
		assert.ErrorIs(t, err, leaveerrors.ErrSpanTooLong)
	})
}

func TestLeaveService_ApproveLeave(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	pendingRequest := func(days float64) *leave.LeaveRequest {
		return &leave.LeaveRequest{
			ID:            id,
			RequestNumber: 7,
			EmployeeID:    "E001",
			LeaveType:     "Casual",
			StartDate:     time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			EndDate:       time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			Days:          days,
			Status:        leave.StatusPending,
			Remarks:       "None",
		}
	}

	t.Run("success deducts exactly requested days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			assert.Equal(t, id.String(), got)
			return pendingRequest(2), nil
		}
		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			assert.Equal(t, 2026, year)
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 5, Year: year}, nil
		}
		var deductedDays float64
		deps.balances.deductFn = func(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error) {
			deductedDays = days
			return true, nil
		}
		var statusSet string
		deps.repo.updateStatusFn = func(ctx context.Context, got, status, remarks string) (bool, error) {
			statusSet = status
			return true, nil
		}
		var event kafka.OutboxEvent
		deps.outbox.createFn = func(ctx context.Context, e kafka.OutboxEvent) error {
			event = e
			return nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.ApproveLeave(ctx, id.String())

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Equal(t, float64(2), deductedDays)
		assert.Equal(t, leave.StatusApproved, statusSet)
		assert.Equal(t, "leave.approved", event.EventType)
		assert.Equal(t, id.String(), event.AggregateID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative request not found", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.ApproveLeave(ctx, uuid.New().String())

		assert.ErrorIs(t, err, leaveerrors.ErrRequestNotFound)
	})

	t.Run("negative request not pending", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			lr := pendingRequest(2)
			lr.Status = leave.StatusApproved
			return lr, nil
		}

		_, err := deps.service.ApproveLeave(ctx, id.String())

		assert.ErrorIs(t, err, leaveerrors.ErrRequestNotPending)
	})

	t.Run("negative balance missing", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			return pendingRequest(2), nil
		}
		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return nil, nil
		}

		_, err := deps.service.ApproveLeave(ctx, id.String())

		assert.ErrorIs(t, err, leaveerrors.ErrBalanceNotFound)
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			return pendingRequest(5), nil
		}
		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 3, Year: year}, nil
		}

		_, err := deps.service.ApproveLeave(ctx, id.String())

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
	})

	t.Run("negative guarded deduction refused", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			return pendingRequest(2), nil
		}
		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 5, Year: year}, nil
		}
		deps.balances.deductFn = func(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error) {
			return false, nil
		}

		expectTx(t, deps.sqlMock, false)
		_, err := deps.service.ApproveLeave(ctx, id.String())

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("concurrent approvals deduct once", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		status := leave.StatusPending
		deductions := 0

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			lr := pendingRequest(2)
			lr.Status = status
			return lr, nil
		}
		deps.balances.findByEmpTypeFn = func(ctx context.Context, employeeID, leaveType string, year int) (*leave.LeaveBalance, error) {
			return &leave.LeaveBalance{EmployeeID: employeeID, LeaveType: leaveType, BalanceDays: 5, Year: year}, nil
		}
		deps.balances.deductFn = func(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error) {
			deductions++
			return true, nil
		}
		deps.repo.updateStatusFn = func(ctx context.Context, got, newStatus, remarks string) (bool, error) {
			if status != leave.StatusPending {
				return false, nil
			}
			status = newStatus
			return true, nil
		}

		// Only the winner reaches the transaction; the loser fails the
		// pending check first.
		expectTx(t, deps.sqlMock, true)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = deps.service.ApproveLeave(ctx, id.String())
			}(i)
		}
		wg.Wait()

		approvals := 0
		for _, err := range errs {
			if err == nil {
				approvals++
			} else {
				assert.ErrorIs(t, err, leaveerrors.ErrRequestNotPending)
			}
		}
		assert.Equal(t, 1, approvals)
		assert.Equal(t, 1, deductions)
		assert.Equal(t, leave.StatusApproved, status)
	})
}

func TestLeaveService_RejectLeave(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			return &leave.LeaveRequest{
				ID:         id,
				EmployeeID: "E001",
				LeaveType:  "Sick",
				StartDate:  time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
				EndDate:    time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC),
				Days:       2,
				Status:     leave.StatusPending,
			}, nil
		}
		var gotRemarks string
		deps.repo.updateStatusFn = func(ctx context.Context, got, status, remarks string) (bool, error) {
			assert.Equal(t, leave.StatusRejected, status)
			gotRemarks = remarks
			return true, nil
		}

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.RejectLeave(ctx, id.String(), "Project deadline")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.Equal(t, "Project deadline", gotRemarks)
		assert.Equal(t, "Project deadline", resp.Remarks)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative empty reason", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.RejectLeave(ctx, id.String(), "")

		assert.ErrorIs(t, err, leaveerrors.ErrRejectionReasonRequired)
	})

	t.Run("negative not pending", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, got string) (*leave.LeaveRequest, error) {
			return &leave.LeaveRequest{ID: id, Status: leave.StatusRejected}, nil
		}

		_, err := deps.service.RejectLeave(ctx, id.String(), "Too late")

		assert.ErrorIs(t, err, leaveerrors.ErrRequestNotPending)
	})
}

func TestLeaveService_GetLeaveBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("success without cache", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		updated := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		deps.balances.findByEmpFn = func(ctx context.Context, employeeID string) ([]leave.LeaveBalance, error) {
			assert.Equal(t, "E001", employeeID)
			return []leave.LeaveBalance{
				{EmployeeID: "E001", LeaveType: "Casual", BalanceDays: 3, Year: 2026, LastUpdated: updated},
				{EmployeeID: "E001", LeaveType: "Sick", BalanceDays: 7, Year: 2026, LastUpdated: updated},
			}, nil
		}

		resp, err := deps.service.GetLeaveBalances(ctx, "E001")

		assert.NoError(t, err)
		assert.Len(t, resp, 2)
		assert.Equal(t, "Casual", resp[0].LeaveType)
		assert.Equal(t, float64(3), resp[0].BalanceDays)
	})

	t.Run("cache miss populates redis", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		rdb, redisMock := redismock.NewClientMock()
		balances := &fakeBalanceRepository{}
		svc := leave.NewService(db, &fakeLeaveRepository{}, balances, &fakeEmployeeRepository{}, &fakeLeaveTypeRepository{}, &fakeCounterRepository{}, rdb)

		updated := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		balances.findByEmpFn = func(ctx context.Context, employeeID string) ([]leave.LeaveBalance, error) {
			return []leave.LeaveBalance{
				{EmployeeID: "E001", LeaveType: "Paid", BalanceDays: 12, Year: 2026, LastUpdated: updated},
			}, nil
		}

		expected, err := json.Marshal([]leave.BalanceResponse{
			{EmployeeID: "E001", LeaveType: "Paid", BalanceDays: 12, Year: 2026, LastUpdated: updated.Format(time.RFC3339)},
		})
		assert.NoError(t, err)

		redisMock.ExpectGet("leave:balances:E001").RedisNil()
		redisMock.ExpectSet("leave:balances:E001", expected, time.Minute).SetVal("OK")

		resp, err := svc.GetLeaveBalances(ctx, "E001")

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "Paid", resp[0].LeaveType)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("negative unknown employee", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.employees.existsByIDFn = func(ctx context.Context, id string) (bool, error) {
			return false, nil
		}

		_, err := deps.service.GetLeaveBalances(ctx, "E404")

		assert.ErrorIs(t, err, leaveerrors.ErrEmployeeNotFound)
	})
}

func TestLeaveService_GetLeaveHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByEmpFn = func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
			return []leave.LeaveRequest{
				{
					ID:         uuid.New(),
					EmployeeID: employeeID,
					LeaveType:  "Casual",
					StartDate:  time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
					EndDate:    time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
					Days:       2,
					Status:     leave.StatusApproved,
				},
			}, nil
		}

		resp, err := deps.service.GetLeaveHistory(ctx, "E001")

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Equal(t, "2026-02-02", resp[0].StartDate)
		assert.Equal(t, leave.StatusApproved, resp[0].Status)
	})

	t.Run("negative repo error", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByEmpFn = func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
			return nil, errors.New("db error")
		}

		_, err := deps.service.GetLeaveHistory(ctx, "E001")

		assert.Error(t, err)
	})
}

func TestLeaveService_GetLeaveTypes(t *testing.T) {
	ctx := context.Background()

	deps := setupLeaveServiceTest(t)
	defer deps.db.Close()

	deps.types.findAllFn = func(ctx context.Context) ([]leavetype.LeaveType, error) {
		return []leavetype.LeaveType{
			{ID: uuid.New(), Name: "Casual", DefaultBalance: 10},
			{ID: uuid.New(), Name: "Sick", DefaultBalance: 12},
		}, nil
	}

	resp, err := deps.service.GetLeaveTypes(ctx)

	assert.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, "Casual", resp[0].Name)
	assert.Equal(t, float64(12), resp[1].DefaultBalance)
}
