package leave

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type BalanceRepository interface {
	WithTx(tx *sql.Tx) BalanceRepository
	// FindByEmployeeIDAndLeaveType matches the type case-insensitively and
	// returns (nil, nil) when no balance row exists.
	FindByEmployeeIDAndLeaveType(ctx context.Context, employeeID, leaveType string, year int) (*LeaveBalance, error)
	FindByEmployeeID(ctx context.Context, employeeID string) ([]LeaveBalance, error)
	Save(ctx context.Context, b *LeaveBalance) error
	SaveAll(ctx context.Context, records []LeaveBalance) error
	// DeductBalance subtracts days from the matching row, guarded so the
	// balance can never go negative. Reports false when the guard refused.
	DeductBalance(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error)
}

type balanceRepository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) WithTx(tx *sql.Tx) BalanceRepository {
	return &balanceRepository{db: r.db, tx: tx}
}

func (r *balanceRepository) FindByEmployeeIDAndLeaveType(ctx context.Context, employeeID, leaveType string, year int) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("LOWER(leave_type) = LOWER(?)", leaveType).
		Where("year = ?", year).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *balanceRepository) FindByEmployeeID(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("leave_type ASC").
		Find(&balances).Error
	return balances, err
}

func (r *balanceRepository) Save(ctx context.Context, b *LeaveBalance) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// SaveAll upserts on (employee, leave type, year); re-ingestion overwrites
// the stored balance.
func (r *balanceRepository) SaveAll(ctx context.Context, records []LeaveBalance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "leave_type"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance_days", "last_updated"}),
		}).
		Create(&records).Error
}

// DeductBalance runs as raw SQL against the transaction when one is attached;
// the balance_days >= days predicate is the non-negativity guard.
func (r *balanceRepository) DeductBalance(ctx context.Context, employeeID, leaveType string, year int, days float64) (bool, error) {
	const query = `
		UPDATE leave_balances
		SET balance_days = balance_days - $4, last_updated = NOW()
		WHERE employee_id = $1 AND LOWER(leave_type) = LOWER($2) AND year = $3
			AND balance_days >= $4
	`

	res, err := r.execer().ExecContext(ctx, query, employeeID, leaveType, year, days)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *balanceRepository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	db, err := r.db.DB()
	if err != nil {
		return failingExecer{err: err}
	}
	return db
}
