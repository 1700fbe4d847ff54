package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindByEmployeeID(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	FindByStatus(ctx context.Context, status string) ([]LeaveRequest, error)
	// FindOverlappingRequests returns non-rejected requests whose inclusive
	// date range intersects [start, end].
	FindOverlappingRequests(ctx context.Context, employeeID string, start, end time.Time) ([]LeaveRequest, error)
	Save(ctx context.Context, lr *LeaveRequest) error
	SaveAll(ctx context.Context, records []LeaveRequest) error
	// UpdateStatus transitions a request out of PENDING. It reports false
	// when the request was not pending anymore, without modifying anything.
	UpdateStatus(ctx context.Context, id, status, remarks string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.db.WithContext(ctx).First(&lr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *repository) FindByEmployeeID(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) FindByStatus(ctx context.Context, status string) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) FindOverlappingRequests(ctx context.Context, employeeID string, start, end time.Time) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("status <> ?", StatusRejected).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Find(&requests).Error
	return requests, err
}

// Save inserts or updates based on identity presence.
func (r *repository) Save(ctx context.Context, lr *LeaveRequest) error {
	return r.db.WithContext(ctx).Save(lr).Error
}

func (r *repository) SaveAll(ctx context.Context, records []LeaveRequest) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "employee_id"}, {Name: "leave_type"},
				{Name: "start_date"}, {Name: "end_date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"days", "status", "remarks", "updated_at",
			}),
		}).
		Create(&records).Error
}

// UpdateStatus runs as raw SQL against the transaction when one is attached,
// so the status flip commits together with the balance deduction.
func (r *repository) UpdateStatus(ctx context.Context, id, status, remarks string) (bool, error) {
	const query = `
		UPDATE leave_requests
		SET status = $2, remarks = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	res, err := r.execer().ExecContext(ctx, query, id, status, remarks, StatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *repository) execer() interface {
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

type failingExecer struct{ err error }

func (f failingExecer) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, f.err
}

// IsNotFound reports whether err is the store's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
