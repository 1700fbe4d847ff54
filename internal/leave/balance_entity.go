package leave

import (
	"time"

	"github.com/google/uuid"
)

// LeaveBalance holds one row per (employee, leave type, year). BalanceDays
// never goes negative; deductions are guarded at the store level.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID  string    `gorm:"type:varchar(10);not null;uniqueIndex:uq_leave_balance_scope"`
	LeaveType   string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_leave_balance_scope"`
	BalanceDays float64   `gorm:"type:numeric(5,1);not null;default:0"`
	Year        int       `gorm:"not null;uniqueIndex:uq_leave_balance_scope"`
	LastUpdated time.Time `gorm:"not null"`
}

// HasEnough reports whether the balance covers the requested days.
func (b *LeaveBalance) HasEnough(days float64) bool {
	return b.BalanceDays >= days
}
