package leavetype

import (
	"time"

	"github.com/google/uuid"
)

// Seeded names: Sick, Casual, Paid. Name is unique case-insensitively.
type LeaveType struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_leave_type_name"`
	DefaultBalance float64   `gorm:"type:numeric(5,1);not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
