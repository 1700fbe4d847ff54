package employee

import (
	"time"
)

// Employee is keyed by the business id from the source spreadsheets
// (one letter followed by 3-6 digits, e.g. E001), not a surrogate uuid.
type Employee struct {
	ID         string `gorm:"type:varchar(10);primaryKey"`
	Name       string `gorm:"type:varchar(150);not null"`
	Department string `gorm:"type:varchar(100)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
