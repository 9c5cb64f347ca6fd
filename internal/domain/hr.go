package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Worker is an employee paid a fixed daily wage.
type Worker struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Role      string          `json:"role,omitempty"`
	DailyWage decimal.Decimal `json:"daily_wage"`
	Project   Project         `json:"project"`
	Active    bool            `json:"active"`
}

// Attendance records whether a worker showed up on a given day.
type Attendance struct {
	ID       int64     `json:"id"`
	WorkerID int64     `json:"worker_id"`
	Date     time.Time `json:"date"`
	Present  bool      `json:"present"`
}

// SalaryFor is the pay owed for a number of days present at a daily wage.
func SalaryFor(daysPresent int, dailyWage decimal.Decimal) decimal.Decimal {
	return dailyWage.Mul(decimal.NewFromInt(int64(daysPresent)))
}
