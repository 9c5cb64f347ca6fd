package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseCategorySalary    ExpenseCategory = "SALARIO"
	ExpenseCategoryMaterial  ExpenseCategory = "MATERIAL"
	ExpenseCategoryTransport ExpenseCategory = "TRANSPORTE"
	ExpenseCategoryMachinery ExpenseCategory = "MAQUINARIA"
	ExpenseCategoryAdmin     ExpenseCategory = "ADMIN"
	ExpenseCategoryOther     ExpenseCategory = "OTRO"
)

// ValidExpenseCategory reports whether c is one of the known categories.
func ValidExpenseCategory(c ExpenseCategory) bool {
	switch c {
	case ExpenseCategorySalary, ExpenseCategoryMaterial, ExpenseCategoryTransport,
		ExpenseCategoryMachinery, ExpenseCategoryAdmin, ExpenseCategoryOther:
		return true
	}
	return false
}

// Project identifies which side of the business an expense or worker
// belongs to.
type Project string

const (
	ProjectConstruction Project = "CONSTRUCTORA"
	ProjectBlockFactory Project = "BLOQUERA"
)

func ValidProject(p Project) bool {
	return p == ProjectConstruction || p == ProjectBlockFactory
}

// Expense is an operating or salary expense.
type Expense struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Project     Project         `json:"project"`
}
