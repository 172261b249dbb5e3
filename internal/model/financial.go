package model

import (
	"time"

	"github.com/google/uuid"
)

// RecordType separates money coming in from money going out.
type RecordType string

const (
	RecordIncome  RecordType = "income"
	RecordExpense RecordType = "expense"
)

// FinancialRecord is an immutable cash-flow entry.
type FinancialRecord struct {
	ID            string     `json:"id"`
	Type          RecordType `json:"type"`
	Category      string     `json:"category"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	Date          time.Time  `json:"date"`
	AppointmentID string     `json:"appointment_id,omitempty"`
}

// NewFinancialRecord stamps a record with a fresh id.
func NewFinancialRecord(typ RecordType, category string, amount float64, description string, at time.Time) *FinancialRecord {
	return &FinancialRecord{
		ID:          uuid.New().String(),
		Type:        typ,
		Category:    category,
		Amount:      amount,
		Description: description,
		Date:        at,
	}
}

// Summary aggregates a set of records.
type Summary struct {
	Income  float64
	Expense float64
	Balance float64
}

// Summarize totals income and expense.
func Summarize(records []FinancialRecord) Summary {
	var s Summary
	for _, r := range records {
		switch r.Type {
		case RecordIncome:
			s.Income += r.Amount
		case RecordExpense:
			s.Expense += r.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}
