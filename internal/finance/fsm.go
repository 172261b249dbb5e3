// Package finance implements the owner's cash-flow entry dialog and report.
package finance

import (
	"context"
	"time"

	"barberbot/internal/model"
)

// State is the current step of a financial entry.
type State string

const (
	StateIdle                State = "idle"
	StateSelectingType       State = "selecting_type"
	StateSelectingCategory   State = "selecting_category"
	StateEnteringAmount      State = "entering_amount"
	StateEnteringDescription State = "entering_description"
	StateConfirming          State = "confirming"
	StateComplete            State = "complete"
	StateCanceled            State = "canceled"
)

var transitions = map[State][]State{
	StateIdle:                {StateSelectingType, StateSelectingCategory},
	StateSelectingType:       {StateSelectingCategory, StateCanceled},
	StateSelectingCategory:   {StateEnteringAmount, StateCanceled},
	StateEnteringAmount:      {StateEnteringDescription, StateCanceled},
	StateEnteringDescription: {StateConfirming, StateCanceled},
	StateConfirming:          {StateComplete, StateCanceled},
}

// CanTransition checks if moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is an owner's in-flight entry. Its age is tracked by the session
// store holding it.
type Session struct {
	Phone       string           `json:"phone"`
	State       State            `json:"state"`
	Type        model.RecordType `json:"type,omitempty"`
	Category    string           `json:"category,omitempty"`
	Amount      float64          `json:"amount,omitempty"`
	Description string           `json:"description,omitempty"`
}

// Result is the outcome of one owner message.
type Result struct {
	State   State
	Message string
	Done    bool
	Record  *model.FinancialRecord
}

// Store persists records and reads them back for reports.
type Store interface {
	InsertFinancialRecord(ctx context.Context, r *model.FinancialRecord) error
	// ListFinancialRecords returns records with from <= date <= to, newest first.
	ListFinancialRecords(ctx context.Context, from, to time.Time) ([]model.FinancialRecord, error)
}

// IncomeCategories are the suggested income categories.
var IncomeCategories = []string{
	"Corte de Cabelo",
	"Barba",
	"Corte + Barba",
	"Navalhado",
	"Coloração",
	"Hidratação",
	"Outro Serviço",
}

// ExpenseCategories are the suggested expense categories.
var ExpenseCategories = []string{
	"Produtos/Insumos",
	"Aluguel",
	"Contas (luz/água)",
	"Equipamentos",
	"Marketing",
	"Transporte",
	"Impostos",
	"Outro",
}

// Categories returns the list for t.
func Categories(t model.RecordType) []string {
	if t == model.RecordExpense {
		return ExpenseCategories
	}
	return IncomeCategories
}
