package finance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"barberbot/internal/model"
)

const (
	msgCanceled        = "❌ Operação cancelada."
	msgInvalidType     = "❌ Opção inválida. Digite *1* para entrada ou *2* para saída:"
	msgInvalidCategory = "❌ Opção inválida. Digite o número da categoria:"
	msgInvalidAmount   = "❌ Valor inválido. Digite um número positivo:"
	msgAskDescription  = "📝 *DESCRIÇÃO*\n\nOpcional: Digite uma descrição ou *pular* para continuar:"
	msgChooseType      = "💰 *NOVO LANÇAMENTO*\n\n*1* - 💵 Entrada\n*2* - 💸 Saída\n\n*0* - Cancelar"

	// MsgExpired is sent when an entry outlived its session.
	MsgExpired = "❌ Sessão expirada. Por favor, tente novamente."

	skipToken = "pular"
)

var (
	cancelTokens  = map[string]bool{"0": true, "cancelar": true, "cancel": true}
	confirmTokens = map[string]bool{"confirmar": true, "sim": true, "s": true}
)

// Handler drives financial entry sessions.
type Handler struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// NewHandler creates a handler. now may be nil for the wall clock.
func NewHandler(store Store, loc *time.Location, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{store: store, now: now, loc: loc}
}

// Start opens an entry of a known type at the category menu.
func (h *Handler) Start(phone string, t model.RecordType) (*Session, Result) {
	s := &Session{Phone: phone, State: StateSelectingCategory, Type: t}
	return s, Result{State: s.State, Message: FormatCategories(t)}
}

// StartWithTypeChoice opens an entry that first asks income or expense.
func (h *Handler) StartWithTypeChoice(phone string) (*Session, Result) {
	s := &Session{Phone: phone, State: StateSelectingType}
	return s, Result{State: s.State, Message: msgChooseType}
}

// HandleInput advances s with one owner message.
func (h *Handler) HandleInput(ctx context.Context, s *Session, input string) (Result, error) {
	input = strings.TrimSpace(input)
	command := strings.ToLower(input)

	if cancelTokens[command] {
		return h.cancel(s), nil
	}

	switch s.State {
	case StateSelectingType:
		return h.handleType(s, command)
	case StateSelectingCategory:
		return h.handleCategory(s, command)
	case StateEnteringAmount:
		return h.handleAmount(s, command)
	case StateEnteringDescription:
		return h.handleDescription(s, input)
	case StateConfirming:
		if confirmTokens[command] {
			return h.commit(ctx, s)
		}
		return h.cancel(s), nil
	default:
		return Result{}, fmt.Errorf("unknown financial state: %s", s.State)
	}
}

func (h *Handler) move(s *Session, to State) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("financial transition %s -> %s not allowed", s.State, to)
	}
	s.State = to
	return nil
}

func (h *Handler) cancel(s *Session) Result {
	s.State = StateCanceled
	return Result{State: StateCanceled, Message: msgCanceled, Done: true}
}

func (h *Handler) handleType(s *Session, command string) (Result, error) {
	switch command {
	case "1", "entrada", "receita":
		s.Type = model.RecordIncome
	case "2", "saída", "saida", "despesa":
		s.Type = model.RecordExpense
	default:
		return Result{State: s.State, Message: msgInvalidType}, nil
	}
	if err := h.move(s, StateSelectingCategory); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatCategories(s.Type)}, nil
}

func (h *Handler) handleCategory(s *Session, command string) (Result, error) {
	categories := Categories(s.Type)
	i, err := strconv.Atoi(command)
	if err != nil || i < 1 || i > len(categories) {
		return Result{State: s.State, Message: msgInvalidCategory + "\n\n" + FormatCategories(s.Type)}, nil
	}
	s.Category = categories[i-1]
	if err := h.move(s, StateEnteringAmount); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: fmt.Sprintf("💰 *VALOR DA %s*\n\nDigite o valor (apenas números):\n\nEx: 50.00", typeLabel(s.Type))}, nil
}

func (h *Handler) handleAmount(s *Session, command string) (Result, error) {
	amount, ok := ParseAmount(command)
	if !ok {
		return Result{State: s.State, Message: msgInvalidAmount}, nil
	}
	s.Amount = amount
	if err := h.move(s, StateEnteringDescription); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: msgAskDescription}, nil
}

func (h *Handler) handleDescription(s *Session, input string) (Result, error) {
	if strings.EqualFold(input, skipToken) {
		input = ""
	}
	s.Description = input
	if err := h.move(s, StateConfirming); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatConfirmation(s)}, nil
}

func (h *Handler) commit(ctx context.Context, s *Session) (Result, error) {
	record := model.NewFinancialRecord(s.Type, s.Category, s.Amount, s.Description, h.now())
	if err := h.store.InsertFinancialRecord(ctx, record); err != nil {
		return Result{}, fmt.Errorf("insert financial record: %w", err)
	}
	if err := h.move(s, StateComplete); err != nil {
		return Result{}, err
	}
	return Result{State: s.State, Message: FormatSaved(record), Done: true, Record: record}, nil
}

// ParseAmount reads a positive decimal written with either a comma or a
// period as the fractional separator. The result is rounded to cents.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "r$")
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	v = math.Round(v*100) / 100
	if v <= 0 {
		return 0, false
	}
	return v, true
}
