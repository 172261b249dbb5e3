package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"barberbot/internal/markdown"
	"barberbot/internal/model"
	"barberbot/internal/slots"
)

const recentLimit = 10

func typeLabel(t model.RecordType) string {
	if t == model.RecordExpense {
		return "SAÍDA"
	}
	return "ENTRADA"
}

func typeEmoji(t model.RecordType) string {
	if t == model.RecordExpense {
		return "💸"
	}
	return "💵"
}

// FormatCategories renders the numbered category menu for t.
func FormatCategories(t model.RecordType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *CATEGORIA DE %s*\n\n", typeEmoji(t), typeLabel(t))
	for i, c := range Categories(t) {
		fmt.Fprintf(&b, "*%d* - %s\n", i+1, c)
	}
	b.WriteString("\n*0* - Cancelar")
	return b.String()
}

// FormatConfirmation summarizes an entry before it is saved.
func FormatConfirmation(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *CONFIRMAR %s*\n\n", typeEmoji(s.Type), typeLabel(s.Type))
	fmt.Fprintf(&b, "📂 Categoria: %s\n", s.Category)
	fmt.Fprintf(&b, "💰 Valor: R$ %.2f\n", s.Amount)
	if s.Description != "" {
		fmt.Fprintf(&b, "📝 Descrição: %s\n", markdown.Escape(s.Description))
	}
	b.WriteString("\nDigite *confirmar* para salvar ou *cancelar* para cancelar.")
	return b.String()
}

// FormatSaved acknowledges a stored record.
func FormatSaved(r *model.FinancialRecord) string {
	return fmt.Sprintf("%s *%s REGISTRADA!*\n\n📂 Categoria: %s\n💰 Valor: R$ %.2f\n\nRegistro salvo com sucesso!",
		typeEmoji(r.Type), typeLabel(r.Type), r.Category, r.Amount)
}

func writeSummary(b *strings.Builder, title string, s model.Summary) {
	fmt.Fprintf(b, "📊 *%s:*\n", title)
	fmt.Fprintf(b, "💵 Entradas: R$ %.2f\n", s.Income)
	fmt.Fprintf(b, "💸 Saídas: R$ %.2f\n", s.Expense)
	fmt.Fprintf(b, "📊 Saldo: R$ %.2f\n\n", s.Balance)
}

// Report builds the week and month summary with the latest transactions.
// Weeks start on Sunday.
func (h *Handler) Report(ctx context.Context) (string, error) {
	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)

	week, err := h.store.ListFinancialRecords(ctx, weekStart, now)
	if err != nil {
		return "", fmt.Errorf("list week records: %w", err)
	}
	month, err := h.store.ListFinancialRecords(ctx, monthStart, now)
	if err != nil {
		return "", fmt.Errorf("list month records: %w", err)
	}
	recent, err := h.store.ListFinancialRecords(ctx, now.Add(-7*24*time.Hour), now)
	if err != nil {
		return "", fmt.Errorf("list recent records: %w", err)
	}

	var b strings.Builder
	b.WriteString("💰 *RELATÓRIO FINANCEIRO*\n\n")
	fmt.Fprintf(&b, "*HOJE:* %s\n\n", slots.FormatDate(today.Format(slots.DateLayout)))
	writeSummary(&b, "ESTA SEMANA", model.Summarize(week))
	writeSummary(&b, "ESTE MÊS", model.Summarize(month))

	if len(recent) > 0 {
		b.WriteString("🕐 *ÚLTIMAS TRANSAÇÕES:*\n")
		if len(recent) > recentLimit {
			recent = recent[:recentLimit]
		}
		for _, r := range recent {
			date := r.Date.In(h.loc).Format(slots.DateLayout)
			fmt.Fprintf(&b, "%s %s - %s: R$ %.2f\n", typeEmoji(r.Type), slots.FormatDate(date), r.Category, r.Amount)
		}
	}

	b.WriteString("\n📝 *COMANDOS:*\n")
	b.WriteString("• *entrada* - Registrar entrada\n")
	b.WriteString("• *saída* - Registrar saída\n")
	b.WriteString("• *lançamento* - Escolher o tipo\n")
	b.WriteString("• *finanças* - Ver este relatório")
	return b.String(), nil
}

// MonthSummary totals the current calendar month.
func (h *Handler) MonthSummary(ctx context.Context) (model.Summary, error) {
	now := h.now().In(h.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
	records, err := h.store.ListFinancialRecords(ctx, monthStart, now)
	if err != nil {
		return model.Summary{}, fmt.Errorf("list month records: %w", err)
	}
	return model.Summarize(records), nil
}
