package audit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode"
	"unicode/utf8"

	"barberbot/internal/model"
	"barberbot/internal/slots"
)

// Sheet names of the monthly workbook.
const (
	SheetAppointments = "Agendamentos"
	SheetFinancial    = "Financeiro"
)

var (
	appointmentColumns = []string{"ID", "Data", "Início", "Fim", "Cliente", "Telefone", "Serviço", "Preço", "Status", "Criado em"}
	financialColumns   = []string{"ID", "Data", "Tipo", "Categoria", "Valor", "Descrição"}
)

// Source provides the rows of a monthly export.
type Source interface {
	ListAppointmentsBetween(ctx context.Context, from, to string) ([]model.Appointment, error)
	ListFinancialRecords(ctx context.Context, from, to time.Time) ([]model.FinancialRecord, error)
}

// Exporter renders a month of data into a workbook.
type Exporter struct {
	source    Source
	newWriter func() ExcelWriter
	loc       *time.Location
}

// NewExporter creates an exporter. A nil writer factory uses excelize.
func NewExporter(source Source, newWriter func() ExcelWriter, loc *time.Location) *Exporter {
	if newWriter == nil {
		newWriter = NewExcelizeWriter
	}
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{source: source, newWriter: newWriter, loc: loc}
}

// Filename returns "<Mês>_<ano>.xlsx" for the month containing t.
func Filename(t time.Time) string {
	name := slots.MonthName(t.Month())
	r, size := utf8.DecodeRuneInString(name)
	return fmt.Sprintf("%c%s_%d.xlsx", unicode.ToUpper(r), name[size:], t.Year())
}

// Export writes the workbook for the month containing month and returns its
// file name and content.
func (e *Exporter) Export(ctx context.Context, month time.Time) (string, []byte, error) {
	month = month.In(e.loc)
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, e.loc)
	next := first.AddDate(0, 1, 0)
	last := next.AddDate(0, 0, -1)

	appointments, err := e.source.ListAppointmentsBetween(ctx, first.Format(slots.DateLayout), last.Format(slots.DateLayout))
	if err != nil {
		return "", nil, fmt.Errorf("list appointments: %w", err)
	}
	records, err := e.source.ListFinancialRecords(ctx, first, next.Add(-time.Millisecond))
	if err != nil {
		return "", nil, fmt.Errorf("list financial records: %w", err)
	}

	w := e.newWriter()
	defer w.Close()

	if err := e.writeAppointments(w, appointments); err != nil {
		return "", nil, err
	}
	if err := e.writeFinancial(w, records); err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return "", nil, fmt.Errorf("save workbook: %w", err)
	}
	return Filename(first), buf.Bytes(), nil
}

// ExportToFile writes the workbook into dir and returns its path.
func (e *Exporter) ExportToFile(ctx context.Context, month time.Time, dir string) (string, error) {
	name, data, err := e.Export(ctx, month)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func (e *Exporter) writeAppointments(w ExcelWriter, appointments []model.Appointment) error {
	if err := w.AddSheet(SheetAppointments); err != nil {
		return err
	}
	if err := w.WriteHeader(appointmentColumns); err != nil {
		return err
	}
	for _, a := range appointments {
		row := []any{
			a.ID, a.Date, a.Time, a.EndTime, a.ClientName, a.ClientPhone,
			a.ServiceName, a.Price, string(a.Status), a.CreatedAt.In(e.loc).Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeFinancial(w ExcelWriter, records []model.FinancialRecord) error {
	if err := w.AddSheet(SheetFinancial); err != nil {
		return err
	}
	if err := w.WriteHeader(financialColumns); err != nil {
		return err
	}
	// Records arrive newest first; the sheet reads chronologically.
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		row := []any{
			r.ID, r.Date.In(e.loc).Format("2006-01-02 15:04"), recordTypeLabel(r.Type),
			r.Category, r.Amount, r.Description,
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func recordTypeLabel(t model.RecordType) string {
	if t == model.RecordIncome {
		return "Entrada"
	}
	return "Saída"
}
