package audit

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"barberbot/internal/model"
)

type fakeSource struct {
	apts    []model.Appointment
	records []model.FinancialRecord
	aptFrom string
	aptTo   string
	err     error
}

func (f *fakeSource) ListAppointmentsBetween(_ context.Context, from, to string) ([]model.Appointment, error) {
	f.aptFrom, f.aptTo = from, to
	return f.apts, f.err
}

func (f *fakeSource) ListFinancialRecords(_ context.Context, _, _ time.Time) ([]model.FinancialRecord, error) {
	return f.records, nil
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Março_2026.xlsx", Filename(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Janeiro_2027.xlsx", Filename(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestExport_Workbook(t *testing.T) {
	src := &fakeSource{
		apts: []model.Appointment{{
			ID: "apt_1", Date: "2026-02-10", Time: "09:00", EndTime: "09:45",
			ClientName: "Ana", ClientPhone: "5511", ServiceName: "Corte", Price: 50,
			Status: model.StatusConfirmed, CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		}},
		records: []model.FinancialRecord{
			{ID: "r2", Type: model.RecordExpense, Category: "Aluguel", Amount: 900, Date: time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)},
			{ID: "r1", Type: model.RecordIncome, Category: "Barba", Amount: 35, Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
		},
	}

	name, data, err := NewExporter(src, nil, time.UTC).Export(context.Background(), time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Fevereiro_2026.xlsx", name)
	assert.Equal(t, "2026-02-01", src.aptFrom)
	assert.Equal(t, "2026-02-28", src.aptTo)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetAppointments, SheetFinancial}, f.GetSheetList())

	rows, err := f.GetRows(SheetAppointments)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cliente", rows[0][4])
	assert.Equal(t, "apt_1", rows[1][0])
	assert.Equal(t, "Ana", rows[1][4])
	assert.Equal(t, "confirmed", rows[1][8])

	rows, err = f.GetRows(SheetFinancial)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "r1", rows[1][0])
	assert.Equal(t, "Entrada", rows[1][2])
	assert.Equal(t, "r2", rows[2][0])
	assert.Equal(t, "Saída", rows[2][2])
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := NewExporter(&fakeSource{}, nil, time.UTC).ExportToFile(context.Background(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Março_2026.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExport_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := NewExporter(&fakeSource{err: boom}, nil, time.UTC).Export(context.Background(), time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestExcelizeWriter_RowWithoutSheet(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()
	assert.ErrorIs(t, w.WriteRow([]any{"x"}), errNoSheet)
}
