// Package export renders the read-only report over FINISHED orders'
// activities. The report is derived data, never authoritative state.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"ordenes-backend/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Header is the fixed column set of the report.
var Header = []string{
	"Orden",
	"Operación",
	"Texto breve",
	"Equipo",
	"Ubicación técnica",
	"Inicio programado",
	"Fin programado",
	"Ejecutor",
	"Inicio real",
	"Fin real",
	"Tiempo activo",
	"Tiempo pausas",
}

const timeLayout = "2006-01-02 15:04:05"

// Rows collects one row per activity of every FINISHED order, sorted by
// order number and operation code. Durations are rendered HH:MM:SS with an
// unbounded hour component.
func Rows(db *gorm.DB) ([][]string, error) {
	var acts []models.Activity
	err := db.Joins("WorkOrder").
		Where("\"WorkOrder\".state = ?", models.OrderFinished).
		Order("\"WorkOrder\".order_number asc, activities.op_code asc").
		Find(&acts).Error
	if err != nil {
		return nil, fmt.Errorf("export: load activities: %w", err)
	}

	rows := make([][]string, 0, len(acts))
	for _, a := range acts {
		var o models.WorkOrder
		if a.WorkOrder != nil {
			o = *a.WorkOrder
		}
		rows = append(rows, []string{
			o.OrderNumber,
			fmt.Sprintf("%04d", a.OpCode),
			a.Description,
			o.EquipmentCode,
			o.LocationCode,
			formatTime(o.ScheduledStart),
			formatTime(o.ScheduledEnd),
			a.ExecutorName,
			formatTime(a.StartedAt),
			formatTime(a.FinishedAt),
			a.AccumActive.String(),
			a.AccumPause.String(),
		})
	}
	return rows, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

// WriteCSV streams the report as CSV, header first.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := setRow(f, sheet, 1, Header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	ref, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("export: row %d: %w", n, err)
	}
	if err := f.SetSheetRow(sheet, ref, &cells); err != nil {
		return fmt.Errorf("export: row %d: %w", n, err)
	}
	return nil
}
