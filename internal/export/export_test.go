package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()

	start := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)
	finished := models.WorkOrder{
		OrderNumber:    "OT-200",
		EquipmentCode:  "EQ-12",
		LocationCode:   "PL01-A2",
		ScheduledStart: &start,
		ScheduledEnd:   &end,
		State:          models.OrderFinished,
		Priority:       2,
	}
	if err := db.Create(&finished).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}

	actStart := start.Add(30 * time.Minute)
	actEnd := actStart.Add(95 * time.Minute)
	acts := []models.Activity{
		{
			WorkOrderID: finished.ID, OpCode: 20, Description: "Cambiar rodete",
			TimerState: models.TimerFinished, ExecutorName: "Juan Pérez",
			StartedAt: &actStart, FinishedAt: &actEnd,
			AccumActive: models.Duration(90 * time.Minute), AccumPause: models.Duration(5 * time.Minute),
		},
		{
			WorkOrderID: finished.ID, OpCode: 10, Description: "Desmontar carcasa",
			TimerState: models.TimerFinished,
		},
	}
	if err := db.Create(&acts).Error; err != nil {
		t.Fatalf("create activities: %v", err)
	}

	// a pending order must never show up in the report
	pending := models.WorkOrder{OrderNumber: "OT-100", State: models.OrderPending, Priority: 4}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("create pending order: %v", err)
	}
	if err := db.Create(&models.Activity{WorkOrderID: pending.ID, OpCode: 10, TimerState: models.TimerFinished}).Error; err != nil {
		t.Fatalf("create pending activity: %v", err)
	}
}

func TestRowsOnlyFinishedOrdersSorted(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	rows, err := Rows(db)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (pending order excluded)", len(rows))
	}

	// sorted by op code within the order, codes zero-padded
	if rows[0][1] != "0010" || rows[1][1] != "0020" {
		t.Errorf("op codes = %s, %s, want 0010, 0020", rows[0][1], rows[1][1])
	}

	got := rows[1]
	want := []string{
		"OT-200", "0020", "Cambiar rodete", "EQ-12", "PL01-A2",
		"2024-03-15 08:00:00", "2024-03-15 16:00:00", "Juan Pérez",
		"2024-03-15 08:30:00", "2024-03-15 10:05:00",
		"01:30:00", "00:05:00",
	}
	if len(got) != len(want) {
		t.Fatalf("row has %d cells, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d (%s) = %q, want %q", i, Header[i], got[i], want[i])
		}
	}
}

func TestRowsEmptyTimesRenderEmpty(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	rows, err := Rows(db)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	first := rows[0] // op 0010 never ran
	if first[8] != "" || first[9] != "" {
		t.Errorf("real times = %q, %q, want empty", first[8], first[9])
	}
	if first[10] != "00:00:00" {
		t.Errorf("active time = %q, want 00:00:00", first[10])
	}
}

func TestWriteCSV(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	rows, err := Rows(db)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[0][0] != "Orden" || records[0][10] != "Tiempo activo" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][10] != "01:30:00" {
		t.Errorf("active time = %q, want 01:30:00", records[2][10])
	}
}

func TestWriteXLSXRoundTrips(t *testing.T) {
	rows := [][]string{
		{"OT-1", "0010", "Desmontar", "EQ-1", "PL-1", "", "", "Ana", "", "", "00:20:00", "00:00:00"},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	all, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(all))
	}
	if all[0][0] != "Orden" {
		t.Errorf("header cell = %q, want Orden", all[0][0])
	}
	if all[1][10] != "00:20:00" {
		t.Errorf("active time cell = %q, want 00:20:00", all[1][10])
	}
}
