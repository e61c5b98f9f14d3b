// Package importer turns the planning export's loosely-structured rows into
// idempotent upserts of orders and activities. Rows are processed
// independently: a bad row becomes a per-row failure in the batch report and
// never aborts the rest, so a caller can fix the data and re-run the file.
package importer

import (
	"errors"
	"fmt"
	"time"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/lifecycle"
	"ordenes-backend/internal/models"

	"gorm.io/gorm"
)

type RowStatus string

const (
	RowCreated RowStatus = "created"
	RowUpdated RowStatus = "updated"
	RowFailed  RowStatus = "failed"
)

// RowResult is the per-row diagnostic of a batch.
type RowResult struct {
	Line        int       `json:"linea"`
	OrderNumber string    `json:"numero_orden"`
	Status      RowStatus `json:"estado"`
	Reason      string    `json:"motivo,omitempty"`
}

// Report summarizes one import batch.
type Report struct {
	Created int         `json:"creadas"`
	Updated int         `json:"actualizadas"`
	Failed  int         `json:"fallidas"`
	Rows    []RowResult `json:"filas"`
}

type Reconciler struct {
	DB *gorm.DB

	// OverwriteNonDraft preserves the legacy behavior of re-import forcing
	// PENDING/FINISHED orders back to DRAFT. When false such rows are
	// skipped and reported as failed.
	OverwriteNonDraft bool
}

// Run processes one batch: the header row plus data rows, one row per
// activity occurrence, multiple rows sharing an order number.
func (r *Reconciler) Run(header []string, rows [][]string) *Report {
	cols := mapHeader(header)
	rep := &Report{Rows: make([]RowResult, 0, len(rows))}

	for i, row := range rows {
		line := i + 2 // 1-based, header is line 1
		res := r.processRow(cols, row, line)
		rep.Rows = append(rep.Rows, res)
		switch res.Status {
		case RowCreated:
			rep.Created++
		case RowUpdated:
			rep.Updated++
		default:
			rep.Failed++
		}
	}
	return rep
}

func (r *Reconciler) processRow(cols map[field]int, row []string, line int) RowResult {
	orderNumber := cell(row, cols, fieldOrderNumber)
	res := RowResult{Line: line, OrderNumber: orderNumber}

	if orderNumber == "" {
		res.Status = RowFailed
		res.Reason = apperr.Parse(line, "missing order number").Error()
		return res
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		order, created, err := r.upsertOrder(tx, orderNumber, cols, row)
		if err != nil {
			return err
		}
		actCreated, err := upsertActivity(tx, order, cols, row)
		if err != nil {
			return err
		}
		if created || actCreated {
			res.Status = RowCreated
		} else {
			res.Status = RowUpdated
		}
		return nil
	})
	if err != nil {
		res.Status = RowFailed
		res.Reason = err.Error()
	}
	return res
}

// orderFields is the explicit set of order columns import may write.
// Assignment, lifecycle and timing fields are deliberately absent: the
// import path cannot touch them except through the documented demotion
// below.
type orderFields struct {
	Description          string
	EquipmentCode        string
	EquipmentDescription string
	LocationCode         string
	LocationDescription  string
	ScheduledStart       *time.Time
	ScheduledEnd         *time.Time
	Priority             int
}

func orderFieldsFromRow(cols map[field]int, row []string) orderFields {
	return orderFields{
		Description:          cell(row, cols, fieldShortText),
		EquipmentCode:        cell(row, cols, fieldEquipment),
		EquipmentDescription: cell(row, cols, fieldEquipmentDesc),
		LocationCode:         cell(row, cols, fieldLocation),
		LocationDescription:  cell(row, cols, fieldLocationDesc),
		ScheduledStart:       parseDate(cell(row, cols, fieldStartDate)),
		ScheduledEnd:         parseDate(cell(row, cols, fieldEndDate)),
		Priority:             parsePriority(cell(row, cols, fieldPriority)),
	}
}

func (f orderFields) changes() map[string]interface{} {
	return map[string]interface{}{
		"description":           f.Description,
		"equipment_code":        f.EquipmentCode,
		"equipment_description": f.EquipmentDescription,
		"location_code":         f.LocationCode,
		"location_description":  f.LocationDescription,
		"scheduled_start":       f.ScheduledStart,
		"scheduled_end":         f.ScheduledEnd,
		"priority":              f.Priority,
	}
}

// upsertOrder creates the order in DRAFT or overwrites the importable
// fields of an existing one (last write wins). Forcing a non-DRAFT order
// back to DRAFT also clears what approval and finish had set.
func (r *Reconciler) upsertOrder(tx *gorm.DB, orderNumber string, cols map[field]int, row []string) (*models.WorkOrder, bool, error) {
	fields := orderFieldsFromRow(cols, row)

	var order models.WorkOrder
	err := tx.Where("order_number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		order = models.WorkOrder{
			OrderNumber:          orderNumber,
			Description:          fields.Description,
			EquipmentCode:        fields.EquipmentCode,
			EquipmentDescription: fields.EquipmentDescription,
			LocationCode:         fields.LocationCode,
			LocationDescription:  fields.LocationDescription,
			ScheduledStart:       fields.ScheduledStart,
			ScheduledEnd:         fields.ScheduledEnd,
			Priority:             fields.Priority,
			State:                models.OrderDraft,
		}
		if err := tx.Create(&order).Error; err != nil {
			return nil, false, fmt.Errorf("create order %s: %w", orderNumber, err)
		}
		return &order, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if order.State != models.OrderDraft && !r.OverwriteNonDraft {
		return nil, false, apperr.Validationf("estado",
			"order %s is %s; re-import overwrite is disabled", orderNumber, order.State)
	}

	changes := fields.changes()
	changes["state"] = models.OrderDraft
	changes["worker_code"] = nil
	changes["finished_at"] = nil
	changes["total_elapsed"] = 0
	changes["lock_version"] = order.LockVersion + 1

	res := tx.Model(&models.WorkOrder{}).
		Where("id = ? AND lock_version = ?", order.ID, order.LockVersion).
		Updates(changes)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, apperr.Conflict("order", orderNumber)
	}
	return &order, false, nil
}

// upsertActivity is keyed by (order, operation code). Re-importing an
// identical row updates the descriptive fields in place; timer and
// execution fields are not in the change set and are never clobbered, no
// matter how far the activity has progressed.
func upsertActivity(tx *gorm.DB, order *models.WorkOrder, cols map[field]int, row []string) (bool, error) {
	code := parseOpCode(cell(row, cols, fieldOpCode))
	description := cell(row, cols, fieldOpShortText)
	workCenter := cell(row, cols, fieldWorkCenter)

	if code > 0 {
		var act models.Activity
		err := tx.Where("work_order_id = ? AND op_code = ?", order.ID, code).First(&act).Error
		if err == nil {
			upd := tx.Model(&models.Activity{}).
				Where("id = ?", act.ID).
				Updates(map[string]interface{}{
					"description": description,
					"work_center": workCenter,
				})
			return false, upd.Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
	}

	claimed, err := lifecycle.ClaimOpCode(tx, order.ID, code)
	if err != nil {
		return false, err
	}
	act := models.Activity{
		WorkOrderID: order.ID,
		OpCode:      claimed,
		Description: description,
		WorkCenter:  workCenter,
		TimerState:  models.TimerNotStarted,
	}
	if err := tx.Create(&act).Error; err != nil {
		return false, fmt.Errorf("create activity %04d: %w", claimed, err)
	}
	return true, nil
}
