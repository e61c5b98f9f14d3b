// Package lifecycle owns the order-level state machine:
// DRAFT → PENDING (approve) → FINISHED (finish), plus hard delete of drafts
// (reject). It also hands out activity operation codes from a monotonic
// per-order counter so codes are never reused or renumbered.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/models"

	"gorm.io/gorm"
)

// overridable in tests
var now = time.Now

// CreateActivityInput is one activity of an explicit create.
type CreateActivityInput struct {
	Description string `json:"descripcion"`
	WorkCenter  string `json:"puesto_trabajo"`
}

// CreateOrderInput is the payload of an explicit order create.
type CreateOrderInput struct {
	OrderNumber          string     `json:"numero_orden"`
	Description          string     `json:"descripcion"`
	EquipmentCode        string     `json:"equipo"`
	EquipmentDescription string     `json:"descripcion_equipo"`
	LocationCode         string     `json:"ubicacion_tecnica"`
	LocationDescription  string     `json:"descripcion_ubicacion"`
	ScheduledStart       *time.Time `json:"inicio_programado"`
	ScheduledEnd         *time.Time `json:"fin_programado"`
	Priority             int        `json:"prioridad"`
	SupervisorName       string     `json:"supervisor_nombre"`
	SupervisorCode       string     `json:"supervisor_codigo"`

	Activities []CreateActivityInput `json:"actividades"`
}

// Create makes a new DRAFT order with its initial activities. A duplicate
// order number on explicit create is a validation error, unlike import,
// which upserts.
func Create(db *gorm.DB, in CreateOrderInput) (*models.WorkOrder, error) {
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	if in.OrderNumber == "" {
		return nil, apperr.Validation("numero_orden", "order number is required")
	}
	if in.Priority < models.PriorityHighest || in.Priority > models.PriorityLowest {
		in.Priority = models.PriorityLowest
	}

	var out models.WorkOrder
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.WorkOrder{}).
			Where("order_number = ?", in.OrderNumber).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Validation("numero_orden", "order number already exists")
		}

		order := models.WorkOrder{
			OrderNumber:          in.OrderNumber,
			Description:          in.Description,
			EquipmentCode:        in.EquipmentCode,
			EquipmentDescription: in.EquipmentDescription,
			LocationCode:         in.LocationCode,
			LocationDescription:  in.LocationDescription,
			ScheduledStart:       in.ScheduledStart,
			ScheduledEnd:         in.ScheduledEnd,
			Priority:             in.Priority,
			SupervisorName:       in.SupervisorName,
			SupervisorCode:       in.SupervisorCode,
			State:                models.OrderDraft,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, a := range in.Activities {
			if _, err := addActivityTx(tx, &order, a); err != nil {
				return err
			}
		}
		return tx.Preload("Activities").First(&out, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddActivity appends an activity to an order that is not yet FINISHED,
// assigning the next operation code.
func AddActivity(db *gorm.DB, orderID uint, in CreateActivityInput) (*models.Activity, error) {
	var out *models.Activity
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.State == models.OrderFinished {
			return apperr.Validation("estado", "order is finished")
		}
		out, err = addActivityTx(tx, order, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// addActivityTx claims the next operation code and creates the row. The
// counter is advanced with a single atomic UPDATE whose row lock is held
// until commit, so two concurrent creates cannot read the same code.
func addActivityTx(tx *gorm.DB, order *models.WorkOrder, in CreateActivityInput) (*models.Activity, error) {
	code, err := ClaimOpCode(tx, order.ID, 0)
	if err != nil {
		return nil, err
	}
	act := models.Activity{
		WorkOrderID: order.ID,
		OpCode:      code,
		Description: in.Description,
		WorkCenter:  in.WorkCenter,
		TimerState:  models.TimerNotStarted,
	}
	if err := tx.Create(&act).Error; err != nil {
		return nil, err
	}
	return &act, nil
}

// ClaimOpCode advances next_op_code and returns the claimed value. With
// explicit > 0 (import rows carrying their own code) the counter is only
// ratcheted forward past it, so later sequential assignment never collides.
func ClaimOpCode(tx *gorm.DB, orderID uint, explicit int) (int, error) {
	if explicit > 0 {
		res := tx.Model(&models.WorkOrder{}).
			Where("id = ? AND next_op_code < ?", orderID, explicit).
			Update("next_op_code", explicit)
		if res.Error != nil {
			return 0, res.Error
		}
		return explicit, nil
	}
	res := tx.Model(&models.WorkOrder{}).
		Where("id = ?", orderID).
		Update("next_op_code", gorm.Expr("next_op_code + ?", 10))
	if res.Error != nil {
		return 0, res.Error
	}
	var order models.WorkOrder
	if err := tx.Select("next_op_code").First(&order, orderID).Error; err != nil {
		return 0, err
	}
	return order.NextOpCode, nil
}

// Approve assigns a worker and moves DRAFT → PENDING. Irreversible through
// the normal API.
func Approve(db *gorm.DB, orderID uint, workerCode string) (*models.WorkOrder, error) {
	workerCode = strings.TrimSpace(workerCode)
	if workerCode == "" {
		return nil, apperr.Validation("codigo_trabajador", "worker code is required")
	}

	var out models.WorkOrder
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.OrderDraft {
			return apperr.Validationf("estado", "cannot approve from %s", order.State)
		}
		res := tx.Model(&models.WorkOrder{}).
			Where("id = ? AND lock_version = ?", order.ID, order.LockVersion).
			Updates(map[string]interface{}{
				"state":        models.OrderPending,
				"worker_code":  workerCode,
				"lock_version": order.LockVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order", order.ID)
		}
		return tx.First(&out, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Finish closes a PENDING order: finishedAt = now, totalElapsed = sum of the
// children's accumulated active time. With requireActivitiesDone set, every
// child must already be FINISHED. The version guard serializes this against
// child timer mutations, which bump the same order row.
func Finish(db *gorm.DB, orderID uint, requireActivitiesDone bool) (*models.WorkOrder, error) {
	var out models.WorkOrder
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.OrderPending {
			return apperr.Validationf("estado", "cannot finish from %s", order.State)
		}

		if requireActivitiesDone {
			var open int64
			if err := tx.Model(&models.Activity{}).
				Where("work_order_id = ? AND timer_state <> ?", order.ID, models.TimerFinished).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return apperr.Validationf("actividades", "%d activities are not finished", open)
			}
		}

		var total int64
		if err := tx.Model(&models.Activity{}).
			Where("work_order_id = ?", order.ID).
			Select("COALESCE(SUM(accum_active), 0)").
			Scan(&total).Error; err != nil {
			return err
		}

		at := now()
		res := tx.Model(&models.WorkOrder{}).
			Where("id = ? AND lock_version = ?", order.ID, order.LockVersion).
			Updates(map[string]interface{}{
				"state":         models.OrderFinished,
				"finished_at":   at,
				"total_elapsed": total,
				"lock_version":  order.LockVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order", order.ID)
		}
		return tx.First(&out, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject hard-deletes a DRAFT order with its activities, events and
// attachment references. Only legal while DRAFT.
func Reject(db *gorm.DB, orderID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.OrderDraft {
			return apperr.Validationf("estado", "cannot reject from %s", order.State)
		}
		res := tx.Model(&models.WorkOrder{}).
			Where("id = ? AND lock_version = ?", order.ID, order.LockVersion).
			Update("lock_version", order.LockVersion+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order", order.ID)
		}

		var actIDs []uint
		if err := tx.Model(&models.Activity{}).
			Where("work_order_id = ?", order.ID).
			Pluck("id", &actIDs).Error; err != nil {
			return err
		}
		if len(actIDs) > 0 {
			if err := tx.Where("activity_id IN ?", actIDs).
				Delete(&models.AuditEvent{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("work_order_id = ?", order.ID).
			Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("work_order_id = ?", order.ID).
			Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.WorkOrder{}, order.ID).Error
	})
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.WorkOrder, error) {
	var order models.WorkOrder
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order", orderID)
		}
		return nil, err
	}
	return &order, nil
}
