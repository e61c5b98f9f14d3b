package lifecycle

import (
	"time"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/models"

	"gorm.io/gorm"
)

// UpdateOrderInput carries a partial edit; nil fields are left alone. The
// set of editable fields is enumerated here — lifecycle state, timing and
// the order number are not reachable through a plain update.
type UpdateOrderInput struct {
	Description          *string    `json:"descripcion"`
	EquipmentCode        *string    `json:"equipo"`
	EquipmentDescription *string    `json:"descripcion_equipo"`
	LocationCode         *string    `json:"ubicacion_tecnica"`
	LocationDescription  *string    `json:"descripcion_ubicacion"`
	ScheduledStart       *time.Time `json:"inicio_programado"`
	ScheduledEnd         *time.Time `json:"fin_programado"`
	Priority             *int       `json:"prioridad"`
	SupervisorName       *string    `json:"supervisor_nombre"`
	SupervisorCode       *string    `json:"supervisor_codigo"`
	WorkerCode           *string    `json:"codigo_trabajador"`
}

// Update edits an order that is not yet FINISHED.
func Update(db *gorm.DB, orderID uint, in UpdateOrderInput) (*models.WorkOrder, error) {
	var out models.WorkOrder
	err := db.Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.State == models.OrderFinished {
			return apperr.Validation("estado", "order is finished")
		}

		changes := map[string]interface{}{}
		setStr := func(col string, v *string) {
			if v != nil {
				changes[col] = *v
			}
		}
		setStr("description", in.Description)
		setStr("equipment_code", in.EquipmentCode)
		setStr("equipment_description", in.EquipmentDescription)
		setStr("location_code", in.LocationCode)
		setStr("location_description", in.LocationDescription)
		setStr("supervisor_name", in.SupervisorName)
		setStr("supervisor_code", in.SupervisorCode)
		setStr("worker_code", in.WorkerCode)
		if in.ScheduledStart != nil {
			changes["scheduled_start"] = *in.ScheduledStart
		}
		if in.ScheduledEnd != nil {
			changes["scheduled_end"] = *in.ScheduledEnd
		}
		if in.Priority != nil {
			p := *in.Priority
			if p < models.PriorityHighest || p > models.PriorityLowest {
				return apperr.Validation("prioridad", "priority must be 1-4")
			}
			changes["priority"] = p
		}
		if len(changes) == 0 {
			out = *order
			return nil
		}

		changes["lock_version"] = order.LockVersion + 1
		res := tx.Model(&models.WorkOrder{}).
			Where("id = ? AND lock_version = ?", order.ID, order.LockVersion).
			Updates(changes)
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
