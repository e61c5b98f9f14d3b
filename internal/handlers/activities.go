package handlers

import (
	"errors"
	"net/http"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/lifecycle"
	"ordenes-backend/internal/middleware"
	"ordenes-backend/internal/models"
	"ordenes-backend/internal/timer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListActivities returns the activities of one order in operation-code
// order.
func ListActivities(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var order models.WorkOrder
	if err := database.DB.First(&order, id).Error; err != nil {
		writeError(c, apperr.NotFound("order", id))
		return
	}

	var acts []models.Activity
	if err := database.DB.
		Where("work_order_id = ?", id).
		Order("op_code asc").
		Find(&acts).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acts)
}

// CreateActivity appends an activity to an order; the operation code is
// assigned from the order's counter, never by the client.
func CreateActivity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in lifecycle.CreateActivityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	act, err := lifecycle.AddActivity(database.DB, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, act)
}

func GetActivity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var act models.Activity
	err := database.DB.First(&act, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "actividad no encontrada"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

type activityUpdateForm struct {
	Description   *string `json:"descripcion"`
	WorkCenter    *string `json:"puesto_trabajo"`
	ExecutorName  *string `json:"nombre_ejecutor"`
	Notes         *string `json:"notas_operario"`
	ActiveElapsed *string `json:"tiempo_real_acumulado"`
	PauseElapsed  *string `json:"tiempo_pausas"`
}

// UpdateActivity edits descriptive fields. A FINISHED activity is frozen:
// only an ADMIN may correct it, and only the execution record — never the
// timer state machine itself.
func UpdateActivity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form activityUpdateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}

	var act models.Activity
	if err := database.DB.First(&act, id).Error; err != nil {
		writeError(c, apperr.NotFound("activity", id))
		return
	}

	changes := map[string]interface{}{}
	if act.TimerState == models.TimerFinished {
		w, _ := middleware.CurrentWorker(c)
		if w.Role != models.RoleAdmin {
			writeError(c, apperr.Validation("estado_cronometro", "activity is finished"))
			return
		}
		if form.ExecutorName != nil {
			changes["executor_name"] = *form.ExecutorName
		}
		if form.Notes != nil {
			changes["notes"] = *form.Notes
		}
		if form.ActiveElapsed != nil {
			v, err := models.ParseHMS(*form.ActiveElapsed)
			if err != nil {
				writeError(c, apperr.Validation("tiempo_real_acumulado", err.Error()))
				return
			}
			changes["accum_active"] = models.Duration(v)
			changes["override_applied"] = true
		}
		if form.PauseElapsed != nil {
			v, err := models.ParseHMS(*form.PauseElapsed)
			if err != nil {
				writeError(c, apperr.Validation("tiempo_pausas", err.Error()))
				return
			}
			changes["accum_pause"] = models.Duration(v)
			changes["override_applied"] = true
		}
	} else {
		if form.Description != nil {
			changes["description"] = *form.Description
		}
		if form.WorkCenter != nil {
			changes["work_center"] = *form.WorkCenter
		}
		if form.Notes != nil {
			changes["notes"] = *form.Notes
		}
	}

	if len(changes) > 0 {
		changes["lock_version"] = act.LockVersion + 1
		res := database.DB.Model(&models.Activity{}).
			Where("id = ? AND lock_version = ?", act.ID, act.LockVersion).
			Updates(changes)
		if res.Error != nil {
			writeError(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			writeError(c, apperr.Conflict("activity", act.ID))
			return
		}
	}

	var fresh models.Activity
	if err := database.DB.First(&fresh, id).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

// DeleteActivity removes an activity while its order is still a draft and
// the timer has never run. The operation code is not handed back: codes are
// never reused.
func DeleteActivity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var act models.Activity
	if err := database.DB.First(&act, id).Error; err != nil {
		writeError(c, apperr.NotFound("activity", id))
		return
	}
	var order models.WorkOrder
	if err := database.DB.First(&order, act.WorkOrderID).Error; err != nil {
		writeError(c, err)
		return
	}
	if order.State != models.OrderDraft {
		writeError(c, apperr.Validationf("estado", "cannot delete activities of a %s order", order.State))
		return
	}
	if act.TimerState != models.TimerNotStarted {
		writeError(c, apperr.Validation("estado_cronometro", "activity has timer progress"))
		return
	}

	if err := database.DB.Unscoped().Delete(&models.Activity{}, id).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "actividad eliminada"})
}

// timer actions

func StartActivity(c *gin.Context) {
	timerAction(c, func(id uint) (*models.Activity, error) {
		return timer.Start(database.DB, id)
	})
}

func PauseActivity(c *gin.Context) {
	timerAction(c, func(id uint) (*models.Activity, error) {
		return timer.Pause(database.DB, id)
	})
}

func ResumeActivity(c *gin.Context) {
	timerAction(c, func(id uint) (*models.Activity, error) {
		return timer.Resume(database.DB, id)
	})
}

// FinishActivity closes the stopwatch. The payload may carry the executor,
// notes and explicit HH:MM:SS totals measured by an offline client.
func FinishActivity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var payload timer.FinishPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos inválidos"})
		return
	}
	if payload.ExecutorName == "" {
		if w, ok := middleware.CurrentWorker(c); ok {
			payload.ExecutorName = w.Name
		}
	}

	act, err := timer.Finish(database.DB, id, payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

func timerAction(c *gin.Context, op func(id uint) (*models.Activity, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	act, err := op(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}

// ListActivityEvents returns the append-only bitácora of one activity.
func ListActivityEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var act models.Activity
	if err := database.DB.First(&act, id).Error; err != nil {
		writeError(c, apperr.NotFound("activity", id))
		return
	}

	var events []models.AuditEvent
	if err := database.DB.
		Where("activity_id = ?", id).
		Order("created_at asc, id asc").
		Find(&events).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
