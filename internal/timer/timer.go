// Package timer implements the per-activity stopwatch: NOT_STARTED →
// RUNNING ⇄ PAUSED → FINISHED. Elapsed time is computed from stored
// timestamps at mutation time; no background clock exists. Every mutation is
// a short transaction guarded by optimistic versioning on the activity row
// and its parent order, so a losing concurrent caller gets a ConflictError
// instead of silently overwriting the winner.
package timer

import (
	"errors"
	"time"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/audit"
	"ordenes-backend/internal/models"

	"gorm.io/gorm"
)

// overridable in tests
var now = time.Now

// FinishPayload carries the closing data from the client. The elapsed fields
// are optional HH:MM:SS overrides: an offline client that measured its own
// time reports final totals here and they replace the server accumulators
// verbatim.
type FinishPayload struct {
	ExecutorName  string `json:"nombre_ejecutor"`
	Notes         string `json:"notas_operario"`
	ActiveElapsed string `json:"tiempo_real_acumulado"`
	PauseElapsed  string `json:"tiempo_pausas"`
}

// Start moves a NOT_STARTED activity to RUNNING and stamps startedAt.
func Start(db *gorm.DB, id uint) (*models.Activity, error) {
	return mutate(db, id, models.EventStarted, func(act *models.Activity, at time.Time) (map[string]interface{}, error) {
		if act.TimerState != models.TimerNotStarted {
			return nil, apperr.Validationf("estado_cronometro", "cannot start from %s", act.TimerState)
		}
		changes := map[string]interface{}{
			"timer_state":        models.TimerRunning,
			"last_transition_at": at,
		}
		if act.StartedAt == nil {
			changes["started_at"] = at
		}
		return changes, nil
	})
}

// Pause flushes the open active interval and moves RUNNING → PAUSED.
func Pause(db *gorm.DB, id uint) (*models.Activity, error) {
	return mutate(db, id, models.EventPaused, func(act *models.Activity, at time.Time) (map[string]interface{}, error) {
		if act.TimerState != models.TimerRunning {
			return nil, apperr.Validationf("estado_cronometro", "cannot pause from %s", act.TimerState)
		}
		return map[string]interface{}{
			"timer_state":        models.TimerPaused,
			"accum_active":       act.AccumActive + models.Duration(at.Sub(lastTransition(act, at))),
			"last_transition_at": at,
		}, nil
	})
}

// Resume flushes the open pause interval and moves PAUSED → RUNNING.
func Resume(db *gorm.DB, id uint) (*models.Activity, error) {
	return mutate(db, id, models.EventResumed, func(act *models.Activity, at time.Time) (map[string]interface{}, error) {
		if act.TimerState != models.TimerPaused {
			return nil, apperr.Validationf("estado_cronometro", "cannot resume from %s", act.TimerState)
		}
		return map[string]interface{}{
			"timer_state":        models.TimerRunning,
			"accum_pause":        act.AccumPause + models.Duration(at.Sub(lastTransition(act, at))),
			"last_transition_at": at,
		}, nil
	})
}

// Finish closes the activity from RUNNING or PAUSED. The open interval is
// flushed into the matching accumulator first; explicit overrides in the
// payload then replace the accumulators wholesale. Finishing from
// NOT_STARTED is rejected: there is no active interval to close. FINISHED is
// terminal.
func Finish(db *gorm.DB, id uint, payload FinishPayload) (*models.Activity, error) {
	return mutate(db, id, models.EventFinished, func(act *models.Activity, at time.Time) (map[string]interface{}, error) {
		active := act.AccumActive
		pause := act.AccumPause
		switch act.TimerState {
		case models.TimerRunning:
			active += models.Duration(at.Sub(lastTransition(act, at)))
		case models.TimerPaused:
			pause += models.Duration(at.Sub(lastTransition(act, at)))
		case models.TimerNotStarted:
			return nil, apperr.Validation("estado_cronometro", "cannot finish an activity that was never started")
		default:
			return nil, apperr.Validation("estado_cronometro", "activity is already finished")
		}

		override := false
		if payload.ActiveElapsed != "" {
			v, err := models.ParseHMS(payload.ActiveElapsed)
			if err != nil {
				return nil, apperr.Validation("tiempo_real_acumulado", err.Error())
			}
			active = models.Duration(v)
			override = true
		}
		if payload.PauseElapsed != "" {
			v, err := models.ParseHMS(payload.PauseElapsed)
			if err != nil {
				return nil, apperr.Validation("tiempo_pausas", err.Error())
			}
			pause = models.Duration(v)
			override = true
		}

		return map[string]interface{}{
			"timer_state":        models.TimerFinished,
			"accum_active":       active,
			"accum_pause":        pause,
			"last_transition_at": at,
			"finished_at":        at,
			"executor_name":      payload.ExecutorName,
			"notes":              payload.Notes,
			"override_applied":   override,
		}, nil
	})
}

func lastTransition(act *models.Activity, fallback time.Time) time.Time {
	if act.LastTransitionAt != nil {
		return *act.LastTransitionAt
	}
	return fallback
}

// mutate runs one timer transition: load a snapshot, compute the change set,
// apply it under the optimistic version guard, bump the parent order and
// append the audit event — all in one transaction.
func mutate(db *gorm.DB, id uint, event models.AuditEventType,
	step func(act *models.Activity, at time.Time) (map[string]interface{}, error)) (*models.Activity, error) {

	var out models.Activity
	err := db.Transaction(func(tx *gorm.DB) error {
		var act models.Activity
		if err := tx.First(&act, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("activity", id)
			}
			return err
		}

		at := now()
		changes, err := step(&act, at)
		if err != nil {
			return err
		}
		if err := apply(tx, &act, changes); err != nil {
			return err
		}
		if err := touchOrder(tx, act.WorkOrderID); err != nil {
			return err
		}
		if err := audit.Record(tx, act.ID, event, at); err != nil {
			return err
		}
		return tx.First(&out, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// apply writes the change set for the given snapshot. The WHERE clause pins
// the version the snapshot was read at; zero rows affected means another
// mutation won the race.
func apply(tx *gorm.DB, act *models.Activity, changes map[string]interface{}) error {
	changes["lock_version"] = act.LockVersion + 1
	res := tx.Model(&models.Activity{}).
		Where("id = ? AND lock_version = ?", act.ID, act.LockVersion).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("activity", act.ID)
	}
	return nil
}

// touchOrder bumps the parent order's lock version inside the same
// transaction. Order-level transitions bump it too, so finish(order) can
// never interleave with an in-flight timer mutation on a child. A FINISHED
// order is frozen and rejects further timer activity.
func touchOrder(tx *gorm.DB, orderID uint) error {
	res := tx.Model(&models.WorkOrder{}).
		Where("id = ? AND state <> ?", orderID, models.OrderFinished).
		Update("lock_version", gorm.Expr("lock_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Validation("orden", "parent order is finished")
	}
	return nil
}
