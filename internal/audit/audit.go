// Package audit keeps the append-only bitácora of timer transitions. The
// activity row stays authoritative for current state; the log exists so the
// stored accumulators can be recomputed and cross-checked after the fact.
package audit

import (
	"fmt"
	"time"

	"ordenes-backend/internal/models"

	"gorm.io/gorm"
)

// Record appends one event inside the mutating transaction. The timestamp is
// the same instant the timer math used, so a later replay reproduces the
// stored accumulators exactly. There is no update or delete counterpart.
func Record(tx *gorm.DB, activityID uint, event models.AuditEventType, at time.Time) error {
	row := models.AuditEvent{
		ActivityID: activityID,
		EventType:  event,
		CreatedAt:  at,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("audit: record %s for activity %d: %w", event, activityID, err)
	}
	return nil
}

// Replayed holds accumulators recomputed from the event sequence alone.
type Replayed struct {
	Active   time.Duration
	Pause    time.Duration
	Finished bool
}

// Replay walks an activity's events in order and recomputes the expected
// active/pause totals. An open interval at the end (activity still RUNNING
// or PAUSED) is left unflushed, matching how the stored accumulators work.
func Replay(db *gorm.DB, activityID uint) (*Replayed, error) {
	var events []models.AuditEvent
	if err := db.Where("activity_id = ?", activityID).
		Order("created_at asc, id asc").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("audit: load events for activity %d: %w", activityID, err)
	}

	var (
		out     Replayed
		state   = models.TimerNotStarted
		prev    time.Time
		invalid = func(e models.AuditEvent) error {
			return fmt.Errorf("audit: activity %d: event %s at %s illegal from state %s",
				activityID, e.EventType, e.CreatedAt.Format(time.RFC3339), state)
		}
	)

	for _, e := range events {
		switch e.EventType {
		case models.EventStarted:
			if state != models.TimerNotStarted {
				return nil, invalid(e)
			}
			state = models.TimerRunning
		case models.EventPaused:
			if state != models.TimerRunning {
				return nil, invalid(e)
			}
			out.Active += e.CreatedAt.Sub(prev)
			state = models.TimerPaused
		case models.EventResumed:
			if state != models.TimerPaused {
				return nil, invalid(e)
			}
			out.Pause += e.CreatedAt.Sub(prev)
			state = models.TimerRunning
		case models.EventFinished:
			switch state {
			case models.TimerRunning:
				out.Active += e.CreatedAt.Sub(prev)
			case models.TimerPaused:
				out.Pause += e.CreatedAt.Sub(prev)
			default:
				return nil, invalid(e)
			}
			state = models.TimerFinished
			out.Finished = true
		default:
			return nil, fmt.Errorf("audit: activity %d: unknown event type %q", activityID, e.EventType)
		}
		prev = e.CreatedAt
	}
	return &out, nil
}

// Tolerance absorbs sub-second rounding between stored accumulators and
// replayed event deltas.
const Tolerance = time.Second

// Divergence flags one activity whose stored accumulator does not match the
// value replayed from its event sequence.
type Divergence struct {
	ActivityID  uint
	OrderNumber string
	OpCode      int
	Field       string // "active" or "pause"
	Stored      time.Duration
	Replayed    time.Duration
}

func (d Divergence) String() string {
	return fmt.Sprintf("order %s op %04d: %s stored %s, replayed %s",
		d.OrderNumber, d.OpCode, d.Field,
		models.FormatHMS(d.Stored), models.FormatHMS(d.Replayed))
}

// Verify replays every FINISHED activity and reports divergences. Activities
// closed with a client override are skipped: their stored totals legitimately
// differ from the server-side event deltas.
func Verify(db *gorm.DB) ([]Divergence, error) {
	var acts []models.Activity
	if err := db.Joins("WorkOrder").
		Where("activities.timer_state = ? AND activities.override_applied = ?", models.TimerFinished, false).
		Find(&acts).Error; err != nil {
		return nil, fmt.Errorf("audit: load finished activities: %w", err)
	}

	var out []Divergence
	for _, a := range acts {
		rep, err := Replay(db, a.ID)
		if err != nil {
			return nil, err
		}
		orderNumber := ""
		if a.WorkOrder != nil {
			orderNumber = a.WorkOrder.OrderNumber
		}
		if diff := absDiff(a.AccumActive.Std(), rep.Active); diff > Tolerance {
			out = append(out, Divergence{
				ActivityID: a.ID, OrderNumber: orderNumber, OpCode: a.OpCode,
				Field: "active", Stored: a.AccumActive.Std(), Replayed: rep.Active,
			})
		}
		if diff := absDiff(a.AccumPause.Std(), rep.Pause); diff > Tolerance {
			out = append(out, Divergence{
				ActivityID: a.ID, OrderNumber: orderNumber, OpCode: a.OpCode,
				Field: "pause", Stored: a.AccumPause.Std(), Replayed: rep.Pause,
			})
		}
	}
	return out, nil
}

func absDiff(a, b time.Duration) time.Duration {
	if a > b {
		return a - b
	}
	return b - a
}
