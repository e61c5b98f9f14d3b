package timer

import (
	"testing"
	"time"

	"ordenes-backend/internal/apperr"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/models"

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

func seedActivity(t *testing.T, db *gorm.DB, orderState models.OrderState) *models.Activity {
	t.Helper()
	order := models.WorkOrder{
		OrderNumber: "OT-100",
		State:       orderState,
		Priority:    models.PriorityLowest,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	act := models.Activity{
		WorkOrderID: order.ID,
		OpCode:      10,
		Description: "Cambio de rodamiento",
		TimerState:  models.TimerNotStarted,
	}
	if err := db.Create(&act).Error; err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return &act
}

// setClock pins the package clock and restores it when the test ends.
func setClock(t *testing.T, at time.Time) func(time.Time) {
	t.Helper()
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return at }
	return func(next time.Time) {
		now = func() time.Time { return next }
	}
}

func TestStartPauseResumeFinishAccumulation(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tick := setClock(t, t0)

	started, err := Start(db, act.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.TimerState != models.TimerRunning {
		t.Fatalf("state after start = %s, want RUNNING", started.TimerState)
	}
	if started.StartedAt == nil || !started.StartedAt.Equal(t0) {
		t.Errorf("startedAt = %v, want %v", started.StartedAt, t0)
	}

	tick(t0.Add(30 * time.Second))
	paused, err := Pause(db, act.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := paused.AccumActive.Std(); got != 30*time.Second {
		t.Errorf("accumActive after pause = %v, want 30s", got)
	}
	if got := paused.AccumPause.Std(); got != 0 {
		t.Errorf("accumPause after pause = %v, want 0", got)
	}

	tick(t0.Add(90 * time.Second))
	resumed, err := Resume(db, act.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := resumed.AccumPause.Std(); got != 60*time.Second {
		t.Errorf("accumPause after resume = %v, want 60s", got)
	}

	tick(t0.Add(150 * time.Second))
	finished, err := Finish(db, act.ID, FinishPayload{ExecutorName: "Juan Pérez"})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got := finished.AccumActive.Std(); got != 90*time.Second {
		t.Errorf("accumActive after finish = %v, want 90s", got)
	}
	if got := finished.AccumPause.Std(); got != 60*time.Second {
		t.Errorf("accumPause after finish = %v, want 60s", got)
	}
	if finished.TimerState != models.TimerFinished {
		t.Errorf("state = %s, want FINISHED", finished.TimerState)
	}
	if finished.FinishedAt == nil || !finished.FinishedAt.Equal(t0.Add(150*time.Second)) {
		t.Errorf("finishedAt = %v", finished.FinishedAt)
	}
	if finished.ExecutorName != "Juan Pérez" {
		t.Errorf("executor = %q", finished.ExecutorName)
	}

	// active + pause covers the whole span start..finish
	total := finished.AccumActive.Std() + finished.AccumPause.Std()
	if total != 150*time.Second {
		t.Errorf("active+pause = %v, want 150s", total)
	}
}

func TestIllegalTransitions(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	// finish before start: there is no interval to close
	if _, err := Finish(db, act.ID, FinishPayload{}); !apperr.IsValidation(err) {
		t.Fatalf("finish from NOT_STARTED: err = %v, want ValidationError", err)
	}
	if _, err := Pause(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("pause from NOT_STARTED: err = %v, want ValidationError", err)
	}
	if _, err := Resume(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("resume from NOT_STARTED: err = %v, want ValidationError", err)
	}

	if _, err := Start(db, act.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := Start(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("double start: err = %v, want ValidationError", err)
	}
	if _, err := Resume(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("resume from RUNNING: err = %v, want ValidationError", err)
	}

	if _, err := Finish(db, act.ID, FinishPayload{}); err != nil {
		t.Fatalf("finish from RUNNING: %v", err)
	}

	// FINISHED is terminal
	if _, err := Start(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("start after finish: err = %v, want ValidationError", err)
	}
	if _, err := Pause(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("pause after finish: err = %v, want ValidationError", err)
	}
	if _, err := Finish(db, act.ID, FinishPayload{}); !apperr.IsValidation(err) {
		t.Fatalf("double finish: err = %v, want ValidationError", err)
	}
}

func TestFinishFromPausedFlushesPauseInterval(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tick := setClock(t, t0)

	if _, err := Start(db, act.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	tick(t0.Add(20 * time.Second))
	if _, err := Pause(db, act.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	tick(t0.Add(50 * time.Second))
	finished, err := Finish(db, act.ID, FinishPayload{})
	if err != nil {
		t.Fatalf("finish from PAUSED: %v", err)
	}
	if got := finished.AccumActive.Std(); got != 20*time.Second {
		t.Errorf("accumActive = %v, want 20s", got)
	}
	if got := finished.AccumPause.Std(); got != 30*time.Second {
		t.Errorf("accumPause = %v, want 30s", got)
	}
}

func TestFinishOverrideReplacesAccumulators(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	if _, err := Start(db, act.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	finished, err := Finish(db, act.ID, FinishPayload{
		ExecutorName:  "María",
		ActiveElapsed: "02:00:00",
		PauseElapsed:  "00:15:30",
	})
	if err != nil {
		t.Fatalf("finish with override: %v", err)
	}
	if got := finished.AccumActive.Std(); got != 2*time.Hour {
		t.Errorf("accumActive = %v, want 2h (override verbatim)", got)
	}
	if got := finished.AccumPause.Std(); got != 15*time.Minute+30*time.Second {
		t.Errorf("accumPause = %v, want 15m30s", got)
	}
	if !finished.OverrideApplied {
		t.Error("OverrideApplied = false, want true")
	}
}

func TestFinishMalformedOverrideRejected(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	if _, err := Start(db, act.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	tests := []FinishPayload{
		{ActiveElapsed: "90 minutos"},
		{ActiveElapsed: "00:99:00"},
		{PauseElapsed: "1h30m"},
	}
	for _, payload := range tests {
		if _, err := Finish(db, act.ID, payload); !apperr.IsValidation(err) {
			t.Errorf("Finish(%+v): err = %v, want ValidationError", payload, err)
		}
	}

	// the rejected finishes must not have moved the state machine
	var fresh models.Activity
	if err := db.First(&fresh, act.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.TimerState != models.TimerRunning {
		t.Errorf("state = %s, want RUNNING after rejected finishes", fresh.TimerState)
	}
}

func TestConcurrentMutationLosesVersionRace(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderPending)

	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tick := setClock(t, t0)

	if _, err := Start(db, act.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// two handlers read the same RUNNING snapshot
	var snap1, snap2 models.Activity
	if err := db.First(&snap1, act.ID).Error; err != nil {
		t.Fatalf("load snap1: %v", err)
	}
	if err := db.First(&snap2, act.ID).Error; err != nil {
		t.Fatalf("load snap2: %v", err)
	}

	tick(t0.Add(30 * time.Second))
	at := now()
	pauseChanges := func(snap models.Activity) map[string]interface{} {
		return map[string]interface{}{
			"timer_state":        models.TimerPaused,
			"accum_active":       snap.AccumActive + models.Duration(at.Sub(*snap.LastTransitionAt)),
			"last_transition_at": at,
		}
	}

	if err := apply(db, &snap1, pauseChanges(snap1)); err != nil {
		t.Fatalf("first pause: %v", err)
	}
	err := apply(db, &snap2, pauseChanges(snap2))
	if !apperr.IsConflict(err) {
		t.Fatalf("second pause: err = %v, want ConflictError", err)
	}

	// exactly one interval accumulated, never double-counted
	var fresh models.Activity
	if err := db.First(&fresh, act.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := fresh.AccumActive.Std(); got != 30*time.Second {
		t.Errorf("accumActive = %v, want 30s", got)
	}
	if fresh.TimerState != models.TimerPaused {
		t.Errorf("state = %s, want PAUSED", fresh.TimerState)
	}
}

func TestTimerRejectedOnFinishedOrder(t *testing.T) {
	db := openTestDB(t)
	act := seedActivity(t, db, models.OrderFinished)

	if _, err := Start(db, act.ID); !apperr.IsValidation(err) {
		t.Fatalf("start on finished order: err = %v, want ValidationError", err)
	}
}

func TestTimerNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := Start(db, 9999); !apperr.IsNotFound(err) {
		t.Fatalf("start unknown id: err = %v, want NotFoundError", err)
	}
}
