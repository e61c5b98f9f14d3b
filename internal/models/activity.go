package models

import (
	"time"

	"gorm.io/gorm"
)

type TimerState string

const (
	TimerNotStarted TimerState = "NOT_STARTED"
	TimerRunning    TimerState = "RUNNING"
	TimerPaused     TimerState = "PAUSED"
	TimerFinished   TimerState = "FINISHED"
)

type Activity struct {
	gorm.Model
	WorkOrderID uint       `gorm:"uniqueIndex:idx_order_opcode;not null" json:"orden_id"`
	WorkOrder   *WorkOrder `json:"-"`

	// 10, 20, 30... in creation order; unique within the order, never reused
	OpCode      int    `gorm:"uniqueIndex:idx_order_opcode;not null" json:"codigo_actividad"`
	Description string `gorm:"type:text" json:"descripcion"`
	WorkCenter  string `gorm:"size:50" json:"puesto_trabajo"`

	TimerState       TimerState `gorm:"type:varchar(20);default:NOT_STARTED;index" json:"estado_cronometro"`
	AccumActive      Duration   `json:"tiempo_real_acumulado"`
	AccumPause       Duration   `json:"tiempo_pausas"`
	LastTransitionAt *time.Time `json:"-"`
	StartedAt        *time.Time `json:"fecha_hora_inicio_real"`
	FinishedAt       *time.Time `json:"fecha_hora_fin_real"`

	ExecutorName string `gorm:"size:100" json:"nombre_ejecutor"`
	Notes        string `gorm:"type:text" json:"notas_operario"`

	// true when the closing client replaced the server accumulators
	// with its own measured totals
	OverrideApplied bool `json:"ajuste_manual"`

	LockVersion int `gorm:"default:0" json:"-"`

	Events []AuditEvent `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
