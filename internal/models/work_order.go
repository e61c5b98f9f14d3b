package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderState string

const (
	OrderDraft    OrderState = "DRAFT"    // imported / created, editable
	OrderPending  OrderState = "PENDING"  // approved, assigned to a worker
	OrderFinished OrderState = "FINISHED" // closed, immutable
)

// Priority levels; 4 is the lowest and the default for anything unrecognized.
const (
	PriorityHighest = 1
	PriorityLowest  = 4
)

type WorkOrder struct {
	gorm.Model
	OrderNumber string `gorm:"size:20;uniqueIndex;not null" json:"numero_orden"`
	Description string `gorm:"type:text" json:"descripcion"`

	EquipmentCode        string `gorm:"size:40" json:"equipo"`
	EquipmentDescription string `gorm:"size:255" json:"descripcion_equipo"`
	LocationCode         string `gorm:"size:100" json:"ubicacion_tecnica"`
	LocationDescription  string `gorm:"size:255" json:"descripcion_ubicacion"`

	ScheduledStart *time.Time `json:"inicio_programado"`
	ScheduledEnd   *time.Time `json:"fin_programado"`
	Priority       int        `gorm:"default:4" json:"prioridad"`

	// nil until the order is approved and a worker is assigned
	WorkerCode     *string `gorm:"size:20" json:"codigo_trabajador"`
	SupervisorName string  `gorm:"size:100" json:"supervisor_nombre"`
	SupervisorCode string  `gorm:"size:20" json:"supervisor_codigo"`

	State        OrderState `gorm:"type:varchar(20);default:DRAFT;index" json:"estado"`
	TotalElapsed Duration   `json:"tiempo_total"`
	FinishedAt   *time.Time `json:"fecha_fin_real"`

	// last operation code handed out for this order (10, 20, ...);
	// advanced atomically inside the creating transaction
	NextOpCode  int `gorm:"default:0" json:"-"`
	LockVersion int `gorm:"default:0" json:"-"`

	Activities  []Activity   `gorm:"constraint:OnDelete:CASCADE" json:"actividades,omitempty"`
	Attachments []Attachment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
