package models

import "time"

type AuditEventType string

const (
	EventStarted  AuditEventType = "STARTED"
	EventPaused   AuditEventType = "PAUSED"
	EventResumed  AuditEventType = "RESUMED"
	EventFinished AuditEventType = "FINISHED"
)

// AuditEvent is an append-only record of a timer transition. Rows are never
// updated or deleted; CreatedAt carries the server-assigned transition time.
type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"fecha_hora"`

	ActivityID uint           `gorm:"index;not null" json:"actividad_id"`
	EventType  AuditEventType `gorm:"type:varchar(20);not null" json:"evento"`
}
