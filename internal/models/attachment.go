package models

import "gorm.io/gorm"

type AttachmentPhase string

const (
	PhaseBefore AttachmentPhase = "BEFORE"
	PhaseDuring AttachmentPhase = "DURING"
	PhaseAfter  AttachmentPhase = "AFTER"
)

// Attachment references a photo stored by the evidence service; the binary
// itself never touches this backend.
type Attachment struct {
	gorm.Model
	WorkOrderID uint  `gorm:"index;not null" json:"orden_id"`
	ActivityID  *uint `gorm:"index" json:"actividad_id"`

	Phase     AttachmentPhase `gorm:"type:varchar(10);not null" json:"fase"`
	Reference string          `gorm:"size:255;not null" json:"referencia"`
}
