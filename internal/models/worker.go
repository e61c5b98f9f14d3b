package models

import "gorm.io/gorm"

type WorkerRole string

const (
	RoleAdmin    WorkerRole = "ADMIN"
	RoleOperario WorkerRole = "OPERARIO"
)

type Worker struct {
	gorm.Model
	Name string     `gorm:"size:100;not null" json:"nombre"`
	Code string     `gorm:"size:20;uniqueIndex;not null" json:"codigo"` // login id
	Role WorkerRole `gorm:"type:varchar(10);default:OPERARIO" json:"rol"`

	// only set for ADMIN accounts; operarios log in by code
	PasswordHash string `gorm:"size:255" json:"-"`
}
