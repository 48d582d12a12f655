package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is the sample host object shipped with the service. Embedding
// applications register their own kinds in the content registry.
type Device struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(75);not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Device
func (Device) TableName() string {
	return "devices"
}

// BeforeCreate assigns a UUID when the caller did not choose one
func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// DisplayName is used to name mobile locations created for the device
func (d Device) DisplayName() string {
	return d.Name
}
