package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Permission codenames checked by the API and the broadcast gateway
const (
	PermViewLocation   = "loci.view_location"
	PermChangeLocation = "loci.change_location"
)

// UserAuth represents a user in the system
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type UserAuth struct {
	ID          string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username    string                      `gorm:"unique;not null" json:"username"`
	Password    string                      `gorm:"not null" json:"-"`
	Email       string                      `gorm:"unique;not null" json:"email"`
	Name        string                      `json:"name,omitempty"`
	IsActive    bool                        `gorm:"default:true" json:"isActive"`
	IsStaff     bool                        `gorm:"default:false" json:"isStaff"`
	IsSuperuser bool                        `gorm:"default:false" json:"isSuperuser"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
	LastLogin   *time.Time                  `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for UserAuth model
func (UserAuth) TableName() string {
	return "user_auths"
}

// BeforeCreate assigns a UUID when the caller did not choose one
func (u *UserAuth) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// HasPerm reports whether the user holds perm. Active superusers hold every permission.
func (u *UserAuth) HasPerm(perm string) bool {
	if !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CanViewLocations gates read access to locations and their live channels:
// superusers, or staff holding the view or change permission
func (u *UserAuth) CanViewLocations() bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	return u.IsStaff && (u.HasPerm(PermViewLocation) || u.HasPerm(PermChangeLocation))
}

// CanChangeLocations gates writes
func (u *UserAuth) CanChangeLocations() bool {
	if u == nil || !u.IsActive {
		return false
	}
	return u.IsSuperuser || (u.IsStaff && u.HasPerm(PermChangeLocation))
}
