// Package domain contains user profile rows created at sign-up.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the profile for an account. ID equals the account id.
type User struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Email          string       `gorm:"type:text;not null" json:"email"`
	FullName       string       `gorm:"column:full_name;type:text" json:"full_name"`
	OrganizationID snowflake.ID `gorm:"column:organization_id;not null;index" json:"organization_id"`
	IsAdmin        bool         `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	AvatarURL      string       `gorm:"column:avatar_url;type:text" json:"avatar_url,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }
