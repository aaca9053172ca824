// Package domain contains the watchable catalog: live channels and on-demand content.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeMovie || t == ContentTypeSeries
}

type Channel struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	StreamURL      string       `gorm:"column:stream_url;type:text" json:"stream_url,omitempty"`
	LogoURL        string       `gorm:"column:logo_url;type:text" json:"logo_url,omitempty"`
	Category       string       `gorm:"type:text" json:"category,omitempty"`
	CreditsCost    int64        `gorm:"column:credits_cost;not null;default:0" json:"credits_cost"`
	IsActive       bool         `gorm:"column:is_active;not null" json:"is_active"`
	DisplayOrder   int          `gorm:"column:display_order;not null;default:0" json:"display_order"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Channel) TableName() string { return "channels" }

type ContentItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID snowflake.ID `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Title          string       `gorm:"type:text;not null" json:"title"`
	Type           ContentType  `gorm:"type:text;not null" json:"type"`
	Description    string       `gorm:"type:text" json:"description,omitempty"`
	PosterURL      string       `gorm:"column:poster_url;type:text" json:"poster_url,omitempty"`
	Category       string       `gorm:"type:text" json:"category,omitempty"`
	CreditsCost    int64        `gorm:"column:credits_cost;not null;default:0" json:"credits_cost"`
	IsActive       bool         `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content" }
