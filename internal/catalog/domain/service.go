package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrChannelNotFound = errors.New("channel_not_found")
	ErrContentNotFound = errors.New("content_not_found")
)

// ChannelFilter narrows channel listings. Zero OrganizationID lists every
// organization's channels.
type ChannelFilter struct {
	OrganizationID  snowflake.ID
	Search          string
	Category        string
	IncludeInactive bool
}

type ContentFilter struct {
	OrganizationID  snowflake.ID
	Type            ContentType
	Search          string
	Category        string
	IncludeInactive bool
}

type CreateChannelRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	StreamURL    string `json:"stream_url" validate:"omitempty,url"`
	LogoURL      string `json:"logo_url" validate:"omitempty,url"`
	Category     string `json:"category" validate:"max=100"`
	CreditsCost  int64  `json:"credits_cost" validate:"gte=0"`
	IsActive     *bool  `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

// UpdateChannelRequest is a partial update. Nil fields are left unchanged.
type UpdateChannelRequest struct {
	Name         *string `json:"name" validate:"omitnil,max=200"`
	StreamURL    *string `json:"stream_url" validate:"omitempty,url"`
	LogoURL      *string `json:"logo_url" validate:"omitempty,url"`
	Category     *string `json:"category" validate:"omitnil,max=100"`
	CreditsCost  *int64  `json:"credits_cost" validate:"omitnil,gte=0"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

type CreateContentRequest struct {
	Title       string      `json:"title" validate:"required,max=300"`
	Type        ContentType `json:"type" validate:"required,oneof=movie series"`
	Description string      `json:"description" validate:"max=5000"`
	PosterURL   string      `json:"poster_url" validate:"omitempty,url"`
	Category    string      `json:"category" validate:"max=100"`
	CreditsCost int64       `json:"credits_cost" validate:"gte=0"`
	IsActive    *bool       `json:"is_active"`
}

type UpdateContentRequest struct {
	Title       *string      `json:"title" validate:"omitnil,max=300"`
	Type        *ContentType `json:"type" validate:"omitnil,oneof=movie series"`
	Description *string      `json:"description" validate:"omitnil,max=5000"`
	PosterURL   *string      `json:"poster_url" validate:"omitempty,url"`
	Category    *string      `json:"category" validate:"omitnil,max=100"`
	CreditsCost *int64       `json:"credits_cost" validate:"omitnil,gte=0"`
	IsActive    *bool        `json:"is_active"`
}

type Service interface {
	ListChannels(ctx context.Context, filter ChannelFilter) ([]Channel, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]ContentItem, error)
	GetChannel(ctx context.Context, id snowflake.ID) (*Channel, error)
	GetContent(ctx context.Context, id snowflake.ID) (*ContentItem, error)

	CreateChannel(ctx context.Context, orgID snowflake.ID, req CreateChannelRequest) (*Channel, error)
	UpdateChannel(ctx context.Context, id snowflake.ID, req UpdateChannelRequest) (*Channel, error)
	DeleteChannel(ctx context.Context, id snowflake.ID) error
	CreateContent(ctx context.Context, orgID snowflake.ID, req CreateContentRequest) (*ContentItem, error)
	UpdateContent(ctx context.Context, id snowflake.ID, req UpdateContentRequest) (*ContentItem, error)
	DeleteContent(ctx context.Context, id snowflake.ID) error
}
