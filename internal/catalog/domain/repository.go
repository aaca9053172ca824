package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListChannels(ctx context.Context, filter ChannelFilter) ([]Channel, error)
	FindChannel(ctx context.Context, id snowflake.ID) (*Channel, error)
	CreateChannel(ctx context.Context, channel *Channel) error
	UpdateChannel(ctx context.Context, id snowflake.ID, fields map[string]any) error
	DeleteChannel(ctx context.Context, id snowflake.ID) error

	ListContent(ctx context.Context, filter ContentFilter) ([]ContentItem, error)
	FindContent(ctx context.Context, id snowflake.ID) (*ContentItem, error)
	CreateContent(ctx context.Context, item *ContentItem) error
	UpdateContent(ctx context.Context, id snowflake.ID, fields map[string]any) error
	DeleteContent(ctx context.Context, id snowflake.ID) error
}
