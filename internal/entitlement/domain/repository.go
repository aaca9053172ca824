package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByIdempotencyKey returns nil, nil when no row carries the key.
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, userID snowflake.ID, key string) (*WatchHistory, error)
	// Insert reports false when a row with the same (user_id, idempotency_key)
	// already exists.
	Insert(ctx context.Context, db *gorm.DB, entry *WatchHistory) (bool, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, page pagination.Pagination) ([]*WatchHistory, error)
}
