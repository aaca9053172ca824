package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
)

var (
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrInsufficientCredits  = errors.New("insufficient_credits")
	ErrItemNotFound         = errors.New("item_not_found")
	ErrInvalidItem          = errors.New("invalid_item")
	ErrStoreUnavailable     = errors.New("store_unavailable")
	// ErrIdempotencyKeyReused is returned when a key already charged one item
	// is presented for another.
	ErrIdempotencyKeyReused = errors.New("idempotency_key_reused")
)

type WatchRequest struct {
	UserID         snowflake.ID
	ItemKind       ItemKind
	ItemID         snowflake.ID
	IdempotencyKey string
}

// WatchResult is returned on success and alongside ErrInsufficientCredits,
// where History is nil and Balance is the unchanged balance.
type WatchResult struct {
	Status  WatchStatus   `json:"status"`
	Balance int64         `json:"balance"`
	History *WatchHistory `json:"history,omitempty"`
}

type HistoryListResponse struct {
	pagination.PageInfo
	History []*WatchHistory `json:"history"`
}

type Service interface {
	AttemptWatch(ctx context.Context, req WatchRequest) (*WatchResult, error)
	ListHistory(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*HistoryListResponse, error)
}
