package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)

type Service interface {
	GetActiveByUserID(ctx context.Context, userID snowflake.ID) (*UserSubscription, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (*UserSubscription, error)
}
