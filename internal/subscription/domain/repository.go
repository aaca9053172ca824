package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DebitRequest describes a conditional balance decrement.
type DebitRequest struct {
	SubscriptionID snowflake.ID
	Amount         int64
	// CountUsage also adds Amount to monthly_credits_used.
	CountUsage bool
	At         time.Time
}

type Repository interface {
	// InsertIfAbsent inserts sub unless the user already has a subscription
	// and returns the stored row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, sub *UserSubscription) (*UserSubscription, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*UserSubscription, error)
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*UserSubscription, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UserSubscription, error)
	// Debit applies the decrement only while the subscription is active and
	// the balance covers Amount. It reports whether a row was changed.
	Debit(ctx context.Context, db *gorm.DB, req DebitRequest) (bool, error)
}
