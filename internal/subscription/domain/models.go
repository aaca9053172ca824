// Package domain contains the credit-bearing subscription held by each user.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// UserSubscription holds the spendable balance. A user has at most one.
// current_credits never exceeds monthly_credits_limit and never goes below
// zero.
type UserSubscription struct {
	ID                  snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID              snowflake.ID       `gorm:"column:user_id;not null;uniqueIndex:ux_user_subscriptions_user" json:"user_id"`
	PlanID              snowflake.ID       `gorm:"column:plan_id;not null;index" json:"plan_id"`
	OrganizationID      snowflake.ID       `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Status              SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	CurrentCredits      int64              `gorm:"column:current_credits;not null" json:"current_credits"`
	MonthlyCreditsLimit int64              `gorm:"column:monthly_credits_limit;not null" json:"monthly_credits_limit"`
	MonthlyCreditsUsed  int64              `gorm:"column:monthly_credits_used;not null;default:0" json:"monthly_credits_used"`
	CreatedAt           time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserSubscription) TableName() string { return "user_subscriptions" }

func (s UserSubscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
