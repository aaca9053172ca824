// Package domain contains the subscription plan tiers offered by an organization.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound = errors.New("plan_not_found")
)

// SubscriptionPlan is one tier of an organization's catalog. Prices are
// stored in cents.
type SubscriptionPlan struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID    snowflake.ID `gorm:"column:organization_id;not null;uniqueIndex:ux_subscription_plans_org_name,priority:1" json:"organization_id"`
	Name              string       `gorm:"type:text;not null;uniqueIndex:ux_subscription_plans_org_name,priority:2" json:"name"`
	MaxCredits        int64        `gorm:"column:max_credits;not null" json:"max_credits"`
	PriceMonthlyCents int64        `gorm:"column:price_monthly;not null;default:0" json:"price_monthly_cents"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SubscriptionPlan) TableName() string { return "subscription_plans" }

type Repository interface {
	// InsertIfAbsent inserts plan unless (organization_id, name) exists and
	// returns the stored row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, plan *SubscriptionPlan) (*SubscriptionPlan, error)
	FindByName(ctx context.Context, db *gorm.DB, orgID snowflake.ID, name string) (*SubscriptionPlan, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SubscriptionPlan, error)
	ListByOrganization(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]SubscriptionPlan, error)
}

type Service interface {
	ListByOrganization(ctx context.Context, orgID snowflake.ID) ([]SubscriptionPlan, error)
	GetByID(ctx context.Context, id snowflake.ID) (*SubscriptionPlan, error)
}
