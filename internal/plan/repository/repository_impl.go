package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, plan *plandomain.SubscriptionPlan) (*plandomain.SubscriptionPlan, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(plan).Error
	if err != nil {
		return nil, err
	}
	return r.FindByName(ctx, db, plan.OrganizationID, plan.Name)
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, orgID snowflake.ID, name string) (*plandomain.SubscriptionPlan, error) {
	var plan plandomain.SubscriptionPlan
	err := db.WithContext(ctx).
		Where("organization_id = ? AND name = ?", orgID, name).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, plandomain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*plandomain.SubscriptionPlan, error) {
	var plan plandomain.SubscriptionPlan
	err := db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, plandomain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ListByOrganization(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]plandomain.SubscriptionPlan, error) {
	var plans []plandomain.SubscriptionPlan
	err := db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("max_credits ASC").
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}
