package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	repo plandomain.Repository
}

func NewService(db *gorm.DB, repo plandomain.Repository) plandomain.Service {
	return &Service{db: db, repo: repo}
}

func (s *Service) ListByOrganization(ctx context.Context, orgID snowflake.ID) ([]plandomain.SubscriptionPlan, error) {
	return s.repo.ListByOrganization(ctx, s.db, orgID)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*plandomain.SubscriptionPlan, error) {
	return s.repo.FindByID(ctx, s.db, id)
}
