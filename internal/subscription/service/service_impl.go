package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo subscriptiondomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo subscriptiondomain.Repository
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("subscription.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetActiveByUserID(ctx context.Context, userID snowflake.ID) (*subscriptiondomain.UserSubscription, error) {
	return s.repo.FindActiveByUserID(ctx, s.db, userID)
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (*subscriptiondomain.UserSubscription, error) {
	return s.repo.FindByUserID(ctx, s.db, userID)
}
