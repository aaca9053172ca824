package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/clock"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"github.com/smallbiznis/streamhub/pkg/validation"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  userdomain.Repository
	clock clock.Clock
}

func NewService(log *zap.Logger, repo userdomain.Repository, clk clock.Clock) userdomain.Service {
	return &Service{
		log:   log.Named("user.service"),
		repo:  repo,
		clock: clk,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) (*userdomain.ListResponse, error) {
	rows, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	users, info := pagination.BuildCursorPageInfo(rows, page.Limit(), func(u *userdomain.User) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: u.ID.String()})
		return token
	})
	return &userdomain.ListResponse{PageInfo: *info, Users: users}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req userdomain.UpdateRequest) (*userdomain.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.IsAdmin != nil {
		fields["is_admin"] = *req.IsAdmin
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if len(fields) == 0 {
		return s.repo.FindByID(ctx, id)
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	if req.IsAdmin != nil {
		s.log.Info("user admin flag changed",
			zap.String("user_id", id.String()),
			zap.Bool("is_admin", *req.IsAdmin),
		)
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes the profile row. Subscription, history and tasks are
// removed by the schema's cascading foreign keys.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}
