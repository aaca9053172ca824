package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/cache"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/realtime"
	"github.com/smallbiznis/streamhub/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	Repo      catalogdomain.Repository
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cache     cache.CatalogCache `optional:"true"`
	Publisher realtime.Publisher `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	repo      catalogdomain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	cache     cache.CatalogCache
	publisher realtime.Publisher
}

func NewService(p ServiceParam) catalogdomain.Service {
	return &Service{
		log:       p.Log.Named("catalog.service"),
		repo:      p.Repo,
		genID:     p.GenID,
		clock:     p.Clock,
		cache:     p.Cache,
		publisher: p.Publisher,
	}
}

func (s *Service) ListChannels(ctx context.Context, filter catalogdomain.ChannelFilter) ([]catalogdomain.Channel, error) {
	if s.cache != nil {
		if hit, ok := s.cache.GetChannels(filter); ok {
			return hit, nil
		}
	}
	channels, err := s.repo.ListChannels(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetChannels(filter, channels)
	}
	return channels, nil
}

func (s *Service) ListContent(ctx context.Context, filter catalogdomain.ContentFilter) ([]catalogdomain.ContentItem, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, validation.New("type", "oneof", "type must be one of [movie series]")
	}
	if s.cache != nil {
		if hit, ok := s.cache.GetContent(filter); ok {
			return hit, nil
		}
	}
	items, err := s.repo.ListContent(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetContent(filter, items)
	}
	return items, nil
}

func (s *Service) GetChannel(ctx context.Context, id snowflake.ID) (*catalogdomain.Channel, error) {
	return s.repo.FindChannel(ctx, id)
}

func (s *Service) GetContent(ctx context.Context, id snowflake.ID) (*catalogdomain.ContentItem, error) {
	return s.repo.FindContent(ctx, id)
}

func (s *Service) CreateChannel(ctx context.Context, orgID snowflake.ID, req catalogdomain.CreateChannelRequest) (*catalogdomain.Channel, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	channel := &catalogdomain.Channel{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Name:           req.Name,
		StreamURL:      strings.TrimSpace(req.StreamURL),
		LogoURL:        strings.TrimSpace(req.LogoURL),
		Category:       strings.TrimSpace(req.Category),
		CreditsCost:    req.CreditsCost,
		IsActive:       req.IsActive == nil || *req.IsActive,
		DisplayOrder:   req.DisplayOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateChannel(ctx, channel); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, realtime.TableChannels, realtime.OpInsert, channel.ID)
	return channel, nil
}

func (s *Service) UpdateChannel(ctx context.Context, id snowflake.ID, req catalogdomain.UpdateChannelRequest) (*catalogdomain.Channel, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validation.New("name", "required", "name is required")
		}
		fields["name"] = name
	}
	setTrimmed(fields, "stream_url", req.StreamURL)
	setTrimmed(fields, "logo_url", req.LogoURL)
	setTrimmed(fields, "category", req.Category)
	if req.CreditsCost != nil {
		fields["credits_cost"] = *req.CreditsCost
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if req.DisplayOrder != nil {
		fields["display_order"] = *req.DisplayOrder
	}
	if len(fields) == 0 {
		return s.repo.FindChannel(ctx, id)
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateChannel(ctx, id, fields); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, realtime.TableChannels, realtime.OpUpdate, id)
	return s.repo.FindChannel(ctx, id)
}

func (s *Service) DeleteChannel(ctx context.Context, id snowflake.ID) error {
	if err := s.repo.DeleteChannel(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, realtime.TableChannels, realtime.OpDelete, id)
	return nil
}

func (s *Service) CreateContent(ctx context.Context, orgID snowflake.ID, req catalogdomain.CreateContentRequest) (*catalogdomain.ContentItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := &catalogdomain.ContentItem{
		ID:             s.genID.Generate(),
		OrganizationID: orgID,
		Title:          req.Title,
		Type:           req.Type,
		Description:    strings.TrimSpace(req.Description),
		PosterURL:      strings.TrimSpace(req.PosterURL),
		Category:       strings.TrimSpace(req.Category),
		CreditsCost:    req.CreditsCost,
		IsActive:       req.IsActive == nil || *req.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateContent(ctx, item); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, realtime.TableContent, realtime.OpInsert, item.ID)
	return item, nil
}

func (s *Service) UpdateContent(ctx context.Context, id snowflake.ID, req catalogdomain.UpdateContentRequest) (*catalogdomain.ContentItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, validation.New("title", "required", "title is required")
		}
		fields["title"] = title
	}
	if req.Type != nil {
		fields["type"] = string(*req.Type)
	}
	setTrimmed(fields, "description", req.Description)
	setTrimmed(fields, "poster_url", req.PosterURL)
	setTrimmed(fields, "category", req.Category)
	if req.CreditsCost != nil {
		fields["credits_cost"] = *req.CreditsCost
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return s.repo.FindContent(ctx, id)
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateContent(ctx, id, fields); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, realtime.TableContent, realtime.OpUpdate, id)
	return s.repo.FindContent(ctx, id)
}

func (s *Service) DeleteContent(ctx context.Context, id snowflake.ID) error {
	if err := s.repo.DeleteContent(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, realtime.TableContent, realtime.OpDelete, id)
	return nil
}

func (s *Service) afterWrite(ctx context.Context, table string, op realtime.Op, id snowflake.ID) {
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.log.Info("catalog changed",
		zap.String("table", table),
		zap.String("op", string(op)),
		zap.String("id", id.String()),
	)
	if s.publisher != nil {
		s.publisher.Publish(ctx, realtime.Change{
			Table:    table,
			Op:       op,
			RecordID: id,
			At:       s.clock.Now(),
		})
	}
}

func setTrimmed(fields map[string]any, column string, value *string) {
	if value != nil {
		fields[column] = strings.TrimSpace(*value)
	}
}
