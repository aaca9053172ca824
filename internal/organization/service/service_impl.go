package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/organization/domain"
	"go.uber.org/zap"
)

type service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(log *zap.Logger, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{
		log:   log.Named("organization.service"),
		repo:  repo,
		genID: genID,
		clock: clk,
	}
}

func (s *service) GetBySlug(ctx context.Context, rawSlug string) (*domain.Organization, error) {
	value := NormalizeSlug(rawSlug)
	if value == "" {
		return nil, domain.ErrInvalidSlug
	}
	return s.repo.FindBySlug(ctx, value)
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrOrganizationNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) Ensure(ctx context.Context, rawSlug, name string) (*domain.Organization, error) {
	org, err := BuildOrganization(s.genID, s.clock, rawSlug, name)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.InsertIfAbsent(ctx, org)
	if err != nil {
		return nil, err
	}
	if stored.ID == org.ID {
		s.log.Info("organization created", zap.String("slug", stored.Slug))
	}
	return stored, nil
}

// NormalizeSlug lower-cases and hyphenates raw into a URL-safe slug.
func NormalizeSlug(raw string) string {
	return slug.Make(strings.TrimSpace(raw))
}

// BuildOrganization prepares a new organization row for slug. The name
// defaults to the slug when empty.
func BuildOrganization(genID *snowflake.Node, clk clock.Clock, rawSlug, name string) (domain.Organization, error) {
	value := NormalizeSlug(rawSlug)
	if value == "" {
		return domain.Organization{}, domain.ErrInvalidSlug
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = value
	}
	now := clk.Now()
	return domain.Organization{
		ID:        genID.Generate(),
		Name:      name,
		Slug:      value,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
