package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	"github.com/smallbiznis/streamhub/pkg/db/option"
	"github.com/smallbiznis/streamhub/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	channels repository.Repository[catalogdomain.Channel]
	content  repository.Repository[catalogdomain.ContentItem]
}

func New(db *gorm.DB) catalogdomain.Repository {
	return &repo{
		channels: repository.ProvideStore[catalogdomain.Channel](db),
		content:  repository.ProvideStore[catalogdomain.ContentItem](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) catalogdomain.Repository {
	return &repo{
		channels: r.channels.WithTrx(tx),
		content:  r.content.WithTrx(tx),
	}
}

func (r *repo) ListChannels(ctx context.Context, filter catalogdomain.ChannelFilter) ([]catalogdomain.Channel, error) {
	opts := []option.QueryOption{}
	if filter.OrganizationID != 0 {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "organization_id", Operator: option.EQ, Value: filter.OrganizationID}))
	}
	if !filter.IncludeInactive {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_active", Operator: option.EQ, Value: true}))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "name", Operator: option.ILIKE, Value: search}))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "category", Operator: option.EQ, Value: category}))
	}
	opts = append(opts, option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc").Order("name asc").Order("id asc")
	}))

	rows, err := r.channels.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (r *repo) FindChannel(ctx context.Context, id snowflake.ID) (*catalogdomain.Channel, error) {
	if id == 0 {
		return nil, catalogdomain.ErrChannelNotFound
	}
	channel, err := r.channels.FindOne(ctx, &catalogdomain.Channel{ID: id})
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, catalogdomain.ErrChannelNotFound
	}
	return channel, nil
}

func (r *repo) CreateChannel(ctx context.Context, channel *catalogdomain.Channel) error {
	return r.channels.Create(ctx, channel)
}

func (r *repo) UpdateChannel(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	affected, err := r.channels.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalogdomain.ErrChannelNotFound
	}
	return nil
}

func (r *repo) DeleteChannel(ctx context.Context, id snowflake.ID) error {
	affected, err := r.channels.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalogdomain.ErrChannelNotFound
	}
	return nil
}

func (r *repo) ListContent(ctx context.Context, filter catalogdomain.ContentFilter) ([]catalogdomain.ContentItem, error) {
	opts := []option.QueryOption{}
	if filter.OrganizationID != 0 {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "organization_id", Operator: option.EQ, Value: filter.OrganizationID}))
	}
	if !filter.IncludeInactive {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_active", Operator: option.EQ, Value: true}))
	}
	if filter.Type != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "type", Operator: option.EQ, Value: string(filter.Type)}))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "title", Operator: option.ILIKE, Value: search}))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "category", Operator: option.EQ, Value: category}))
	}
	opts = append(opts, option.WithSortBy(option.WithQuerySortBy("created_at", "desc", map[string]bool{"created_at": true})))

	rows, err := r.content.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (r *repo) FindContent(ctx context.Context, id snowflake.ID) (*catalogdomain.ContentItem, error) {
	if id == 0 {
		return nil, catalogdomain.ErrContentNotFound
	}
	item, err := r.content.FindOne(ctx, &catalogdomain.ContentItem{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, catalogdomain.ErrContentNotFound
	}
	return item, nil
}

func (r *repo) CreateContent(ctx context.Context, item *catalogdomain.ContentItem) error {
	return r.content.Create(ctx, item)
}

func (r *repo) UpdateContent(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	affected, err := r.content.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalogdomain.ErrContentNotFound
	}
	return nil
}

func (r *repo) DeleteContent(ctx context.Context, id snowflake.ID) error {
	affected, err := r.content.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalogdomain.ErrContentNotFound
	}
	return nil
}

func deref[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out
}
