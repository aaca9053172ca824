package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	"github.com/smallbiznis/streamhub/pkg/db/option"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() entitlementdomain.Repository {
	return &repo{}
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, userID snowflake.ID, key string) (*entitlementdomain.WatchHistory, error) {
	if key == "" {
		return nil, nil
	}
	var entry entitlementdomain.WatchHistory
	err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *entitlementdomain.WatchHistory) (bool, error) {
	stmt := db.WithContext(ctx)
	if entry.IdempotencyKey != nil {
		stmt = stmt.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		})
	}
	res := stmt.Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, page pagination.Pagination) ([]*entitlementdomain.WatchHistory, error) {
	var rows []*entitlementdomain.WatchHistory
	stmt := option.ApplyPagination(page).Apply(db.WithContext(ctx).Where("user_id = ?", userID))
	if err := stmt.Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
