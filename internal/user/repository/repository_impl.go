package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"github.com/smallbiznis/streamhub/pkg/db/option"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"github.com/smallbiznis/streamhub/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[userdomain.User]
}

func New(db *gorm.DB) userdomain.Repository {
	return &repo{db: db, store: repository.ProvideStore[userdomain.User](db)}
}

func (r *repo) WithTx(tx *gorm.DB) userdomain.Repository {
	return &repo{db: tx, store: r.store.WithTrx(tx)}
}

func (r *repo) InsertIfAbsent(ctx context.Context, user *userdomain.User) (*userdomain.User, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, user.ID)
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	if id == 0 {
		return nil, userdomain.ErrUserNotFound
	}
	user, err := r.store.FindOne(ctx, &userdomain.User{ID: id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

func (r *repo) List(ctx context.Context, page pagination.Pagination) ([]*userdomain.User, error) {
	return r.store.Find(ctx, nil,
		option.ApplyPagination(page),
		option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB { return db.Order("id desc") }),
	)
}

func (r *repo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	affected, err := r.store.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if affected == 0 {
		return userdomain.ErrUserNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	affected, err := r.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return userdomain.ErrUserNotFound
	}
	return nil
}
