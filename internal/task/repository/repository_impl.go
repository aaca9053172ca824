package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	taskdomain "github.com/smallbiznis/streamhub/internal/task/domain"
	"github.com/smallbiznis/streamhub/pkg/db/option"
	"github.com/smallbiznis/streamhub/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store repository.Repository[taskdomain.Task]
}

func New(db *gorm.DB) taskdomain.Repository {
	return &repo{db: db, store: repository.ProvideStore[taskdomain.Task](db)}
}

func (r *repo) WithTx(tx *gorm.DB) taskdomain.Repository {
	return &repo{db: tx, store: r.store.WithTrx(tx)}
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]*taskdomain.Task, error) {
	return r.store.Find(ctx, &taskdomain.Task{UserID: userID},
		option.WithSortBy(option.WithQuerySortBy("created_at", "desc", map[string]bool{"created_at": true})),
	)
}

func (r *repo) FindOwned(ctx context.Context, userID, id snowflake.ID) (*taskdomain.Task, error) {
	if id == 0 || userID == 0 {
		return nil, taskdomain.ErrTaskNotFound
	}
	task, err := r.store.FindOne(ctx, &taskdomain.Task{ID: id, UserID: userID})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, taskdomain.ErrTaskNotFound
	}
	return task, nil
}

func (r *repo) Insert(ctx context.Context, task *taskdomain.Task) error {
	return r.store.Create(ctx, task)
}

func (r *repo) UpdateOwned(ctx context.Context, userID, id snowflake.ID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&taskdomain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return taskdomain.ErrTaskNotFound
	}
	return nil
}

func (r *repo) DeleteOwned(ctx context.Context, userID, id snowflake.ID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&taskdomain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return taskdomain.ErrTaskNotFound
	}
	return nil
}
