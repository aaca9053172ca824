package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound = errors.New("task_not_found")
)

type CreateRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Description string `json:"description" validate:"max=5000"`
}

type UpdateRequest struct {
	Title       *string `json:"title" validate:"omitnil,max=500"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
	Completed   *bool   `json:"completed"`
}

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]*Task, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*Task, error)
	Update(ctx context.Context, userID, id snowflake.ID, req UpdateRequest) (*Task, error)
	Delete(ctx context.Context, userID, id snowflake.ID) error
}

// Repository scopes every lookup and write to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID snowflake.ID) ([]*Task, error)
	FindOwned(ctx context.Context, userID, id snowflake.ID) (*Task, error)
	Insert(ctx context.Context, task *Task) error
	UpdateOwned(ctx context.Context, userID, id snowflake.ID, fields map[string]any) error
	DeleteOwned(ctx context.Context, userID, id snowflake.ID) error
}
