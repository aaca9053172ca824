package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
)

var (
	ErrUserNotFound = errors.New("user_not_found")
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	List(ctx context.Context, page pagination.Pagination) (*ListResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*User, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

// UpdateRequest carries the admin-editable fields. Nil leaves a field unchanged.
type UpdateRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=200"`
	IsAdmin   *bool   `json:"is_admin"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type ListResponse struct {
	pagination.PageInfo
	Users []*User `json:"users"`
}
