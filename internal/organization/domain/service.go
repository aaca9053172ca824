package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrInvalidSlug          = errors.New("invalid_slug")
)

type Service interface {
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	// Ensure returns the organization for slug, creating it with name when
	// missing. Concurrent callers converge on a single row.
	Ensure(ctx context.Context, slug, name string) (*Organization, error)
}
