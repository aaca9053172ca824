package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// InsertIfAbsent inserts org unless its slug is taken and returns the
	// stored row for the slug either way.
	InsertIfAbsent(ctx context.Context, org Organization) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
}
