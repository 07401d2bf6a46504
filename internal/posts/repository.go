package posts

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, fields Fields) (*Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	// List returns at most params.Limit posts in keyset order after params.After.
	List(ctx context.Context, params ListParams) ([]*Post, error)
	ListOffset(ctx context.Context, filter Filter, limit, offset int) ([]*Post, error)
	// Count returns the number of filtered posts at or past params.After;
	// Limit is ignored.
	Count(ctx context.Context, params ListParams) (int64, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type VersionRepository interface {
	Create(ctx context.Context, postID uuid.UUID, fields Fields, changeReason, changedBy string) (*PostVersion, error)
	// ListByPost returns versions newest first.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]*PostVersion, error)
	GetForPost(ctx context.Context, postID, versionID uuid.UUID) (*PostVersion, error)
}
