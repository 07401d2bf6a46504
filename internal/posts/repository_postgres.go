package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	_ Repository        = (*postgresRepository)(nil)
	_ VersionRepository = (*postgresVersionRepository)(nil)
)

const pqForeignKeyViolation = "23503"

type rowScanner interface {
	Scan(dest ...any) error
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(sqlDB *sql.DB) Repository {
	return &postgresRepository{db: sqlDB}
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Brand, &p.Platform, &p.DueDate,
		&p.Payment, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]*Post, error) {
	defer rows.Close()
	var out []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) Create(ctx context.Context, f Fields) (*Post, error) {
	const query = `
		INSERT INTO posts (id, title, content, brand, platform, due_date, payment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + postColumns
	row := r.db.QueryRowContext(ctx, query, uuid.New(), f.Title, f.Content, f.Brand,
		string(f.Platform), f.DueDate, f.Payment, string(f.Status))
	p, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = $1", id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]*Post, error) {
	query, args, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return scanPosts(rows)
}

func (r *postgresRepository) ListOffset(ctx context.Context, filter Filter, limit, offset int) ([]*Post, error) {
	query, args := buildOffsetQuery(filter, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return scanPosts(rows)
}

func (r *postgresRepository) Count(ctx context.Context, params ListParams) (int64, error) {
	query, args, err := buildCountQuery(params)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, f Fields) (*Post, error) {
	const query = `
		UPDATE posts
		SET title = $2, content = $3, brand = $4, platform = $5, due_date = $6,
			payment = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING ` + postColumns
	row := r.db.QueryRowContext(ctx, query, id, f.Title, f.Content, f.Brand,
		string(f.Platform), f.DueDate, f.Payment, string(f.Status))
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const versionColumns = "id, post_id, title, content, brand, platform, due_date, payment, status, change_reason, changed_by, created_at"

type postgresVersionRepository struct {
	db *sql.DB
}

func NewPostgresVersionRepository(sqlDB *sql.DB) VersionRepository {
	return &postgresVersionRepository{db: sqlDB}
}

func scanVersion(row rowScanner) (*PostVersion, error) {
	var v PostVersion
	var reason, changedBy sql.NullString
	err := row.Scan(&v.ID, &v.PostID, &v.Title, &v.Content, &v.Brand, &v.Platform, &v.DueDate,
		&v.Payment, &v.Status, &reason, &changedBy, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.ChangeReason = reason.String
	v.ChangedBy = changedBy.String
	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *postgresVersionRepository) Create(ctx context.Context, postID uuid.UUID, f Fields, changeReason, changedBy string) (*PostVersion, error) {
	const query = `
		INSERT INTO post_versions (id, post_id, title, content, brand, platform, due_date, payment, status, change_reason, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + versionColumns
	row := r.db.QueryRowContext(ctx, query, uuid.New(), postID, f.Title, f.Content, f.Brand,
		string(f.Platform), f.DueDate, f.Payment, string(f.Status),
		nullString(changeReason), nullString(changedBy))
	v, err := scanVersion(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert version: %w", err)
	}
	return v, nil
}

func (r *postgresVersionRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]*PostVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM post_versions WHERE post_id = $1 ORDER BY created_at DESC, id DESC", postID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*PostVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *postgresVersionRepository) GetForPost(ctx context.Context, postID, versionID uuid.UUID) (*PostVersion, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM post_versions WHERE id = $1 AND post_id = $2", versionID, postID)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}
