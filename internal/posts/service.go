package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jeremyjsx/postdesk/internal/events"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type Service struct {
	repo      Repository
	versions  VersionRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, versions VersionRepository, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		versions:  versions,
		publisher: publisher,
		logger:    logger,
	}
}

// ValidateFields checks the invariants every stored post satisfies.
func ValidateFields(f Fields) error {
	var problems []string
	if strings.TrimSpace(f.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(f.Content) == "" {
		problems = append(problems, "content is required")
	}
	if strings.TrimSpace(f.Brand) == "" {
		problems = append(problems, "brand is required")
	}
	if !f.Platform.Valid() {
		problems = append(problems, fmt.Sprintf("unknown platform %q", f.Platform))
	}
	if !f.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.DueDate.IsZero() {
		problems = append(problems, "due date is required")
	}
	if f.Payment < 0 {
		problems = append(problems, "payment must not be negative")
	}
	if f.Payment > MaxPayment {
		problems = append(problems, fmt.Sprintf("payment must not exceed %.2f", MaxPayment))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (s *Service) CreatePost(ctx context.Context, f Fields) (*Post, error) {
	if f.Status == "" {
		f.Status = Draft
	}
	f.Payment = RoundPayment(f.Payment)
	if err := ValidateFields(f); err != nil {
		return nil, err
	}
	post, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypePostCreated, post)
	if post.Status == Published {
		s.publish(ctx, events.TypePostPublished, post)
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.repo.GetByID(ctx, id)
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ListPosts pages through posts with a keyset cursor. An extra row is fetched
// to tell whether another page follows. Meta.Total counts the filtered posts
// not yet passed by the cursor.
func (s *Service) ListPosts(ctx context.Context, params ListParams, cursor string) (*Page, error) {
	params.Limit = normalizeLimit(params.Limit)
	sortBy, err := ParseSortField(string(params.SortBy))
	if err != nil {
		return nil, err
	}
	params.SortBy = sortBy
	order, err := ParseSortOrder(string(params.Order))
	if err != nil {
		return nil, err
	}
	params.Order = order
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		if _, err := parseKey(params.SortBy, c.Value); err != nil {
			return nil, err
		}
		params.After = &c
	}

	limit := params.Limit
	params.Limit = limit + 1
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	// total counts the rows from the cursor onwards, this page included
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, err
	}

	page := &Page{Posts: rows, Meta: PageMeta{Total: total}}
	if len(rows) > limit {
		page.Posts = rows[:limit]
		page.Meta.HasMore = true
		page.Meta.NextCursor = cursorFor(page.Posts[limit-1], params.SortBy)
	}
	if page.Posts == nil {
		page.Posts = []*Post{}
	}
	return page, nil
}

func (s *Service) ListPostsOffset(ctx context.Context, page, perPage int, filter Filter) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	perPage = normalizeLimit(perPage)

	offset := (page - 1) * perPage

	posts, err := s.repo.ListOffset(ctx, filter, perPage, offset)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*Post{}
	}

	total, err := s.repo.Count(ctx, ListParams{Filter: filter})
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	return &ListResult{
		Posts:      posts,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) snapshot(ctx context.Context, post *Post, reason, changedBy string) error {
	if _, err := s.versions.Create(ctx, post.ID, post.Fields, reason, changedBy); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrVersionCreate, err)
	}
	return nil
}

// UpdatePost records the current state as a version, then applies the patch.
func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, patch Patch, reason, changedBy string) (*Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := patch.Apply(post.Fields)
	next.Payment = RoundPayment(next.Payment)
	if err := ValidateFields(next); err != nil {
		return nil, err
	}

	if err := s.snapshot(ctx, post, reason, changedBy); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, next)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypePostUpdated, updated)
	if post.Status != Published && updated.Status == Published {
		s.publish(ctx, events.TypePostPublished, updated)
	}
	return updated, nil
}

func (s *Service) ListVersions(ctx context.Context, id uuid.UUID) ([]*PostVersion, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []*PostVersion{}
	}
	return versions, nil
}

// RevertPost restores the fields of one of the post's versions. Reverting to a
// version equal to the current state is rejected with ErrNoChange.
func (s *Service) RevertPost(ctx context.Context, id, versionID uuid.UUID) (*Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version, err := s.versions.GetForPost(ctx, id, versionID)
	if err != nil {
		return nil, err
	}
	if post.Fields.Equal(version.Fields) {
		return nil, ErrNoChange
	}

	if err := s.snapshot(ctx, post, "Reverted to version "+versionID.String(), ""); err != nil {
		return nil, err
	}

	reverted, err := s.repo.Update(ctx, id, version.Fields)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypePostReverted, reverted)
	if post.Status != Published && reverted.Status == Published {
		s.publish(ctx, events.TypePostPublished, reverted)
	}
	return reverted, nil
}

func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.TypePostDeleted, &Post{ID: id})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, p *Post) {
	e := events.New(eventType, events.PostPayload{
		PostID:   p.ID,
		Title:    p.Title,
		Brand:    p.Brand,
		Platform: string(p.Platform),
		Status:   string(p.Status),
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed", "type", eventType, "post_id", p.ID, "error", err)
	}
}
