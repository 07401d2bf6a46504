package posts

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps posts and their versions in process. Versions are
// dropped with their post, mirroring the cascading foreign key in Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	posts    map[uuid.UUID]*Post
	versions map[uuid.UUID][]*PostVersion
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[uuid.UUID]*Post),
		versions: make(map[uuid.UUID][]*PostVersion),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (m *MemoryStore) Posts() Repository { return memoryPosts{m} }

func (m *MemoryStore) Versions() VersionRepository { return memoryVersions{m} }

// All returns a copy of every stored post.
func (m *MemoryStore) All(context.Context) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memoryPosts struct{ m *MemoryStore }

var _ Repository = memoryPosts{}

func (r memoryPosts) Create(_ context.Context, f Fields) (*Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := r.m.now()
	f.Payment = RoundPayment(f.Payment)
	p := &Post{ID: uuid.New(), Fields: f, CreatedAt: now, UpdatedAt: now}
	r.m.posts[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r memoryPosts) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func matches(p *Post, f Filter) bool {
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.Platform != nil && p.Platform != *f.Platform {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.DueDateFrom != nil && p.DueDate.Before(*f.DueDateFrom) {
		return false
	}
	if f.DueDateTo != nil && p.DueDate.After(*f.DueDateTo) {
		return false
	}
	return true
}

func (r memoryPosts) filtered(f Filter) []*Post {
	var out []*Post
	for _, p := range r.m.posts {
		if matches(p, f) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

// comparePosts orders ascending by the sort key, then by id.
func comparePosts(field SortField, a, b *Post) int {
	if c := compareKeys(field, keyOf(a, field), keyOf(b, field)); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// afterCursor reports whether p sorts strictly past the cursor in the list order.
func afterCursor(p *Post, params ListParams, after sortKey) bool {
	c := compareKeys(params.SortBy, keyOf(p, params.SortBy), after)
	if c == 0 {
		c = strings.Compare(p.ID.String(), params.After.ID.String())
	}
	if params.Order == Asc {
		return c > 0
	}
	return c < 0
}

// reachable returns the filtered posts, dropping those at or before params.After.
func (r memoryPosts) reachable(params ListParams) ([]*Post, error) {
	var after sortKey
	if params.After != nil {
		k, err := parseKey(params.SortBy, params.After.Value)
		if err != nil {
			return nil, err
		}
		after = k
	}

	r.m.mu.RLock()
	candidates := r.filtered(params.Filter)
	r.m.mu.RUnlock()

	if params.After == nil {
		return candidates, nil
	}
	out := candidates[:0]
	for _, p := range candidates {
		if afterCursor(p, params, after) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memoryPosts) List(_ context.Context, params ListParams) ([]*Post, error) {
	candidates, err := r.reachable(params)
	if err != nil {
		return nil, err
	}

	sign := -1
	if params.Order == Asc {
		sign = 1
	}
	slices.SortFunc(candidates, func(a, b *Post) int {
		return sign * comparePosts(params.SortBy, a, b)
	})
	if len(candidates) > params.Limit {
		candidates = candidates[:params.Limit]
	}
	return candidates, nil
}

func (r memoryPosts) ListOffset(_ context.Context, filter Filter, limit, offset int) ([]*Post, error) {
	r.m.mu.RLock()
	candidates := r.filtered(filter)
	r.m.mu.RUnlock()

	slices.SortFunc(candidates, func(a, b *Post) int {
		return -comparePosts(SortCreatedAt, a, b)
	})
	if offset >= len(candidates) {
		return nil, nil
	}
	end := min(offset+limit, len(candidates))
	return candidates[offset:end], nil
}

func (r memoryPosts) Count(_ context.Context, params ListParams) (int64, error) {
	candidates, err := r.reachable(params)
	if err != nil {
		return 0, err
	}
	return int64(len(candidates)), nil
}

func (r memoryPosts) Update(_ context.Context, id uuid.UUID, f Fields) (*Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.Payment = RoundPayment(f.Payment)
	p.Fields = f
	p.UpdatedAt = r.m.now()
	cp := *p
	return &cp, nil
}

func (r memoryPosts) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.posts, id)
	delete(r.m.versions, id)
	return nil
}

type memoryVersions struct{ m *MemoryStore }

var _ VersionRepository = memoryVersions{}

func (r memoryVersions) Create(_ context.Context, postID uuid.UUID, f Fields, changeReason, changedBy string) (*PostVersion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.posts[postID]; !ok {
		return nil, ErrNotFound
	}
	v := &PostVersion{
		ID:           uuid.New(),
		PostID:       postID,
		Fields:       f,
		ChangeReason: changeReason,
		ChangedBy:    changedBy,
		CreatedAt:    r.m.now(),
	}
	r.m.versions[postID] = append(r.m.versions[postID], v)
	cp := *v
	return &cp, nil
}

func (r memoryVersions) ListByPost(_ context.Context, postID uuid.UUID) ([]*PostVersion, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	stored := r.m.versions[postID]
	out := make([]*PostVersion, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		cp := *stored[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r memoryVersions) GetForPost(_ context.Context, postID, versionID uuid.UUID) (*PostVersion, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, v := range r.m.versions[postID] {
		if v.ID == versionID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrVersionNotFound
}
