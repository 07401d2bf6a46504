package posts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// seedStore creates posts whose sort keys collide so paging must rely on the id tiebreak.
func seedStore(t *testing.T, n int) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick/3) * time.Minute)
	}
	ctx := context.Background()
	for i := range n {
		_, err := store.Posts().Create(ctx, Fields{
			Title:    fmt.Sprintf("title_%d", i%4),
			Content:  "body",
			Brand:    []string{"Acme", "Globex", "acme"}[i%3],
			Platform: Platforms[i%len(Platforms)],
			DueDate:  base.AddDate(0, 0, i%5),
			Payment:  float64(i%6) * 12.5,
			Status:   Statuses[i%len(Statuses)],
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return store
}

func TestMemoryList_PagesCoverEveryPostOnce(t *testing.T) {
	const total = 23
	store := seedStore(t, total)
	svc := NewService(store.Posts(), store.Versions(), nil, nil)
	fields := []SortField{SortCreatedAt, SortUpdatedAt, SortDueDate, SortTitle, SortBrand, SortPlatform, SortStatus, SortPayment}

	for _, field := range fields {
		for _, order := range []SortOrder{Asc, Desc} {
			t.Run(fmt.Sprintf("%s_%s", field, order), func(t *testing.T) {
				ctx := context.Background()
				seen := make(map[uuid.UUID]bool)
				var prev *Post
				cursor := ""
				for pages := 0; ; pages++ {
					if pages > total {
						t.Fatal("pagination did not terminate")
					}
					page, err := svc.ListPosts(ctx, ListParams{Limit: 4, SortBy: field, Order: order}, cursor)
					if err != nil {
						t.Fatalf("ListPosts: %v", err)
					}
					if remaining := int64(total - len(seen)); page.Meta.Total != remaining {
						t.Errorf("page %d total = %d, want %d", pages, page.Meta.Total, remaining)
					}
					for _, p := range page.Posts {
						if seen[p.ID] {
							t.Fatalf("post %s returned twice", p.ID)
						}
						seen[p.ID] = true
						if prev != nil {
							c := comparePosts(field, prev, p)
							if (order == Asc && c >= 0) || (order == Desc && c <= 0) {
								t.Fatalf("out of order: %v then %v", keyOf(prev, field), keyOf(p, field))
							}
						}
						prev = p
					}
					if !page.Meta.HasMore {
						if page.Meta.NextCursor != "" {
							t.Error("cursor set on last page")
						}
						break
					}
					cursor = page.Meta.NextCursor
				}
				if len(seen) != total {
					t.Errorf("saw %d posts, want %d", len(seen), total)
				}
			})
		}
	}
}

func TestMemoryList_Filters(t *testing.T) {
	store := seedStore(t, 20)
	ctx := context.Background()
	platform := Twitter
	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	got, err := store.Posts().List(ctx, ListParams{
		Filter: Filter{Brand: "Acme", Platform: &platform, DueDateFrom: &from, DueDateTo: &to},
		Limit:  100,
		SortBy: SortCreatedAt,
		Order:  Desc,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n, err := store.Posts().Count(ctx, ListParams{Filter: Filter{Brand: "Acme", Platform: &platform, DueDateFrom: &from, DueDateTo: &to}})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if int64(len(got)) != n {
		t.Errorf("list %d, count %d", len(got), n)
	}
	for _, p := range got {
		if p.Brand != "Acme" || p.Platform != Twitter || p.DueDate.Before(from) || p.DueDate.After(to) {
			t.Errorf("unexpected post %+v", p.Fields)
		}
	}
}

func TestMemoryList_SecondPageTotalCountsRemainingRows(t *testing.T) {
	store := seedStore(t, 23)
	svc := NewService(store.Posts(), store.Versions(), nil, nil)
	ctx := context.Background()

	first, err := svc.ListPosts(ctx, ListParams{Limit: 10}, "")
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if first.Meta.Total != 23 {
		t.Errorf("first page total = %d, want 23", first.Meta.Total)
	}
	second, err := svc.ListPosts(ctx, ListParams{Limit: 10}, first.Meta.NextCursor)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if second.Meta.Total != 13 {
		t.Errorf("second page total = %d, want 13", second.Meta.Total)
	}
}

func TestMemoryListOffset(t *testing.T) {
	store := seedStore(t, 7)
	ctx := context.Background()
	first, _ := store.Posts().ListOffset(ctx, Filter{}, 5, 0)
	second, _ := store.Posts().ListOffset(ctx, Filter{}, 5, 5)
	beyond, _ := store.Posts().ListOffset(ctx, Filter{}, 5, 10)
	if len(first) != 5 || len(second) != 2 || len(beyond) != 0 {
		t.Errorf("got %d, %d, %d", len(first), len(second), len(beyond))
	}
	if first[0].CreatedAt.Before(second[0].CreatedAt) {
		t.Error("expected newest first")
	}
}

func TestMemoryStore_Versions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store.Posts(), store.Versions(), nil, nil)

	post, err := svc.CreatePost(ctx, sampleFields())
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	original := post.Fields

	t.Run("each update adds one version with prior values", func(t *testing.T) {
		for i, title := range []string{"second", "third"} {
			if _, err := svc.UpdatePost(ctx, post.ID, Patch{Title: strPtr(title)}, "edit", "bob"); err != nil {
				t.Fatalf("UpdatePost: %v", err)
			}
			versions, err := svc.ListVersions(ctx, post.ID)
			if err != nil {
				t.Fatalf("ListVersions: %v", err)
			}
			if len(versions) != i+1 {
				t.Fatalf("versions = %d, want %d", len(versions), i+1)
			}
		}
		versions, _ := svc.ListVersions(ctx, post.ID)
		if versions[0].Title != "second" || versions[1].Title != "Spring launch" {
			t.Errorf("versions newest first: %q, %q", versions[0].Title, versions[1].Title)
		}
	})

	t.Run("revert restores and records", func(t *testing.T) {
		versions, _ := svc.ListVersions(ctx, post.ID)
		oldest := versions[len(versions)-1]

		reverted, err := svc.RevertPost(ctx, post.ID, oldest.ID)
		if err != nil {
			t.Fatalf("RevertPost: %v", err)
		}
		if !reverted.Fields.Equal(original) {
			t.Errorf("got %+v", reverted.Fields)
		}
		after, _ := svc.ListVersions(ctx, post.ID)
		if len(after) != len(versions)+1 {
			t.Errorf("versions = %d", len(after))
		}
		if after[0].Title != "third" || after[0].ChangeReason != "Reverted to version "+oldest.ID.String() {
			t.Errorf("newest version %+v", after[0])
		}

		if _, err := svc.RevertPost(ctx, post.ID, oldest.ID); !errors.Is(err, ErrNoChange) {
			t.Errorf("second revert err = %v", err)
		}
	})

	t.Run("delete cascades versions", func(t *testing.T) {
		if err := svc.DeletePost(ctx, post.ID); err != nil {
			t.Fatalf("DeletePost: %v", err)
		}
		if _, err := svc.GetPost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetPost err = %v", err)
		}
		versions, err := store.Versions().ListByPost(ctx, post.ID)
		if err != nil || len(versions) != 0 {
			t.Errorf("versions = %v, err %v", versions, err)
		}
		if err := svc.DeletePost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete err = %v", err)
		}
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p, _ := store.Posts().Create(ctx, sampleFields())
	p.Title = "mutated"
	got, _ := store.Posts().GetByID(ctx, p.ID)
	if got.Title != "Spring launch" {
		t.Errorf("store shared state: %q", got.Title)
	}
}
