package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/postdesk/internal/analytics"
	"github.com/jeremyjsx/postdesk/internal/cache"
	"github.com/jeremyjsx/postdesk/internal/posts"
)

type testServer struct {
	mux   *http.ServeMux
	store *posts.MemoryStore
	queue *analytics.LocalQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := posts.NewMemoryStore()
	svc := posts.NewService(store.Posts(), store.Versions(), nil, logger)

	c := cache.NewMemory()
	proc := analytics.NewProcessor(analytics.NewMemorySource(store), c, time.Hour, logger)
	q := analytics.NewLocalQueue(proc, 1, time.Second, logger)
	t.Cleanup(func() { _ = q.Close() })

	mux := http.NewServeMux()
	Register(mux,
		NewPostsHandler(svc, logger),
		NewAnalyticsHandler(analytics.NewService(c, q, logger), 5*time.Second, logger),
		Health(&HealthDeps{}),
	)
	return &testServer{mux: mux, store: store, queue: q}
}

func (s *testServer) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %s)", err, rec.Body.String())
	}
	return v
}

type errorBody struct {
	Error APIError `json:"error"`
}

const validPost = `{"title":"Launch","content":"Copy","brand":"Acme","platform":"INSTAGRAM","due_date":"2025-02-17","payment":99.5}`

func (s *testServer) createPost(t *testing.T, body string) posts.Post {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/posts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[posts.Post](t, rec)
}

func TestPostsHandler_Create(t *testing.T) {
	s := newTestServer(t)
	post := s.createPost(t, validPost)

	if post.ID == uuid.Nil || post.Title != "Launch" || post.Status != posts.Draft {
		t.Errorf("got %+v", post)
	}
	if !post.DueDate.Equal(time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due date %v", post.DueDate)
	}
}

func TestPostsHandler_Create_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/posts", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPostsHandler_Create_UnknownField(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/posts", `{"title":"x","slug":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPostsHandler_Create_ValidationError(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/posts",
		`{"title":"","content":"c","brand":"b","platform":"MYSPACE","due_date":"soon","payment":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code %q", body.Error.Code)
	}
	for _, field := range []string{"title", "platform", "due_date", "payment"} {
		if _, ok := body.Error.Details[field]; !ok {
			t.Errorf("missing detail for %s: %v", field, body.Error.Details)
		}
	}
}

func TestPostsHandler_Get(t *testing.T) {
	s := newTestServer(t)
	created := s.createPost(t, validPost)

	t.Run("found", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/posts/"+created.ID.String(), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		if got := decode[posts.Post](t, rec); got.ID != created.ID {
			t.Errorf("got id %s", got.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/posts/"+uuid.NewString(), "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/posts/not-a-uuid", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPostsHandler_UpdateAndVersions(t *testing.T) {
	s := newTestServer(t)
	created := s.createPost(t, validPost)
	path := "/posts/" + created.ID.String()

	rec := s.do(t, http.MethodPut, path, `{"title":"Relaunch","status":"SCHEDULED"}`,
		"X-Change-Reason", "new campaign", "X-Changed-By", "dana")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decode[posts.Post](t, rec)
	if updated.Title != "Relaunch" || updated.Status != posts.Scheduled || updated.Brand != "Acme" {
		t.Errorf("got %+v", updated)
	}

	rec = s.do(t, http.MethodGet, path+"/versions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("versions: status %d", rec.Code)
	}
	versions := decode[[]posts.PostVersion](t, rec)
	if len(versions) != 1 {
		t.Fatalf("got %d versions", len(versions))
	}
	v := versions[0]
	if v.Title != "Launch" || v.ChangeReason != "new campaign" || v.ChangedBy != "dana" {
		t.Errorf("version %+v", v)
	}

	t.Run("revert", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path+"/revert/"+v.ID.String(), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("revert: status %d, body %s", rec.Code, rec.Body.String())
		}
		if got := decode[posts.Post](t, rec); got.Title != "Launch" || got.Status != posts.Draft {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("revert again is rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path+"/revert/"+v.ID.String(), "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path+"/revert/"+uuid.NewString(), "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestPostsHandler_Update_Errors(t *testing.T) {
	s := newTestServer(t)
	created := s.createPost(t, validPost)
	path := "/posts/" + created.ID.String()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty patch", path, `{}`, http.StatusBadRequest},
		{"negative payment", path, `{"payment":-3}`, http.StatusBadRequest},
		{"payment beyond column precision", path, `{"payment":100000000}`, http.StatusBadRequest},
		{"blank title", path, `{"title":""}`, http.StatusBadRequest},
		{"bad status", path, `{"status":"LIVE"}`, http.StatusBadRequest},
		{"missing post", "/posts/" + uuid.NewString(), `{"title":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := s.do(t, http.MethodGet, path+"/versions", "")
	if versions := decode[[]posts.PostVersion](t, rec); len(versions) != 0 {
		t.Errorf("rejected updates created %d versions", len(versions))
	}
}

func TestPostsHandler_Delete(t *testing.T) {
	s := newTestServer(t)
	created := s.createPost(t, validPost)
	path := "/posts/" + created.ID.String()

	if rec := s.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, path+"/versions", ""); rec.Code != http.StatusNotFound {
		t.Errorf("versions after delete: status %d", rec.Code)
	}
}

func TestPostsHandler_List(t *testing.T) {
	s := newTestServer(t)
	for i := range 7 {
		platform := "INSTAGRAM"
		if i%2 == 1 {
			platform = "TIKTOK"
		}
		s.createPost(t, fmt.Sprintf(
			`{"title":"Post %d","content":"c","brand":"Acme","platform":%q,"due_date":"2025-03-%02d","payment":%d}`,
			i, platform, i+1, i*10))
	}

	t.Run("follows cursor to the end", func(t *testing.T) {
		seen := map[uuid.UUID]bool{}
		target := "/posts?limit=3&sort_by=payment&order=ASC"
		for pages := 0; pages < 5; pages++ {
			rec := s.do(t, http.MethodGet, target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
			}
			page := decode[posts.Page](t, rec)
			if want := int64(7 - len(seen)); page.Meta.Total != want {
				t.Errorf("page %d total %d, want %d", pages, page.Meta.Total, want)
			}
			for _, p := range page.Posts {
				seen[p.ID] = true
			}
			if !page.Meta.HasMore {
				break
			}
			target = "/posts?limit=3&sort_by=payment&order=ASC&cursor=" + url.QueryEscape(page.Meta.NextCursor)
		}
		if len(seen) != 7 {
			t.Errorf("saw %d posts", len(seen))
		}
	})

	t.Run("filters", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/posts?platform=TIKTOK&due_date_from=2025-03-03&due_date_to=2025-03-06", "")
		page := decode[posts.Page](t, rec)
		if page.Meta.Total != 2 || len(page.Posts) != 2 {
			t.Errorf("got %d of %d", len(page.Posts), page.Meta.Total)
		}
	})

	t.Run("bad parameters", func(t *testing.T) {
		for _, target := range []string{
			"/posts?sort_by=secret",
			"/posts?order=up",
			"/posts?limit=zero",
			"/posts?platform=MYSPACE",
			"/posts?due_date_from=yesterday",
			"/posts?cursor=%25%25%25",
		} {
			if rec := s.do(t, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: status %d", target, rec.Code)
			}
		}
	})

	t.Run("offset listing", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/posts?page=2&limit=5", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		result := decode[posts.ListResult](t, rec)
		if len(result.Posts) != 2 || result.Total != 7 || result.TotalPages != 2 || result.Page != 2 {
			t.Errorf("got %+v", result)
		}
	})
}

func TestPostsHandler_List_DueDateToIsInclusiveInstant(t *testing.T) {
	s := newTestServer(t)
	s.createPost(t, `{"title":"Afternoon","content":"c","brand":"Acme","platform":"FACEBOOK","due_date":"2025-04-10T15:00:00Z","payment":5}`)
	s.createPost(t, `{"title":"Midnight","content":"c","brand":"Acme","platform":"FACEBOOK","due_date":"2025-04-10","payment":5}`)

	tests := []struct {
		query string
		want  int64
	}{
		{"due_date_to=2025-04-10", 1},
		{"due_date_to=2025-04-10T23:59:59Z", 2},
		{"due_date_from=2025-04-10&due_date_to=2025-04-10", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page := decode[posts.Page](t, s.do(t, http.MethodGet, "/posts?"+tt.query, ""))
			if page.Meta.Total != tt.want {
				t.Errorf("total %d, want %d", page.Meta.Total, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decode[healthResponse](t, rec)
	if body.Status != "healthy" || body.Checks["db"] != "skipped" || body.Checks["rabbitmq"] != "skipped" {
		t.Errorf("got %+v", body)
	}
}
