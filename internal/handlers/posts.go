package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jeremyjsx/postdesk/internal/posts"
)

type PostsHandler struct {
	svc    *posts.Service
	logger *slog.Logger
}

func NewPostsHandler(svc *posts.Service, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		svc:    svc,
		logger: logger,
	}
}

type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,max=255"`
	Content  string   `json:"content" validate:"required"`
	Brand    string   `json:"brand" validate:"required,max=255"`
	Platform string   `json:"platform" validate:"required,platform"`
	DueDate  string   `json:"due_date" validate:"required,date"`
	Payment  *float64 `json:"payment" validate:"required,gte=0,lte=99999999.99"`
	Status   string   `json:"status" validate:"omitempty,status"`
}

func (req CreatePostRequest) fields() posts.Fields {
	due, _ := parseDate(req.DueDate)
	return posts.Fields{
		Title:    req.Title,
		Content:  req.Content,
		Brand:    req.Brand,
		Platform: posts.Platform(req.Platform),
		DueDate:  due,
		Payment:  *req.Payment,
		Status:   posts.Status(req.Status),
	}
}

type UpdatePostRequest struct {
	Title    *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Content  *string  `json:"content" validate:"omitempty,min=1"`
	Brand    *string  `json:"brand" validate:"omitempty,min=1,max=255"`
	Platform *string  `json:"platform" validate:"omitempty,platform"`
	DueDate  *string  `json:"due_date" validate:"omitempty,date"`
	Payment  *float64 `json:"payment" validate:"omitempty,gte=0,lte=99999999.99"`
	Status   *string  `json:"status" validate:"omitempty,status"`
}

func (req UpdatePostRequest) patch() posts.Patch {
	p := posts.Patch{
		Title:   req.Title,
		Content: req.Content,
		Brand:   req.Brand,
		Payment: req.Payment,
	}
	if req.Platform != nil {
		v := posts.Platform(*req.Platform)
		p.Platform = &v
	}
	if req.Status != nil {
		v := posts.Status(*req.Status)
		p.Status = &v
	}
	if req.DueDate != nil {
		due, _ := parseDate(*req.DueDate)
		p.DueDate = &due
	}
	return p
}

func (h *PostsHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", validationDetails(err))
			return
		}

		post, err := h.svc.CreatePost(r.Context(), req.fields())
		if err != nil {
			writeServiceError(w, r, h.logger, "create post failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, post)
	}
}

// parseFilter reads the shared listing filters; details is non-empty on bad input.
func parseFilter(q url.Values) (posts.Filter, map[string]string) {
	var f posts.Filter
	details := map[string]string{}

	f.Brand = q.Get("brand")
	if s := q.Get("platform"); s != "" {
		p := posts.Platform(s)
		if !p.Valid() {
			details["platform"] = "must be one of " + joinValues(posts.Platforms)
		}
		f.Platform = &p
	}
	if s := q.Get("status"); s != "" {
		st := posts.Status(s)
		if !st.Valid() {
			details["status"] = "must be one of " + joinValues(posts.Statuses)
		}
		f.Status = &st
	}
	if s := q.Get("due_date_from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			details["due_date_from"] = "must be YYYY-MM-DD or RFC3339"
		}
		f.DueDateFrom = &t
	}
	// both bounds are inclusive; a bare date means midnight UTC of that day
	if s := q.Get("due_date_to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			details["due_date_to"] = "must be YYYY-MM-DD or RFC3339"
		}
		f.DueDateTo = &t
	}
	return f, details
}

func parsePositive(q url.Values, key string, details map[string]string) int {
	s := q.Get(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		details[key] = "must be a positive integer"
		return 0
	}
	return n
}

// cursorParam restores '+' characters that query decoding turned into spaces.
func cursorParam(q url.Values) string {
	return strings.ReplaceAll(q.Get("cursor"), " ", "+")
}

func (h *PostsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter, details := parseFilter(q)
		limit := parsePositive(q, "limit", details)

		sortBy, err := posts.ParseSortField(q.Get("sort_by"))
		if err != nil {
			details["sort_by"] = "unknown sort field"
		}
		order, err := posts.ParseSortOrder(q.Get("order"))
		if err != nil {
			details["order"] = "must be ASC or DESC"
		}
		if len(details) > 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid query parameters", details)
			return
		}

		page, err := h.svc.ListPosts(r.Context(), posts.ListParams{
			Filter: filter,
			Limit:  limit,
			SortBy: sortBy,
			Order:  order,
		}, cursorParam(q))
		if err != nil {
			writeServiceError(w, r, h.logger, "list posts failed", err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// ListOffset serves the page/limit listing kept for older clients.
func (h *PostsHandler) ListOffset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter, details := parseFilter(q)
		page := parsePositive(q, "page", details)
		limit := parsePositive(q, "limit", details)
		if len(details) > 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid query parameters", details)
			return
		}

		result, err := h.svc.ListPostsOffset(r.Context(), page, limit, filter)
		if err != nil {
			writeServiceError(w, r, h.logger, "list posts failed", err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", name+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *PostsHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		post, err := h.svc.GetPost(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "get post failed", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		var req UpdatePostRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", validationDetails(err))
			return
		}
		patch := req.patch()
		if patch.Empty() {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "no fields to update", nil)
			return
		}

		post, err := h.svc.UpdatePost(r.Context(), id, patch,
			r.Header.Get("X-Change-Reason"), r.Header.Get("X-Changed-By"))
		if err != nil {
			writeServiceError(w, r, h.logger, "update post failed", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		if err := h.svc.DeletePost(r.Context(), id); err != nil {
			writeServiceError(w, r, h.logger, "delete post failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *PostsHandler) Versions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		versions, err := h.svc.ListVersions(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "list versions failed", err)
			return
		}
		writeJSON(w, http.StatusOK, versions)
	}
}

func (h *PostsHandler) Revert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		versionID, ok := pathUUID(w, r, "versionId")
		if !ok {
			return
		}
		post, err := h.svc.RevertPost(r.Context(), id, versionID)
		if err != nil {
			writeServiceError(w, r, h.logger, "revert post failed", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}
