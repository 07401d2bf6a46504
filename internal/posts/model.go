package posts

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	Instagram Platform = "INSTAGRAM"
	Facebook  Platform = "FACEBOOK"
	Twitter   Platform = "TWITTER"
	LinkedIn  Platform = "LINKEDIN"
	TikTok    Platform = "TIKTOK"
)

var Platforms = []Platform{Instagram, Facebook, Twitter, LinkedIn, TikTok}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

type Status string

const (
	Draft     Status = "DRAFT"
	Scheduled Status = "SCHEDULED"
	Published Status = "PUBLISHED"
	Cancelled Status = "CANCELLED"
)

var Statuses = []Status{Draft, Scheduled, Published, Cancelled}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Fields is the mutable part of a post. Versions snapshot exactly these.
type Fields struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Brand    string    `json:"brand"`
	Platform Platform  `json:"platform"`
	DueDate  time.Time `json:"due_date"`
	Payment  float64   `json:"payment"`
	Status   Status    `json:"status"`
}

// Equal compares field values; payment is compared at cent precision.
func (f Fields) Equal(o Fields) bool {
	return f.Title == o.Title &&
		f.Content == o.Content &&
		f.Brand == o.Brand &&
		f.Platform == o.Platform &&
		f.DueDate.Equal(o.DueDate) &&
		cents(f.Payment) == cents(o.Payment) &&
		f.Status == o.Status
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// MaxPayment is the largest amount a NUMERIC(10,2) column holds.
const MaxPayment = 99999999.99

// RoundPayment truncates a payment to the two decimals the store keeps.
func RoundPayment(v float64) float64 {
	return float64(cents(v)) / 100
}

type Post struct {
	ID uuid.UUID `json:"id"`
	Fields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostVersion struct {
	ID     uuid.UUID `json:"id"`
	PostID uuid.UUID `json:"post_id"`
	Fields
	ChangeReason string    `json:"change_reason,omitempty"`
	ChangedBy    string    `json:"changed_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Patch holds the fields an update sets; nil means unchanged.
type Patch struct {
	Title    *string
	Content  *string
	Brand    *string
	Platform *Platform
	DueDate  *time.Time
	Payment  *float64
	Status   *Status
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Brand == nil && p.Platform == nil &&
		p.DueDate == nil && p.Payment == nil && p.Status == nil
}

func (p Patch) Apply(f Fields) Fields {
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Content != nil {
		f.Content = *p.Content
	}
	if p.Brand != nil {
		f.Brand = *p.Brand
	}
	if p.Platform != nil {
		f.Platform = *p.Platform
	}
	if p.DueDate != nil {
		f.DueDate = *p.DueDate
	}
	if p.Payment != nil {
		f.Payment = *p.Payment
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	return f
}

type Filter struct {
	Brand       string
	Platform    *Platform
	Status      *Status
	DueDateFrom *time.Time
	DueDateTo   *time.Time
}

type SortOrder string

const (
	Asc  SortOrder = "ASC"
	Desc SortOrder = "DESC"
)

type ListParams struct {
	Filter
	Limit  int
	SortBy SortField
	Order  SortOrder
	After  *Cursor
}

type PageMeta struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	Total      int64  `json:"total"`
}

type Page struct {
	Posts []*Post  `json:"data"`
	Meta  PageMeta `json:"meta"`
}

type ListResult struct {
	Posts      []*Post `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}
