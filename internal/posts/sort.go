package posts

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortDueDate   SortField = "due_date"
	SortTitle     SortField = "title"
	SortBrand     SortField = "brand"
	SortPlatform  SortField = "platform"
	SortStatus    SortField = "status"
	SortPayment   SortField = "payment"
)

var sortFieldAliases = map[string]SortField{
	"createdat": SortCreatedAt,
	"updatedat": SortUpdatedAt,
	"duedate":   SortDueDate,
}

// ParseSortField accepts snake_case names and their camelCase forms.
func ParseSortField(s string) (SortField, error) {
	if s == "" {
		return SortCreatedAt, nil
	}
	f := SortField(s)
	if _, ok := sortColumns[f]; ok {
		return f, nil
	}
	if alias, ok := sortFieldAliases[strings.ToLower(s)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, s)
}

func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToUpper(s) {
	case "":
		return Desc, nil
	case string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidInput, s)
}

var sortColumns = map[SortField]string{
	SortCreatedAt: "created_at",
	SortUpdatedAt: "updated_at",
	SortDueDate:   "due_date",
	SortTitle:     "title",
	SortBrand:     "brand",
	SortPlatform:  "platform",
	SortStatus:    "status",
	SortPayment:   "payment",
}

func (f SortField) isTime() bool {
	return f == SortCreatedAt || f == SortUpdatedAt || f == SortDueDate
}

// sortKey holds one sort column value; which member is set depends on the field.
type sortKey struct {
	t time.Time
	n float64
	s string
}

func keyOf(p *Post, f SortField) sortKey {
	switch f {
	case SortCreatedAt:
		return sortKey{t: p.CreatedAt}
	case SortUpdatedAt:
		return sortKey{t: p.UpdatedAt}
	case SortDueDate:
		return sortKey{t: p.DueDate}
	case SortPayment:
		return sortKey{n: p.Payment}
	case SortTitle:
		return sortKey{s: p.Title}
	case SortBrand:
		return sortKey{s: p.Brand}
	case SortPlatform:
		return sortKey{s: string(p.Platform)}
	case SortStatus:
		return sortKey{s: string(p.Status)}
	}
	return sortKey{}
}

func (k sortKey) String(f SortField) string {
	switch {
	case f.isTime():
		return k.t.UTC().Format(time.RFC3339Nano)
	case f == SortPayment:
		return strconv.FormatFloat(k.n, 'f', -1, 64)
	}
	return k.s
}

// value is the SQL parameter for the key.
func (k sortKey) value(f SortField) any {
	switch {
	case f.isTime():
		return k.t
	case f == SortPayment:
		return k.n
	}
	return k.s
}

func parseKey(f SortField, s string) (sortKey, error) {
	switch {
	case f.isTime():
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return sortKey{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		return sortKey{t: t}, nil
	case f == SortPayment:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return sortKey{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		return sortKey{n: n}, nil
	}
	return sortKey{s: s}, nil
}

func compareKeys(f SortField, a, b sortKey) int {
	switch {
	case f.isTime():
		return a.t.Compare(b.t)
	case f == SortPayment:
		return cmp.Compare(a.n, b.n)
	}
	return strings.Compare(a.s, b.s)
}
