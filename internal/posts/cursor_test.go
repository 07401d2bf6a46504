package posts

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.MustParse("7f4c2a1e-3b5d-4c8e-9f10-2a3b4c5d6e7f")
	tests := []struct {
		name  string
		value string
	}{
		{"timestamp", "2025-02-17T10:30:00.123456Z"},
		{"underscore in value", "snake_case_brand"},
		{"empty value", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeCursor(EncodeCursor(tt.value, id))
			if err != nil {
				t.Fatalf("DecodeCursor: %v", err)
			}
			if c.Value != tt.value || c.ID != id {
				t.Errorf("got %+v", c)
			}
		})
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"missing separator", base64.StdEncoding.EncodeToString([]byte("novalue"))},
		{"bad id", base64.StdEncoding.EncodeToString([]byte("2025-01-01_not-a-uuid"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token)
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("got err %v", err)
			}
		})
	}
}

func TestCursorFor(t *testing.T) {
	p := &Post{
		ID:        uuid.New(),
		Fields:    Fields{Title: "a_b", Payment: 12.5},
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 500, time.UTC),
	}
	tests := []struct {
		field SortField
		want  string
	}{
		{SortCreatedAt, "2025-03-01T08:00:00.0000005Z"},
		{SortTitle, "a_b"},
		{SortPayment, "12.5"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			c, err := DecodeCursor(cursorFor(p, tt.field))
			if err != nil {
				t.Fatalf("DecodeCursor: %v", err)
			}
			if c.Value != tt.want || c.ID != p.ID {
				t.Errorf("got %+v, want value %q", c, tt.want)
			}
			if _, err := parseKey(tt.field, c.Value); err != nil {
				t.Errorf("parseKey: %v", err)
			}
		})
	}
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		in      string
		want    SortField
		wantErr bool
	}{
		{"", SortCreatedAt, false},
		{"created_at", SortCreatedAt, false},
		{"createdAt", SortCreatedAt, false},
		{"dueDate", SortDueDate, false},
		{"payment", SortPayment, false},
		{"id; DROP TABLE posts", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortField(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{"": Desc, "asc": Asc, "DESC": Desc} {
		got, err := ParseSortOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseSortOrder(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSortOrder("sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got err %v", err)
	}
}
