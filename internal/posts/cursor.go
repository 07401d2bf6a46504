package posts

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Cursor is the keyset position after which the next page starts.
type Cursor struct {
	Value string
	ID    uuid.UUID
}

// EncodeCursor returns base64("<value>_<id>").
func EncodeCursor(value string, id uuid.UUID) string {
	return base64.StdEncoding.EncodeToString([]byte(value + "_" + id.String()))
}

// DecodeCursor splits at the last underscore; ids never contain one, values may.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	s := string(raw)
	i := strings.LastIndexByte(s, '_')
	if i < 0 {
		return Cursor{}, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	id, err := uuid.Parse(s[i+1:])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return Cursor{Value: s[:i], ID: id}, nil
}

func cursorFor(p *Post, field SortField) string {
	return EncodeCursor(keyOf(p, field).String(field), p.ID)
}
