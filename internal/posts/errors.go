package posts

import "errors"

var (
	ErrNotFound        = errors.New("post not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrNoChange        = errors.New("version matches current state")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCursor   = errors.New("invalid cursor")
	ErrVersionCreate   = errors.New("failed to create version history")
)
