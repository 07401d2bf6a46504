package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyjsx/postdesk/internal/storage"
)

// envelope is the stored object; object stores have no native expiry per read.
type envelope struct {
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Value     json.RawMessage `json:"value"`
}

// Object is a Cache backed by an object store such as S3, so API and worker
// processes share cached results.
type Object struct {
	store  storage.Storage
	prefix string
	now    func() time.Time
}

var _ Cache = (*Object)(nil)

func NewObject(store storage.Storage, prefix string) *Object {
	return &Object{store: store, prefix: prefix, now: time.Now}
}

func (o *Object) objectKey(key string) string {
	return o.prefix + key + ".json"
}

func (o *Object) Get(ctx context.Context, key string, dst any) (bool, error) {
	body, err := o.store.Get(ctx, o.objectKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer body.Close()

	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	if env.ExpiresAt != nil && !o.now().Before(*env.ExpiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(env.Value, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (o *Object) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	env := envelope{Value: raw}
	if ttl > 0 {
		exp := o.now().Add(ttl).UTC()
		env.ExpiresAt = &exp
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return o.store.Put(ctx, o.objectKey(key), bytes.NewReader(data), "application/json")
}
