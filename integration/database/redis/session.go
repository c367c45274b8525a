package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/rpcgate/core/session"
)

// SessionBackend stores session payloads as JSON strings under prefix+id.
// Expiry is left to redis.
type SessionBackend struct {
	client redis.UniversalClient
	prefix string
}

var _ session.Backend = (*SessionBackend)(nil)

// SessionOption configures a SessionBackend.
type SessionOption func(*SessionBackend)

// WithKeyPrefix sets the key prefix. The default is "rpcsess:".
func WithKeyPrefix(prefix string) SessionOption {
	return func(b *SessionBackend) {
		b.prefix = prefix
	}
}

// NewSessionBackend creates a session backend on client.
func NewSessionBackend(client redis.UniversalClient, opts ...SessionOption) (*SessionBackend, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	b := &SessionBackend{client: client, prefix: DefaultConfig().SessionPrefix}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewSessionBackendFromConfig creates a session backend using cfg.SessionPrefix.
func NewSessionBackendFromConfig(cfg Config, client redis.UniversalClient, opts ...SessionOption) (*SessionBackend, error) {
	return NewSessionBackend(client, append([]SessionOption{WithKeyPrefix(cfg.SessionPrefix)}, opts...)...)
}

// Load implements session.Backend.
func (b *SessionBackend) Load(ctx context.Context, id string) (session.Values, error) {
	data, err := b.client.Get(ctx, b.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	values, err := session.Decode(data)
	if err != nil {
		return nil, errors.Join(ErrCorruptSession, err)
	}
	return values, nil
}

// Save implements session.Backend.
func (b *SessionBackend) Save(ctx context.Context, id string, values session.Values, ttl time.Duration) error {
	data, err := session.Encode(values)
	if err != nil {
		return errors.Join(session.ErrSaveSession, err)
	}
	if err := b.client.Set(ctx, b.key(id), data, ttl).Err(); err != nil {
		return errors.Join(session.ErrSaveSession, err)
	}
	return nil
}

// Delete implements session.Backend.
func (b *SessionBackend) Delete(ctx context.Context, id string) error {
	if err := b.client.Del(ctx, b.key(id)).Err(); err != nil {
		return errors.Join(session.ErrDeleteSession, err)
	}
	return nil
}

func (b *SessionBackend) key(id string) string {
	return b.prefix + id
}
