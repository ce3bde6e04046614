// Package natskv implements the cache port on a NATS JetStream KV bucket,
// shared between ChatForge instances as the L2 level.
package natskv

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// headerLen is the size of the expiry prefix stored before every value.
const headerLen = 8

// Cache stores values in a KV bucket. The bucket TTL is an upper bound;
// each value also carries its own expiry so that shorter TTLs hold.
type Cache struct {
	kv  jetstream.KeyValue
	now func() time.Time
}

// New creates a KV-backed cache.
func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// kvKey maps an arbitrary cache key onto the KV key alphabet. Idempotency
// keys are client-supplied and may contain characters KV rejects.
func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// encode prefixes value with its expiry in unix nanoseconds; zero means none.
func encode(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, headerLen+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expiresAt.UnixNano())) //nolint:gosec // post-1970 timestamps
	}
	copy(buf[headerLen:], value)
	return buf
}

func decode(raw []byte) (value []byte, expiresAt time.Time, ok bool) {
	if len(raw) < headerLen {
		return nil, time.Time{}, false
	}
	if n := binary.BigEndian.Uint64(raw); n != 0 {
		expiresAt = time.Unix(0, int64(n)) //nolint:gosec // written by encode
	}
	return raw[headerLen:], expiresAt, true
}

// Get returns the value for key. Expired and undecodable entries are misses.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, expiresAt, valid := decode(entry.Value())
	if !valid || (!expiresAt.IsZero() && !c.now().Before(expiresAt)) {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value. A non-positive ttl leaves expiry to the bucket.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	_, err := c.kv.Put(ctx, kvKey(key), encode(value, expiresAt))
	return err
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
