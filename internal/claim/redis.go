package claim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/model"
)

const (
	handleKeyPrefix = "slotclaim:handle:"
	bucketKeyPrefix = "slotclaim:bucket:"
)

// RedisStore keeps claims in Redis so a consistently-routed multi-instance
// deployment shares one claim table. Every minute an interval covers maps to
// one bucket key; a Lua script checks all buckets and sets them in a single
// step, which gives the same atomic check-and-set the memory store gets from
// its per-organizer lock. Bucket keys expire at the claim TTL; the handle key
// lingers for a grace period past it so a recently expired handle still reads
// back as expired rather than unknown.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// handleGrace is how long a handle key outlives its claim's expiry.
const handleGrace = time.Minute

var acquireScript = redis.NewScript(`
for i = 2, #KEYS do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		return 0
	end
end
for i = 2, #KEYS do
	redis.call('SET', KEYS[i], ARGV[2], 'PX', ARGV[1])
end
redis.call('SET', KEYS[1], ARGV[3], 'PX', ARGV[4])
return 1
`)

var releaseScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local doc = cjson.decode(raw)
for _, key in ipairs(doc.buckets) do
	redis.call('DEL', key)
end
redis.call('DEL', KEYS[1])
return 1
`)

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// WithClock swaps the time source, for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

type redisEnvelope struct {
	Claim   model.SlotClaim `json:"claim"`
	Buckets []string        `json:"buckets"`
}

func handleKey(handle uuid.UUID) string {
	return handleKeyPrefix + handle.String()
}

// bucketKeys returns one key per minute the half-open interval covers.
func bucketKeys(organizerID int64, start, end time.Time) []string {
	first := start.Unix() / 60
	last := (end.Unix() + 59) / 60
	keys := make([]string, 0, last-first)
	for m := first; m < last; m++ {
		keys = append(keys, fmt.Sprintf("%s%d:%d", bucketKeyPrefix, organizerID, m))
	}
	return keys
}

func (s *RedisStore) Acquire(ctx context.Context, c model.SlotClaim) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	buckets := bucketKeys(c.OrganizerID, c.SlotStart, c.SlotEnd)
	envelope, err := json.Marshal(redisEnvelope{Claim: c, Buckets: buckets})
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}

	keys := append([]string{handleKey(c.Handle)}, buckets...)
	handleTTL := ttl + handleGrace
	granted, err := acquireScript.Run(ctx, s.client, keys,
		ttl.Milliseconds(), c.Handle.String(), envelope, handleTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("acquire claim: %w", err)
	}
	if granted == 0 {
		return ErrContended
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, handle uuid.UUID) (*model.SlotClaim, error) {
	raw, err := s.client.Get(ctx, handleKey(handle)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	var envelope redisEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	if envelope.Claim.IsExpired(s.now()) {
		return nil, ErrExpired
	}
	return &envelope.Claim, nil
}

func (s *RedisStore) Release(ctx context.Context, handle uuid.UUID) error {
	if err := releaseScript.Run(ctx, s.client, []string{handleKey(handle)}).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

func (s *RedisStore) LiveForRange(ctx context.Context, organizerID int64, from, to time.Time) ([]model.SlotClaim, error) {
	match := fmt.Sprintf("%s%d:*", bucketKeyPrefix, organizerID)

	seen := make(map[string]struct{})
	var handles []string

	iter := s.client.Scan(ctx, 0, match, 512).Iterator()
	for iter.Next(ctx) {
		handle, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read claim bucket: %w", err)
		}
		if _, ok := seen[handle]; !ok {
			seen[handle] = struct{}{}
			handles = append(handles, handle)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan claim buckets: %w", err)
	}

	var live []model.SlotClaim
	for _, h := range handles {
		parsed, err := uuid.Parse(h)
		if err != nil {
			continue
		}
		c, err := s.Get(ctx, parsed)
		if err == ErrNotFound || err == ErrExpired {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.Overlaps(from, to) {
			live = append(live, *c)
		}
	}
	return live, nil
}

// Sweep is a no-op: Redis expires claim keys natively.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
