package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/redis/go-redis/v9"
)

const (
	fieldSubject    = "subject"
	fieldPurpose    = "purpose"
	fieldCodeHash   = "code_hash"
	fieldExpiresAt  = "expires_at"
	fieldAttempts   = "attempts"
	fieldIsUsed     = "is_used"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
	fieldPending    = "pending"
	fieldSuperseded = "superseded"
)

// settlePendingLua is the shared tail that returns one reservation.
const settlePendingLua = `
local pending = tonumber(redis.call('HGET', KEYS[1], 'pending') or '0')
if pending > 0 then
  redis.call('HINCRBY', KEYS[1], 'pending', -1)
end
`

// reserveAttemptLua claims a comparison slot while attempts plus pending
// reservations stay below the limit.
// KEYS[1] = record key
// ARGV[1] = max attempts
//
// Returns -1 when the record is missing or used, 0 when the budget is
// spent, and 1 when a slot was reserved.
var reserveAttemptLua = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_used') ~= '0' then
  return -1
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
local pending = tonumber(redis.call('HGET', KEYS[1], 'pending') or '0')
if attempts + pending >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'pending', 1)
return 1
`)

// releaseAttemptLua returns a reservation without counting an attempt.
// KEYS[1] = record key
var releaseAttemptLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
` + settlePendingLua + `
return 1
`)

// incrementAttemptsLua bumps the attempt counter of an unused record.
// KEYS[1] = record key
// ARGV[1] = updated_at (unix nanos)
//
// Returns the new attempt count, or nil when the record is missing or used.
var incrementAttemptsLua = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_used') ~= '0' then
  return false
end
` + settlePendingLua + `
local n = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return n
`)

// markUsedLua flips is_used from 0 to 1 exactly once.
// KEYS[1] = record key
// ARGV[1] = updated_at (unix nanos)
var markUsedLua = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'is_used') ~= '0' then
  return false
end
` + settlePendingLua + `
redis.call('HSET', KEYS[1], 'is_used', '1', 'updated_at', ARGV[1])
return 1
`)

// RedisCodeStore keeps one hash per code record and a sorted-set index per
// (purpose, subject) ordered by creation time.
type RedisCodeStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisCodeStore returns a store rooted at prefix. retention is a safety
// TTL for abandoned records; zero keeps records until the flow deletes them.
func NewRedisCodeStore(redisClient redis.UniversalClient, prefix string, retention time.Duration) *RedisCodeStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisCodeStore{
		redis:     redisClient,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisCodeStore) indexKey(subject string, purpose codes.Purpose) string {
	return s.prefix + ":idx:" + string(purpose) + ":" + subject
}

func (s *RedisCodeStore) recordKey(id string) string {
	return s.prefix + ":rec:" + id
}

func (s *RedisCodeStore) DeleteActive(ctx context.Context, subject string, purpose codes.Purpose) error {
	const maxRetries = 4
	index := s.indexKey(subject, purpose)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			ids, err := tx.ZRange(ctx, index, 0, -1).Result()
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, id := range ids {
					pipe.Del(ctx, s.recordKey(id))
				}
				pipe.Del(ctx, index)
				return nil
			})
			return err
		}, index)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: delete contention on %s", codes.ErrStoreUnavailable, index)
}

func (s *RedisCodeStore) Create(ctx context.Context, record *codes.Record) error {
	if record == nil || record.ID == "" {
		return errors.New("code record requires an id")
	}

	index := s.indexKey(record.Subject, record.Purpose)
	key := s.recordKey(record.ID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeCodeRecord(record))
		pipe.ZAdd(ctx, index, redis.Z{
			Score:  float64(record.CreatedAt.UnixMilli()),
			Member: record.ID,
		})
		if s.retention > 0 {
			pipe.Expire(ctx, key, s.retention)
			pipe.Expire(ctx, index, s.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisCodeStore) FindLatestUnused(ctx context.Context, subject string, purpose codes.Purpose) (*codes.Record, error) {
	return s.findLatest(ctx, subject, purpose, false)
}

func (s *RedisCodeStore) FindLatestUsed(ctx context.Context, subject string, purpose codes.Purpose) (*codes.Record, error) {
	return s.findLatest(ctx, subject, purpose, true)
}

func (s *RedisCodeStore) findLatest(ctx context.Context, subject string, purpose codes.Purpose, used bool) (*codes.Record, error) {
	ids, err := s.redis.ZRevRange(ctx, s.indexKey(subject, purpose), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, codes.ErrRecordNotFound
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		record, err := decodeCodeRecord(ids[i], fields)
		if err != nil {
			return nil, err
		}
		if record.IsUsed == used {
			return record, nil
		}
	}

	return nil, codes.ErrRecordNotFound
}

func (s *RedisCodeStore) ReserveAttempt(ctx context.Context, record *codes.Record, maxAttempts int) error {
	status, err := reserveAttemptLua.Run(ctx, s.redis, []string{s.recordKey(record.ID)}, maxAttempts).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	switch status {
	case 1:
		return nil
	case 0:
		return codes.ErrAttemptsExhausted
	default:
		return codes.ErrRecordNotFound
	}
}

func (s *RedisCodeStore) ReleaseAttempt(ctx context.Context, record *codes.Record) error {
	if err := releaseAttemptLua.Run(ctx, s.redis, []string{s.recordKey(record.ID)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisCodeStore) IncrementAttempts(ctx context.Context, record *codes.Record, now time.Time) (*codes.Record, error) {
	attempts, err := incrementAttemptsLua.Run(ctx, s.redis, []string{s.recordKey(record.ID)}, now.UnixNano()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, codes.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	updated := *record
	updated.Attempts = int(attempts)
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *RedisCodeStore) MarkUsed(ctx context.Context, record *codes.Record, now time.Time) (*codes.Record, error) {
	err := markUsedLua.Run(ctx, s.redis, []string{s.recordKey(record.ID)}, now.UnixNano()).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, codes.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	updated := *record
	updated.IsUsed = true
	updated.UpdatedAt = now
	return &updated, nil
}

// encodeCodeRecord newline-joins superseded hashes since encoded digests
// contain commas.
func encodeCodeRecord(record *codes.Record) map[string]interface{} {
	used := "0"
	if record.IsUsed {
		used = "1"
	}
	return map[string]interface{}{
		fieldSubject:    record.Subject,
		fieldPurpose:    string(record.Purpose),
		fieldCodeHash:   record.CodeHash,
		fieldExpiresAt:  strconv.FormatInt(record.ExpiresAt.UnixNano(), 10),
		fieldAttempts:   strconv.Itoa(record.Attempts),
		fieldIsUsed:     used,
		fieldCreatedAt:  strconv.FormatInt(record.CreatedAt.UnixNano(), 10),
		fieldUpdatedAt:  strconv.FormatInt(record.UpdatedAt.UnixNano(), 10),
		fieldPending:    "0",
		fieldSuperseded: strings.Join(record.Superseded, "\n"),
	}
}

func decodeCodeRecord(id string, fields map[string]string) (*codes.Record, error) {
	expiresAt, err := parseUnixNano(fields[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldExpiresAt, err)
	}
	createdAt, err := parseUnixNano(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldCreatedAt, err)
	}
	updatedAt, err := parseUnixNano(fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldUpdatedAt, err)
	}
	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldAttempts, err)
	}

	var superseded []string
	if raw := fields[fieldSuperseded]; raw != "" {
		superseded = strings.Split(raw, "\n")
	}

	return &codes.Record{
		ID:         id,
		Subject:    fields[fieldSubject],
		Purpose:    codes.Purpose(fields[fieldPurpose]),
		CodeHash:   fields[fieldCodeHash],
		ExpiresAt:  expiresAt,
		Attempts:   attempts,
		IsUsed:     fields[fieldIsUsed] == "1",
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		Superseded: superseded,
	}, nil
}

func parseUnixNano(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
