package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "fx:"

const (
	revokeStatusNotFound       int64 = 0
	revokeStatusRevoked        int64 = 1
	revokeStatusAlreadyRevoked int64 = 2
)

const putRefreshScript = `
local ok = redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2])
if not ok then
  return 0
end
redis.call("SADD", KEYS[2], ARGV[3])
local ttl = redis.call("PTTL", KEYS[2])
if ttl < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
end
return 1
`

var putRefreshLua = redis.NewScript(putRefreshScript)

// The revoked flag lives at byte offset 1 of the encoded record (Lua
// strings are 1-indexed, so string.byte position 2). SETRANGE flips it in
// place, making the check-and-flip a single server-side step.
const revokeRefreshScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if string.byte(data, 2) ~= 0 then
  return 2
end
redis.call("SETRANGE", KEYS[1], 1, string.char(1))
return 1
`

var revokeRefreshLua = redis.NewScript(revokeRefreshScript)

const revokeAllRefreshScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local flipped = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  local data = redis.call("GET", key)
  if not data then
    redis.call("SREM", KEYS[1], id)
  elseif string.byte(data, 2) == 0 then
    redis.call("SETRANGE", key, 1, string.char(1))
    flipped = flipped + 1
  end
end
return flipped
`

var revokeAllRefreshLua = redis.NewScript(revokeAllRefreshScript)

const trackAccessScript = `
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[2])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < tonumber(ARGV[3]) then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`

var trackAccessLua = redis.NewScript(trackAccessScript)

const revokeAllAccessScript = `
local entries = redis.call("ZRANGEBYSCORE", KEYS[1], "(" .. ARGV[2], "+inf", "WITHSCORES")
local denied = 0
for i = 1, #entries, 2 do
  local ttl = tonumber(entries[i + 1]) - tonumber(ARGV[2])
  if ttl > 0 then
    redis.call("SET", ARGV[1] .. entries[i], "1", "EX", ttl)
    denied = denied + 1
  end
end
redis.call("DEL", KEYS[1])
return denied
`

var revokeAllAccessLua = redis.NewScript(revokeAllAccessScript)

// RedisStore defines a public type used by fxauth APIs.
//
// RedisStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore wraps a Redis client as a [Store]. All keys are namespaced
// under prefix; the empty string selects the default "fx:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) refreshKey(tokenID string) string {
	return s.prefix + "rt:" + tokenID
}

func (s *RedisStore) subjectRefreshKey(subject string) string {
	return s.prefix + "rtu:" + subject
}

func (s *RedisStore) revokedAccessKey(tokenID string) string {
	return s.prefix + "rad:" + tokenID
}

func (s *RedisStore) subjectAccessKey(subject string) string {
	return s.prefix + "sai:" + subject
}

// PutRefresh describes the putrefresh operation and its observable behavior.
//
// PutRefresh may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) PutRefresh(ctx context.Context, record *RefreshRecord) error {
	if record.TokenID == "" {
		return errors.New("empty token id")
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return errors.New("record already expired")
	}

	blob, err := Encode(record)
	if err != nil {
		return err
	}

	keys := []string{s.refreshKey(record.TokenID), s.subjectRefreshKey(record.Subject)}
	inserted, err := putRefreshLua.Run(ctx, s.redis, keys,
		blob, ttl.Milliseconds(), record.TokenID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if inserted == 0 {
		return ErrConflict
	}
	return nil
}

// GetRefresh describes the getrefresh operation and its observable behavior.
//
// GetRefresh may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) GetRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	blob, err := s.redis.Get(ctx, s.refreshKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	record, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	record.TokenID = tokenID
	return record, nil
}

// RevokeRefresh describes the revokerefresh operation and its observable behavior.
//
// RevokeRefresh may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) RevokeRefresh(ctx context.Context, tokenID string) (bool, error) {
	status, err := revokeRefreshLua.Run(ctx, s.redis,
		[]string{s.refreshKey(tokenID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case revokeStatusRevoked:
		return true, nil
	case revokeStatusNotFound, revokeStatusAlreadyRevoked:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected revoke status: %d", status)
	}
}

// RevokeAllRefreshFor describes the revokeallrefreshfor operation and its observable behavior.
//
// RevokeAllRefreshFor may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) RevokeAllRefreshFor(ctx context.Context, subject string) (int, error) {
	flipped, err := revokeAllRefreshLua.Run(ctx, s.redis,
		[]string{s.subjectRefreshKey(subject)}, s.prefix+"rt:").Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(flipped), nil
}

// AddRevokedAccess describes the addrevokedaccess operation and its observable behavior.
//
// AddRevokedAccess may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) AddRevokedAccess(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past expiry: structural rejection covers it.
		return nil
	}
	if err := s.redis.Set(ctx, s.revokedAccessKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsAccessRevoked describes the isaccessrevoked operation and its observable behavior.
//
// IsAccessRevoked may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) IsAccessRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := s.redis.Exists(ctx, s.revokedAccessKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists == 1, nil
}

// TrackAccess describes the trackaccess operation and its observable behavior.
//
// TrackAccess may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) TrackAccess(ctx context.Context, subject, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	_, err := trackAccessLua.Run(ctx, s.redis,
		[]string{s.subjectAccessKey(subject)},
		expiresAt.Unix(), tokenID, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAllAccessFor describes the revokeallaccessfor operation and its observable behavior.
//
// RevokeAllAccessFor may return an error when input validation, dependency calls, or security checks fail.
func (s *RedisStore) RevokeAllAccessFor(ctx context.Context, subject string) (int, error) {
	denied, err := revokeAllAccessLua.Run(ctx, s.redis,
		[]string{s.subjectAccessKey(subject)},
		s.prefix+"rad:", time.Now().Unix()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(denied), nil
}

// PurgeExpired prunes subject index members whose records expired out from
// under them and trims expired entries from access tracking sets. The
// record and denylist keys themselves carry TTLs, so Redis reclaims those
// on its own; the reported access count is always zero here.
func (s *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var result PurgeResult

	pruned, err := s.pruneRefreshIndexes(ctx)
	if err != nil {
		return result, err
	}
	result.RefreshRemoved = pruned

	if err := s.trimAccessIndexes(ctx, now); err != nil {
		return result, err
	}

	return result, nil
}

func (s *RedisStore) pruneRefreshIndexes(ctx context.Context) (int, error) {
	var pruned int
	iter := s.redis.Scan(ctx, 0, s.prefix+"rtu:*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		members, err := s.redis.SMembers(ctx, indexKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, tokenID := range members {
			exists, err := s.redis.Exists(ctx, s.prefix+"rt:"+tokenID).Result()
			if err != nil {
				return pruned, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if exists == 0 {
				if err := s.redis.SRem(ctx, indexKey, tokenID).Err(); err != nil {
					return pruned, fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return pruned, nil
}

func (s *RedisStore) trimAccessIndexes(ctx context.Context, now time.Time) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+"sai:*", 100).Iterator()
	for iter.Next(ctx) {
		cutoff := fmt.Sprintf("%d", now.Unix())
		if err := s.redis.ZRemRangeByScore(ctx, iter.Val(), "-inf", cutoff).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close describes the close operation and its observable behavior.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
