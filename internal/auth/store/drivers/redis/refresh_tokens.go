// Package redis keeps refresh records in Redis. Identities and tenants stay in
// SQL; only the refresh store can be moved here.
//
// Layout under the configured prefix:
//
//	<p>:seq             INCR counter for record ids
//	<p>:rec:<id>        hash {identity, exp, created}, EXPIREAT exp
//	<p>:identity:<uid>  set of record ids owned by uid
//	<p>:expiry          zset of "<id>:<uid>" scored by exp
//
// Every mutation is a Lua script so the keys above never disagree.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix is used when NewRefreshTokens is given an empty prefix.
const DefaultPrefix = "authcore:refresh"

// createBody needs the locals prefix, identity, exp and created, and leaves
// the new record id in the local id.
const createBody = `
local id = redis.call("INCR", prefix .. ":seq")
local key = prefix .. ":rec:" .. id
redis.call("HSET", key, "identity", identity, "exp", exp, "created", created)
redis.call("EXPIREAT", key, tonumber(exp))
redis.call("SADD", prefix .. ":identity:" .. identity, id)
redis.call("ZADD", prefix .. ":expiry", tonumber(exp), id .. ":" .. identity)
`

var createLua = goredis.NewScript(`
local prefix = ARGV[1]
local identity = ARGV[2]
local exp = ARGV[3]
local created = ARGV[4]
` + createBody + `
return id
`)

// rotateLua returns 0 when the old record is absent or owned by someone else.
var rotateLua = goredis.NewScript(`
local prefix = ARGV[1]
local old = ARGV[2]
local identity = ARGV[3]
local exp = ARGV[4]
local created = ARGV[5]

local oldKey = prefix .. ":rec:" .. old
local owner = redis.call("HGET", oldKey, "identity")
if not owner or owner ~= identity then
  return 0
end
redis.call("DEL", oldKey)
redis.call("SREM", prefix .. ":identity:" .. identity, old)
redis.call("ZREM", prefix .. ":expiry", old .. ":" .. identity)
` + createBody + `
return id
`)

var deleteLua = goredis.NewScript(`
local prefix = ARGV[1]
local id = ARGV[2]
local key = prefix .. ":rec:" .. id
local owner = redis.call("HGET", key, "identity")
if not owner then
  return 0
end
redis.call("DEL", key)
redis.call("SREM", prefix .. ":identity:" .. owner, id)
redis.call("ZREM", prefix .. ":expiry", id .. ":" .. owner)
return 1
`)

var deleteByIdentityLua = goredis.NewScript(`
local prefix = ARGV[1]
local identity = ARGV[2]
local setKey = prefix .. ":identity:" .. identity
local ids = redis.call("SMEMBERS", setKey)
local n = 0
for _, id in ipairs(ids) do
  n = n + redis.call("DEL", prefix .. ":rec:" .. id)
  redis.call("ZREM", prefix .. ":expiry", id .. ":" .. identity)
end
redis.call("DEL", setKey)
return n
`)

var deleteExpiredLua = goredis.NewScript(`
local prefix = ARGV[1]
local now = ARGV[2]
local members = redis.call("ZRANGEBYSCORE", prefix .. ":expiry", "-inf", now)
for _, m in ipairs(members) do
  local id, identity = string.match(m, "^(%d+):(%d+)$")
  if id then
    redis.call("DEL", prefix .. ":rec:" .. id)
    redis.call("SREM", prefix .. ":identity:" .. identity, id)
  end
end
redis.call("ZREMRANGEBYSCORE", prefix .. ":expiry", "-inf", now)
return #members
`)

// RefreshTokens implements store.RefreshTokens on a Redis client.
type RefreshTokens struct {
	client goredis.UniversalClient
	prefix string
}

var _ store.RefreshTokens = (*RefreshTokens)(nil)

func NewRefreshTokens(client goredis.UniversalClient, prefix string) *RefreshTokens {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RefreshTokens{client: client, prefix: prefix}
}

// Ping verifies the Redis connection is still alive.
func (r *RefreshTokens) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RefreshTokens) Create(ctx context.Context, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	exp := expiresAt.UTC().Truncate(time.Second)

	id, err := createLua.Run(ctx, r.client, nil,
		r.prefix, fmtID(identityID), exp.Unix(), now.Unix(),
	).Int64()
	if err != nil {
		return domain.RefreshRecord{}, err
	}

	return domain.RefreshRecord{ID: id, IdentityID: identityID, ExpiresAt: exp, CreatedAt: now}, nil
}

func (r *RefreshTokens) FindByID(ctx context.Context, id int64) (domain.RefreshRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	if len(fields) == 0 {
		return domain.RefreshRecord{}, store.ErrNotFound
	}

	identityID, err1 := strconv.ParseInt(fields["identity"], 10, 64)
	exp, err2 := strconv.ParseInt(fields["exp"], 10, 64)
	created, err3 := strconv.ParseInt(fields["created"], 10, 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return domain.RefreshRecord{}, errors.Join(errCorruptRecord, err)
	}

	return domain.RefreshRecord{
		ID:         id,
		IdentityID: identityID,
		ExpiresAt:  time.Unix(exp, 0).UTC(),
		CreatedAt:  time.Unix(created, 0).UTC(),
	}, nil
}

func (r *RefreshTokens) DeleteByID(ctx context.Context, id int64) error {
	return deleteLua.Run(ctx, r.client, nil, r.prefix, fmtID(id)).Err()
}

func (r *RefreshTokens) Rotate(
	ctx context.Context,
	oldID, identityID int64,
	expiresAt time.Time,
) (domain.RefreshRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	exp := expiresAt.UTC().Truncate(time.Second)

	id, err := rotateLua.Run(ctx, r.client, nil,
		r.prefix, fmtID(oldID), fmtID(identityID), exp.Unix(), now.Unix(),
	).Int64()
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	if id == 0 {
		return domain.RefreshRecord{}, store.ErrNotFound
	}

	return domain.RefreshRecord{ID: id, IdentityID: identityID, ExpiresAt: exp, CreatedAt: now}, nil
}

func (r *RefreshTokens) DeleteByIdentity(ctx context.Context, identityID int64) (int64, error) {
	return deleteByIdentityLua.Run(ctx, r.client, nil, r.prefix, fmtID(identityID)).Int64()
}

func (r *RefreshTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return deleteExpiredLua.Run(ctx, r.client, nil, r.prefix, now.Unix()).Int64()
}

var errCorruptRecord = errors.New("redis: corrupt refresh record")

func (r *RefreshTokens) recordKey(id int64) string {
	return r.prefix + ":rec:" + fmtID(id)
}

func fmtID(id int64) string { return strconv.FormatInt(id, 10) }
