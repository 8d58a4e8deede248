package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps every Redis transport failure crossing the
// store boundary.
var ErrStoreUnavailable = errors.New("token store unavailable")

// ErrNotFound is returned when a requested record or family row does not
// exist.
var ErrNotFound = errors.New("token record not found")

// ErrFamilyConflict is returned by [Store.RotateFamily] when the presented
// refresh key is not the family's current member at commit time.
var ErrFamilyConflict = errors.New("refresh family conflict")

const (
	rotateStatusMissing  int64 = 0
	rotateStatusConflict int64 = 2
	rotateStatusRotated  int64 = 3
)

const deleteRecordScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("SREM", KEYS[3], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// rotateFamilyScript is the compare-and-append guard for refresh rotation.
// It verifies that the presented refresh key is still the newest chain
// member, appends the replacement member atomically, and trims history
// beyond the configured maximum. Two concurrent rotations on one family
// cannot both pass the check; the loser observes a conflict status.
const rotateFamilyScript = `
local fam_key = KEYS[1]
local member_key = KEYS[2]
local token_index_key = KEYS[3]
local owner_parents_key = KEYS[4]

local provided = ARGV[1]
local next_member = ARGV[2]
local next_score = tonumber(ARGV[3])
local member_blob = ARGV[4]
local parent = ARGV[5]
local max_history = tonumber(ARGV[6])

local current = redis.call("ZRANGE", fam_key, -1, -1)
if #current == 0 then
  return {0}
end
if current[1] ~= provided then
  return {2}
end

redis.call("ZADD", fam_key, next_score, next_member)
redis.call("SET", member_key, member_blob)
redis.call("SET", token_index_key, parent)
redis.call("SADD", owner_parents_key, parent)

local trimmed = {}
if max_history > 0 then
  local count = redis.call("ZCARD", fam_key)
  if count > max_history then
    trimmed = redis.call("ZRANGE", fam_key, 0, count - max_history - 1)
    if #trimmed > 0 then
      redis.call("ZREM", fam_key, unpack(trimmed))
    end
  end
end

return {3, trimmed}
`

var rotateFamilyLua = redis.NewScript(rotateFamilyScript)

// Store persists token records and refresh families in Redis.
//
// Records are versioned binary blobs keyed by digest, with SET indexes by
// lookup key and by owner. Families are ZSETs keyed by the chain parent and
// scored by creation time, so the newest member is always the last element.
//
// Records carry no Redis TTL: expiry is enforced lazily on the access path
// so that expired-but-unobserved rows still exist for limit counting and
// cleanup notification.
type Store struct {
	redis     redis.UniversalClient
	namespace string
}

// NewStore creates a token [Store]. namespace prefixes every key and should
// identify the active token model (swappable deployments use distinct
// namespaces).
func NewStore(client redis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = "bat"
	}
	return &Store{redis: client, namespace: namespace}
}

func (s *Store) recordKey(kind Kind, digest string) string {
	return s.namespace + ":d:" + kind.tag() + ":" + digest
}

func (s *Store) lookupKey(kind Kind, lookup string) string {
	return s.namespace + ":k:" + kind.tag() + ":" + lookup
}

func (s *Store) ownerKey(kind Kind, owner string) string {
	return s.namespace + ":o:" + kind.tag() + ":" + owner
}

func (s *Store) familyKey(parent string) string {
	return s.namespace + ":f:" + parent
}

func (s *Store) memberKey(refreshKey string) string {
	return s.namespace + ":fm:" + refreshKey
}

func (s *Store) tokenIndexKey(tokenKey string) string {
	return s.namespace + ":ft:" + tokenKey
}

func (s *Store) ownerParentsKey(owner string) string {
	return s.namespace + ":fo:" + owner
}

// Save persists one record and both of its indexes in a transaction.
func (s *Store) Save(ctx context.Context, kind Kind, rec *Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(kind, rec.Digest), data, 0)
		pipe.SAdd(ctx, s.lookupKey(kind, rec.LookupKey), rec.Digest)
		pipe.SAdd(ctx, s.ownerKey(kind, rec.Owner), rec.Digest)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetByLookupKey returns every record whose lookup key matches. Lookup keys
// are truncated prefixes, so more than one candidate is possible and the
// caller must verify digests.
func (s *Store) GetByLookupKey(ctx context.Context, kind Kind, lookup string) ([]*Record, error) {
	digests, err := s.redis.SMembers(ctx, s.lookupKey(kind, lookup)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.fetchRecords(ctx, kind, digests)
}

// OwnerRecords returns every record owned by owner, stale index entries
// excluded.
func (s *Store) OwnerRecords(ctx context.Context, kind Kind, owner string) ([]*Record, error) {
	digests, err := s.redis.SMembers(ctx, s.ownerKey(kind, owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.fetchRecords(ctx, kind, digests)
}

func (s *Store) fetchRecords(ctx context.Context, kind Kind, digests []string) ([]*Record, error) {
	if len(digests) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(digests))
	for i, digest := range digests {
		cmds[i] = pipe.Get(ctx, s.recordKey(kind, digest))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	records := make([]*Record, 0, len(digests))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		rec, decErr := DecodeRecord(data)
		if decErr != nil {
			return nil, decErr
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountActive returns the number of owner's records that have not expired
// at nowUnix. Expired rows are counted out but left in place; the access
// path deletes them.
func (s *Store) CountActive(ctx context.Context, kind Kind, owner string, nowUnix int64) (int, error) {
	records, err := s.OwnerRecords(ctx, kind, owner)
	if err != nil {
		return 0, err
	}

	active := 0
	for _, rec := range records {
		if !rec.Expired(nowUnix) {
			active++
		}
	}
	return active, nil
}

// Delete removes one record and both index entries atomically. Deleting a
// record that is already gone is a no-op, so concurrent cleanup and logout
// cannot fail each other.
func (s *Store) Delete(ctx context.Context, kind Kind, rec *Record) error {
	keys := []string{
		s.recordKey(kind, rec.Digest),
		s.lookupKey(kind, rec.LookupKey),
		s.ownerKey(kind, rec.Owner),
	}
	if _, err := deleteRecordLua.Run(ctx, s.redis, keys, rec.Digest).Result(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAllForOwner removes every record of one kind owned by owner.
func (s *Store) DeleteAllForOwner(ctx context.Context, kind Kind, owner string) error {
	records, err := s.OwnerRecords(ctx, kind, owner)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.Del(ctx, s.recordKey(kind, rec.Digest))
			pipe.SRem(ctx, s.lookupKey(kind, rec.LookupKey), rec.Digest)
		}
		pipe.Del(ctx, s.ownerKey(kind, owner))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateExpiry rewrites a record with a new expiry. Renewal is
// last-write-wins on purpose: concurrent renewals of the same token all
// push the expiry forward, so the largest now wins and nothing is lost.
func (s *Store) UpdateExpiry(ctx context.Context, kind Kind, digest string, expiry int64) error {
	data, err := s.redis.Get(ctx, s.recordKey(kind, digest)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	rec.Expiry = expiry

	updated, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.recordKey(kind, digest), updated, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SaveFamily persists a chain row plus its three indexes in a transaction.
// Used at login to create a self-rooted family; rotation appends through
// [Store.RotateFamily] instead.
func (s *Store) SaveFamily(ctx context.Context, m *FamilyMember) error {
	data, err := EncodeFamilyMember(m)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.familyKey(m.Parent), redis.Z{Score: float64(m.Created), Member: m.RefreshKey})
		pipe.Set(ctx, s.memberKey(m.RefreshKey), data, 0)
		pipe.Set(ctx, s.tokenIndexKey(m.TokenKey), m.Parent, 0)
		pipe.SAdd(ctx, s.ownerParentsKey(m.Owner), m.Parent)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// MemberByRefreshKey resolves a chain row from a refresh token's lookup key.
func (s *Store) MemberByRefreshKey(ctx context.Context, refreshKey string) (*FamilyMember, error) {
	data, err := s.redis.Get(ctx, s.memberKey(refreshKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return DecodeFamilyMember(data)
}

// ParentByTokenKey resolves the family parent from an auth token's lookup
// key, or ErrNotFound when the token was issued without a family.
func (s *Store) ParentByTokenKey(ctx context.Context, tokenKey string) (string, error) {
	parent, err := s.redis.Get(ctx, s.tokenIndexKey(tokenKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return parent, nil
}

// FamilyMembers returns the chain rows for parent ordered oldest first.
func (s *Store) FamilyMembers(ctx context.Context, parent string) ([]*FamilyMember, error) {
	refreshKeys, err := s.redis.ZRange(ctx, s.familyKey(parent), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*FamilyMember{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(refreshKeys) == 0 {
		return []*FamilyMember{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(refreshKeys))
	for i, key := range refreshKeys {
		cmds[i] = pipe.Get(ctx, s.memberKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	members := make([]*FamilyMember, 0, len(refreshKeys))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}
		m, decErr := DecodeFamilyMember(data)
		if decErr != nil {
			return nil, decErr
		}
		members = append(members, m)
	}
	return members, nil
}

// OwnerParents returns the family parents rooted by owner's logins.
func (s *Store) OwnerParents(ctx context.Context, owner string) ([]string, error) {
	parents, err := s.redis.SMembers(ctx, s.ownerParentsKey(owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return parents, nil
}

// RotateFamily appends next to the chain if and only if providedRefreshKey
// is still the newest member, trimming history beyond maxHistory. It
// returns the refresh keys trimmed out of the ZSET; the caller removes
// their detached row blobs.
//
// Returns [ErrNotFound] when the family is gone and [ErrFamilyConflict]
// when the presented key lost the compare-and-append race or was already
// superseded.
func (s *Store) RotateFamily(
	ctx context.Context,
	parent string,
	providedRefreshKey string,
	next *FamilyMember,
	maxHistory int,
) ([]string, error) {
	if maxHistory < 1 {
		maxHistory = 1
	}

	blob, err := EncodeFamilyMember(next)
	if err != nil {
		return nil, err
	}

	keys := []string{
		s.familyKey(parent),
		s.memberKey(next.RefreshKey),
		s.tokenIndexKey(next.TokenKey),
		s.ownerParentsKey(next.Owner),
	}
	result, err := rotateFamilyLua.Run(
		ctx,
		s.redis,
		keys,
		providedRefreshKey,
		next.RefreshKey,
		next.Created,
		blob,
		parent,
		maxHistory,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotation script response", ErrStoreUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotation script status", ErrStoreUnavailable)
	}

	switch code {
	case rotateStatusMissing:
		return nil, ErrNotFound
	case rotateStatusConflict:
		return nil, ErrFamilyConflict
	case rotateStatusRotated:
		var trimmed []string
		if len(parts) > 1 {
			raw, ok := parts[1].([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: invalid rotation trim payload", ErrStoreUnavailable)
			}
			for _, v := range raw {
				key, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("%w: invalid rotation trim entry", ErrStoreUnavailable)
				}
				trimmed = append(trimmed, key)
			}
		}
		return trimmed, nil
	default:
		return nil, fmt.Errorf("%w: unknown rotation script status", ErrStoreUnavailable)
	}
}

// DeleteMemberRows removes detached chain rows (blob + token index) for the
// given members. The ZSET entries are assumed gone already.
func (s *Store) DeleteMemberRows(ctx context.Context, members []*FamilyMember) error {
	if len(members) == 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			pipe.Del(ctx, s.memberKey(m.RefreshKey))
			pipe.Del(ctx, s.tokenIndexKey(m.TokenKey))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteFamily removes a whole chain: the ZSET, every member row, and the
// owner-parents entry. Returns the members that were present so the caller
// can void the tokens they reference.
func (s *Store) DeleteFamily(ctx context.Context, parent string) ([]*FamilyMember, error) {
	members, err := s.FamilyMembers(ctx, parent)
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.familyKey(parent))
		for _, m := range members {
			pipe.Del(ctx, s.memberKey(m.RefreshKey))
			pipe.Del(ctx, s.tokenIndexKey(m.TokenKey))
			pipe.SRem(ctx, s.ownerParentsKey(m.Owner), parent)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return members, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
