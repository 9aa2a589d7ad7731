package redwing

import (
	"context"
	"time"
)

// ZMember is a sorted set member with its score.
type ZMember struct {
	Member string
	Score  float64
}

// ZRangeBy bounds a score range query. Min and Max use the server's score
// syntax: a number, "(5" for exclusive, or "-inf"/"+inf". Count must be
// positive for the offset/count limit to apply.
type ZRangeBy struct {
	Min, Max      string
	Offset, Count int64
}

func (z ZRangeBy) args(key string, withScores bool) []interface{} {
	args := []interface{}{key, z.Min, z.Max}
	if withScores {
		args = append(args, "WITHSCORES")
	}
	if z.Count > 0 {
		args = append(args, "LIMIT", z.Offset, z.Count)
	}
	return args
}

// ZStore configures ZINTERSTORE and ZUNIONSTORE. Weights, when present,
// must match Keys in length. Aggregate is "SUM", "MIN", or "MAX".
type ZStore struct {
	Keys      []string
	Weights   []float64
	Aggregate string
}

func (z ZStore) args(dest string) []interface{} {
	args := []interface{}{dest, len(z.Keys)}
	for _, k := range z.Keys {
		args = append(args, k)
	}
	if len(z.Weights) > 0 {
		args = append(args, "WEIGHTS")
		for _, w := range z.Weights {
			args = append(args, w)
		}
	}
	if z.Aggregate != "" {
		args = append(args, "AGGREGATE", z.Aggregate)
	}
	return args
}

// HSet stores a hash field, resolving true when the field is new.
func (c *Client) HSet(ctx context.Context, key, field string, value interface{}) *Future[bool] {
	return send(c, ctx, shapeBool, "HSET", key, field, value)
}

// HSetNX stores a hash field only if it does not exist yet.
func (c *Client) HSetNX(ctx context.Context, key, field string, value interface{}) *Future[bool] {
	return send(c, ctx, shapeBool, "HSETNX", key, field, value)
}

// HMSet stores several hash fields at once.
func (c *Client) HMSet(ctx context.Context, key string, fields map[string]interface{}) *Future[string] {
	args := make([]interface{}, 0, len(fields)*2+1)
	args = append(args, key)
	for f, v := range fields {
		args = append(args, f, v)
	}
	return send(c, ctx, shapeStatus, "HMSET", args...)
}

// HGet resolves with a hash field's value, or ErrNil when the field or
// key is absent.
func (c *Client) HGet(ctx context.Context, key, field string) *Future[string] {
	return send(c, ctx, shapeString, "HGET", key, field)
}

// HMGet resolves with several hash fields at once; absent fields come
// back as nil pointers.
func (c *Client) HMGet(ctx context.Context, key string, fields ...string) *Future[[]*string] {
	args := append([]interface{}{key}, strArgs(fields)...)
	return send(c, ctx, shapeNullableStrings, "HMGET", args...)
}

// HDel removes hash fields, resolving with how many existed.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) *Future[int64] {
	args := append([]interface{}{key}, strArgs(fields)...)
	return send(c, ctx, shapeInt, "HDEL", args...)
}

// HGetAll resolves with every field and value of the hash. A missing key
// yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) *Future[map[string]string] {
	return send(c, ctx, shapeStringMap, "HGETALL", key)
}

// HLen resolves with the number of fields in the hash.
func (c *Client) HLen(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "HLEN", key)
}

// HExists reports whether the hash field exists.
func (c *Client) HExists(ctx context.Context, key, field string) *Future[bool] {
	return send(c, ctx, shapeBool, "HEXISTS", key, field)
}

// HIncrBy increments an integer hash field by delta.
func (c *Client) HIncrBy(ctx context.Context, key, field string, delta int64) *Future[int64] {
	return send(c, ctx, shapeInt, "HINCRBY", key, field, delta)
}

// HKeys resolves with the hash's field names.
func (c *Client) HKeys(ctx context.Context, key string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "HKEYS", key)
}

// HVals resolves with the hash's values.
func (c *Client) HVals(ctx context.Context, key string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "HVALS", key)
}

// LPush prepends values to a list, resolving with the new length.
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) *Future[int64] {
	args := append([]interface{}{key}, values...)
	return send(c, ctx, shapeInt, "LPUSH", args...)
}

// RPush appends values to a list, resolving with the new length.
func (c *Client) RPush(ctx context.Context, key string, values ...interface{}) *Future[int64] {
	args := append([]interface{}{key}, values...)
	return send(c, ctx, shapeInt, "RPUSH", args...)
}

// LPop removes and resolves with the first element, or ErrNil on an
// empty or missing list.
func (c *Client) LPop(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeString, "LPOP", key)
}

// RPop removes and resolves with the last element, or ErrNil on an empty
// or missing list.
func (c *Client) RPop(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeString, "RPOP", key)
}

// LLen resolves with the list's length.
func (c *Client) LLen(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "LLEN", key)
}

// LRem removes up to count occurrences of value from the list: positive
// count scans head to tail, negative tail to head, zero removes them all.
func (c *Client) LRem(ctx context.Context, key string, count int64, value interface{}) *Future[int64] {
	return send(c, ctx, shapeInt, "LREM", key, count, value)
}

// LSet overwrites the element at index.
func (c *Client) LSet(ctx context.Context, key string, index int64, value interface{}) *Future[string] {
	return send(c, ctx, shapeStatus, "LSET", key, index, value)
}

// LIndex resolves with the element at index, or ErrNil when out of range.
func (c *Client) LIndex(ctx context.Context, key string, index int64) *Future[string] {
	return send(c, ctx, shapeString, "LINDEX", key, index)
}

// LTrim cuts the list down to the given inclusive range.
func (c *Client) LTrim(ctx context.Context, key string, start, stop int64) *Future[string] {
	return send(c, ctx, shapeStatus, "LTRIM", key, start, stop)
}

// LRange resolves with the elements in the given inclusive range.
// Negative indexes count from the tail.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) *Future[[]string] {
	return send(c, ctx, shapeStrings, "LRANGE", key, start, stop)
}

// RPopLPush atomically pops the tail of src and pushes it onto the head
// of dst, resolving with the moved element or ErrNil when src is empty.
func (c *Client) RPopLPush(ctx context.Context, src, dst string) *Future[string] {
	return send(c, ctx, shapeString, "RPOPLPUSH", src, dst)
}

// BLPop pops the first available element from the given lists, blocking
// server-side until one appears or the timeout elapses. Timeouts are
// whole seconds; zero blocks indefinitely.
//
// The command occupies the connection's reply slot like any other:
// commands issued after it are pipelined and their replies simply queue
// up behind the pop. An expired timeout resolves with a nil KeyValue and
// a nil error rather than a failure.
//
// Example:
//
//	kv, err := client.BLPop(ctx, 5*time.Second, "jobs").Wait(ctx)
//	if err != nil {
//	    return err
//	}
//	if kv == nil {
//	    // timed out, no job
//	} else {
//	    process(kv.Value)
//	}
func (c *Client) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *Future[*KeyValue] {
	args := append(strArgs(keys), int64(timeout/time.Second))
	return send(c, ctx, shapeKeyValue, "BLPOP", args...)
}

// BRPop is BLPop for the tail end of the lists.
func (c *Client) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *Future[*KeyValue] {
	args := append(strArgs(keys), int64(timeout/time.Second))
	return send(c, ctx, shapeKeyValue, "BRPOP", args...)
}

// SAdd adds members to a set, resolving with how many were new.
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) *Future[int64] {
	args := append([]interface{}{key}, members...)
	return send(c, ctx, shapeInt, "SADD", args...)
}

// SRem removes members from a set, resolving with how many existed.
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) *Future[int64] {
	args := append([]interface{}{key}, members...)
	return send(c, ctx, shapeInt, "SREM", args...)
}

// SPop removes and resolves with a random member, or ErrNil on an empty
// set.
func (c *Client) SPop(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeString, "SPOP", key)
}

// SRandMember resolves with a random member without removing it.
func (c *Client) SRandMember(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeString, "SRANDMEMBER", key)
}

// SCard resolves with the set's cardinality.
func (c *Client) SCard(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "SCARD", key)
}

// SIsMember reports whether member is in the set.
func (c *Client) SIsMember(ctx context.Context, key string, member interface{}) *Future[bool] {
	return send(c, ctx, shapeBool, "SISMEMBER", key, member)
}

// SMembers resolves with every member of the set.
func (c *Client) SMembers(ctx context.Context, key string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "SMEMBERS", key)
}

// SMove moves member from src to dst, resolving with whether it was
// moved.
func (c *Client) SMove(ctx context.Context, src, dst string, member interface{}) *Future[bool] {
	return send(c, ctx, shapeBool, "SMOVE", src, dst, member)
}

// SDiff resolves with the members of the first set that are in none of
// the others.
func (c *Client) SDiff(ctx context.Context, keys ...string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "SDIFF", strArgs(keys)...)
}

// SDiffStore stores the difference of the sets in dest, resolving with
// its cardinality.
func (c *Client) SDiffStore(ctx context.Context, dest string, keys ...string) *Future[int64] {
	args := append([]interface{}{dest}, strArgs(keys)...)
	return send(c, ctx, shapeInt, "SDIFFSTORE", args...)
}

// SInter resolves with the members common to all the sets.
func (c *Client) SInter(ctx context.Context, keys ...string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "SINTER", strArgs(keys)...)
}

// SInterStore stores the intersection of the sets in dest.
func (c *Client) SInterStore(ctx context.Context, dest string, keys ...string) *Future[int64] {
	args := append([]interface{}{dest}, strArgs(keys)...)
	return send(c, ctx, shapeInt, "SINTERSTORE", args...)
}

// SUnion resolves with the members present in any of the sets.
func (c *Client) SUnion(ctx context.Context, keys ...string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "SUNION", strArgs(keys)...)
}

// SUnionStore stores the union of the sets in dest.
func (c *Client) SUnionStore(ctx context.Context, dest string, keys ...string) *Future[int64] {
	args := append([]interface{}{dest}, strArgs(keys)...)
	return send(c, ctx, shapeInt, "SUNIONSTORE", args...)
}

// ZAdd adds members with scores to a sorted set, resolving with how many
// were new.
//
// Example:
//
//	client.ZAdd(ctx, "leaderboard",
//	    redwing.ZMember{Member: "alice", Score: 4200},
//	    redwing.ZMember{Member: "bob", Score: 3100},
//	)
func (c *Client) ZAdd(ctx context.Context, key string, members ...ZMember) *Future[int64] {
	args := make([]interface{}, 0, len(members)*2+1)
	args = append(args, key)
	for _, m := range members {
		args = append(args, m.Score, m.Member)
	}
	return send(c, ctx, shapeInt, "ZADD", args...)
}

// ZCard resolves with the sorted set's cardinality.
func (c *Client) ZCard(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "ZCARD", key)
}

// ZCount resolves with how many members score inside the range. Min and
// Max use the score syntax described on ZRangeBy.
func (c *Client) ZCount(ctx context.Context, key, min, max string) *Future[int64] {
	return send(c, ctx, shapeInt, "ZCOUNT", key, min, max)
}

// ZIncrBy adds delta to a member's score, resolving with the new score.
func (c *Client) ZIncrBy(ctx context.Context, key string, delta float64, member string) *Future[float64] {
	return send(c, ctx, shapeFloat, "ZINCRBY", key, delta, member)
}

// ZInterStore stores the intersection of sorted sets in dest.
func (c *Client) ZInterStore(ctx context.Context, dest string, store ZStore) *Future[int64] {
	return send(c, ctx, shapeInt, "ZINTERSTORE", store.args(dest)...)
}

// ZUnionStore stores the union of sorted sets in dest.
func (c *Client) ZUnionStore(ctx context.Context, dest string, store ZStore) *Future[int64] {
	return send(c, ctx, shapeInt, "ZUNIONSTORE", store.args(dest)...)
}

// ZRange resolves with the members in the given inclusive rank range,
// lowest scores first.
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) *Future[[]string] {
	return send(c, ctx, shapeStrings, "ZRANGE", key, start, stop)
}

// ZRangeWithScores is ZRange including each member's score.
func (c *Client) ZRangeWithScores(ctx context.Context, key string, start, stop int64) *Future[[]ZMember] {
	return send(c, ctx, shapeZMembers, "ZRANGE", key, start, stop, "WITHSCORES")
}

// ZRevRange resolves with the members in the given inclusive rank range,
// highest scores first.
func (c *Client) ZRevRange(ctx context.Context, key string, start, stop int64) *Future[[]string] {
	return send(c, ctx, shapeStrings, "ZREVRANGE", key, start, stop)
}

// ZRevRangeWithScores is ZRevRange including each member's score.
func (c *Client) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *Future[[]ZMember] {
	return send(c, ctx, shapeZMembers, "ZREVRANGE", key, start, stop, "WITHSCORES")
}

// ZRangeByScore resolves with the members scoring inside the range.
func (c *Client) ZRangeByScore(ctx context.Context, key string, by ZRangeBy) *Future[[]string] {
	return send(c, ctx, shapeStrings, "ZRANGEBYSCORE", by.args(key, false)...)
}

// ZRangeByScoreWithScores is ZRangeByScore including each member's score.
func (c *Client) ZRangeByScoreWithScores(ctx context.Context, key string, by ZRangeBy) *Future[[]ZMember] {
	return send(c, ctx, shapeZMembers, "ZRANGEBYSCORE", by.args(key, true)...)
}

// ZRank resolves with the member's rank, counting from the lowest score,
// or ErrNil when the member is absent.
func (c *Client) ZRank(ctx context.Context, key, member string) *Future[int64] {
	return send(c, ctx, shapeIntOrNil, "ZRANK", key, member)
}

// ZRevRank resolves with the member's rank counting from the highest
// score, or ErrNil when the member is absent.
func (c *Client) ZRevRank(ctx context.Context, key, member string) *Future[int64] {
	return send(c, ctx, shapeIntOrNil, "ZREVRANK", key, member)
}

// ZRem removes members from a sorted set, resolving with how many
// existed.
func (c *Client) ZRem(ctx context.Context, key string, members ...interface{}) *Future[int64] {
	args := append([]interface{}{key}, members...)
	return send(c, ctx, shapeInt, "ZREM", args...)
}

// ZRemRangeByRank removes the members in the given rank range, resolving
// with how many were removed.
func (c *Client) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) *Future[int64] {
	return send(c, ctx, shapeInt, "ZREMRANGEBYRANK", key, start, stop)
}

// ZRemRangeByScore removes the members scoring inside the range.
func (c *Client) ZRemRangeByScore(ctx context.Context, key, min, max string) *Future[int64] {
	return send(c, ctx, shapeInt, "ZREMRANGEBYSCORE", key, min, max)
}

// ZScore resolves with the member's score, or ErrNil when the member is
// absent.
func (c *Client) ZScore(ctx context.Context, key, member string) *Future[float64] {
	return send(c, ctx, shapeFloat, "ZSCORE", key, member)
}
