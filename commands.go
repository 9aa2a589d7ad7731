package redwing

import (
	"context"
	"time"

	"github.com/birbparty/redwing/resp"
)

// Do issues an arbitrary command and resolves with the raw reply value.
// Use it for commands without a dedicated method. Arguments are coerced
// the same way as everywhere else: strings, byte slices, integers,
// floats, and bools.
//
// Subscription commands are rejected here; they need handler registration
// and must go through Subscribe, PSubscribe, Unsubscribe, or PUnsubscribe.
//
// Example:
//
//	v, err := client.Do(ctx, "GETRANGE", "key", 0, 4).Wait(ctx)
//	if err == nil {
//	    fmt.Println(v.Text())
//	}
func (c *Client) Do(ctx context.Context, cmd string, args ...interface{}) *Future[resp.Value] {
	return send(c, ctx, shapeValue, cmd, args...)
}

// strArgs widens a string list into command arguments.
func strArgs(ss []string) []interface{} {
	args := make([]interface{}, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// KeyValue is one element popped by a blocking list operation, naming the
// list it came from.
type KeyValue struct {
	Key   string
	Value string
}

// SortOptions controls the SORT command. The zero value sorts numerically
// ascending with no limit.
type SortOptions struct {
	// By sorts by the values of the given external key pattern instead of
	// the elements themselves.
	By string
	// Offset and Count limit the returned range. Count must be positive
	// for the limit to apply.
	Offset int64
	Count  int64
	// Get fetches the given key patterns per element instead of the
	// element itself.
	Get []string
	// Order is "ASC" or "DESC".
	Order string
	// Alpha sorts lexicographically instead of numerically.
	Alpha bool
}

func (o SortOptions) args(key string) []interface{} {
	args := []interface{}{key}
	if o.By != "" {
		args = append(args, "BY", o.By)
	}
	if o.Count > 0 {
		args = append(args, "LIMIT", o.Offset, o.Count)
	}
	for _, g := range o.Get {
		args = append(args, "GET", g)
	}
	if o.Order != "" {
		args = append(args, o.Order)
	}
	if o.Alpha {
		args = append(args, "ALPHA")
	}
	return args
}

// Del removes keys and resolves with how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) *Future[int64] {
	return send(c, ctx, shapeInt, "DEL", strArgs(keys)...)
}

// Exists reports whether the key exists.
func (c *Client) Exists(ctx context.Context, key string) *Future[bool] {
	return send(c, ctx, shapeBool, "EXISTS", key)
}

// Keys resolves with every key matching the glob pattern. Expensive on
// big databases; meant for debugging.
func (c *Client) Keys(ctx context.Context, pattern string) *Future[[]string] {
	return send(c, ctx, shapeStrings, "KEYS", pattern)
}

// Rename renames key to newKey, overwriting newKey if it exists.
func (c *Client) Rename(ctx context.Context, key, newKey string) *Future[string] {
	return send(c, ctx, shapeStatus, "RENAME", key, newKey)
}

// RenameNX renames key to newKey only if newKey does not exist, and
// resolves with whether the rename happened.
func (c *Client) RenameNX(ctx context.Context, key, newKey string) *Future[bool] {
	return send(c, ctx, shapeBool, "RENAMENX", key, newKey)
}

// Type resolves with the storage type of the key: "string", "list",
// "hash", "set", "zset", or "none" when the key is absent.
func (c *Client) Type(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeStatus, "TYPE", key)
}

// Move moves the key to another database index, resolving with whether
// the move happened.
func (c *Client) Move(ctx context.Context, key string, db int) *Future[bool] {
	return send(c, ctx, shapeBool, "MOVE", key, db)
}

// Expire sets the key's time to live, truncated to whole seconds.
// Resolves false when the key does not exist.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) *Future[bool] {
	return send(c, ctx, shapeBool, "EXPIRE", key, int64(ttl/time.Second))
}

// ExpireAt sets the key to expire at an absolute time.
func (c *Client) ExpireAt(ctx context.Context, key string, at time.Time) *Future[bool] {
	return send(c, ctx, shapeBool, "EXPIREAT", key, at.Unix())
}

// TTL resolves with the key's remaining time to live in seconds, or a
// negative value when the key has no expiry or does not exist.
func (c *Client) TTL(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "TTL", key)
}

// RandomKey resolves with a random key, or ErrNil on an empty database.
func (c *Client) RandomKey(ctx context.Context) *Future[string] {
	return send(c, ctx, shapeString, "RANDOMKEY")
}

// Sort sorts the elements of a list, set, or sorted set.
//
// Example:
//
//	recent, err := client.Sort(ctx, "visits", redwing.SortOptions{
//	    Order: "DESC",
//	    Count: 10,
//	}).Wait(ctx)
func (c *Client) Sort(ctx context.Context, key string, opts SortOptions) *Future[[]string] {
	return send(c, ctx, shapeStrings, "SORT", opts.args(key)...)
}

// SortStore sorts like Sort but stores the result in dest, resolving with
// the stored length.
func (c *Client) SortStore(ctx context.Context, key, dest string, opts SortOptions) *Future[int64] {
	args := append(opts.args(key), "STORE", dest)
	return send(c, ctx, shapeInt, "SORT", args...)
}

// Set stores a value under key, replacing whatever was there.
func (c *Client) Set(ctx context.Context, key string, value interface{}) *Future[string] {
	return send(c, ctx, shapeStatus, "SET", key, value)
}

// SetNX stores the value only if the key does not exist, resolving with
// whether it was stored.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}) *Future[bool] {
	return send(c, ctx, shapeBool, "SETNX", key, value)
}

// MSet stores several key-value pairs atomically.
func (c *Client) MSet(ctx context.Context, pairs map[string]interface{}) *Future[string] {
	args := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, k, v)
	}
	return send(c, ctx, shapeStatus, "MSET", args...)
}

// MSetNX stores several key-value pairs only if none of the keys exist.
func (c *Client) MSetNX(ctx context.Context, pairs map[string]interface{}) *Future[bool] {
	args := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, k, v)
	}
	return send(c, ctx, shapeBool, "MSETNX", args...)
}

// Get resolves with the key's value, or ErrNil when the key is absent.
//
// Example:
//
//	val, err := client.Get(ctx, "user:42:name").Wait(ctx)
//	if redwing.IsNil(err) {
//	    // no such key
//	}
func (c *Client) Get(ctx context.Context, key string) *Future[string] {
	return send(c, ctx, shapeString, "GET", key)
}

// MGet resolves with the values for several keys at once. Absent keys
// come back as nil pointers in their positions.
func (c *Client) MGet(ctx context.Context, keys ...string) *Future[[]*string] {
	return send(c, ctx, shapeNullableStrings, "MGET", strArgs(keys)...)
}

// GetSet stores a new value and resolves with the previous one, or ErrNil
// when the key was absent.
func (c *Client) GetSet(ctx context.Context, key string, value interface{}) *Future[string] {
	return send(c, ctx, shapeString, "GETSET", key, value)
}

// Incr increments the integer value at key by one, resolving with the
// result. Missing keys start at zero.
func (c *Client) Incr(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "INCR", key)
}

// IncrBy increments the integer value at key by delta.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) *Future[int64] {
	return send(c, ctx, shapeInt, "INCRBY", key, delta)
}

// Decr decrements the integer value at key by one.
func (c *Client) Decr(ctx context.Context, key string) *Future[int64] {
	return send(c, ctx, shapeInt, "DECR", key)
}

// DecrBy decrements the integer value at key by delta.
func (c *Client) DecrBy(ctx context.Context, key string, delta int64) *Future[int64] {
	return send(c, ctx, shapeInt, "DECRBY", key, delta)
}

// Append appends to the string at key, resolving with the new length.
func (c *Client) Append(ctx context.Context, key, value string) *Future[int64] {
	return send(c, ctx, shapeInt, "APPEND", key, value)
}

// Ping checks the connection, resolving with "PONG".
func (c *Client) Ping(ctx context.Context) *Future[string] {
	return send(c, ctx, shapeStatus, "PING")
}

// Echo resolves with the message sent, round-tripped through the server.
func (c *Client) Echo(ctx context.Context, message string) *Future[string] {
	return send(c, ctx, shapeString, "ECHO", message)
}

// Select switches this connection to another database index. Prefer
// configuring DB up front; Select mid-stream affects every command queued
// after it.
func (c *Client) Select(ctx context.Context, db int) *Future[string] {
	return send(c, ctx, shapeStatus, "SELECT", db)
}

// Quit asks the server to close the connection, waits for the
// acknowledgement, and closes the client. The client is unusable
// afterwards.
func (c *Client) Quit(ctx context.Context) error {
	_, err := send(c, ctx, shapeStatus, "QUIT").Wait(ctx)
	if err != nil && !IsFatal(err) {
		return err
	}
	return c.Close()
}

// DBSize resolves with the number of keys in the selected database.
func (c *Client) DBSize(ctx context.Context) *Future[int64] {
	return send(c, ctx, shapeInt, "DBSIZE")
}

// Info resolves with the server's INFO output parsed into a flat map.
//
// Example:
//
//	info, _ := client.Info(ctx).Wait(ctx)
//	fmt.Println("version:", info["redis_version"])
func (c *Client) Info(ctx context.Context) *Future[map[string]string] {
	return send(c, ctx, shapeInfo, "INFO")
}

// FlushDB deletes every key in the selected database.
func (c *Client) FlushDB(ctx context.Context) *Future[string] {
	return send(c, ctx, shapeStatus, "FLUSHDB")
}

// FlushAll deletes every key in every database.
func (c *Client) FlushAll(ctx context.Context) *Future[string] {
	return send(c, ctx, shapeStatus, "FLUSHALL")
}
