package integration

import (
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/redwing"
)

// TestClient_RoundTrip cross-checks writes and reads against an independent
// client in both directions.
func TestClient_RoundTrip(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	t.Run("WriteHereReadThere", func(t *testing.T) {
		status, err := client.Set(ctx, "written-by-redwing", "hello").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "OK", status)

		got, err := control.Get(ctx, "written-by-redwing").Result()
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("WriteThereReadHere", func(t *testing.T) {
		require.NoError(t, control.Set(ctx, "written-by-control", "world", 0).Err())

		got, err := client.Get(ctx, "written-by-control").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "world", got)
	})
}

// TestClient_PipelinedFIFO issues a burst of increments without waiting and
// checks every reply matched its own command: INCR returns the running
// counter, so reply i must be exactly i+1.
func TestClient_PipelinedFIFO(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	const n = 500
	futures := make([]*redwing.Future[int64], n)
	for i := range futures {
		futures[i] = client.Incr(ctx, "fifo-counter")
	}

	for i, fut := range futures {
		value, err := fut.Wait(ctx)
		require.NoError(t, err, "increment %d", i)
		require.Equal(t, int64(i+1), value, "reply %d out of order", i)
	}
}

func TestClient_TypedCommands(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	t.Run("Strings", func(t *testing.T) {
		_, err := client.Set(ctx, "s", "abc").Wait(ctx)
		require.NoError(t, err)

		length, err := client.Append(ctx, "s", "def").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6), length)

		old, err := client.GetSet(ctx, "s", "xyz").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abcdef", old)

		_, err = client.MSet(ctx, map[string]interface{}{"m1": "a", "m2": "b"}).Wait(ctx)
		require.NoError(t, err)

		values, err := client.MGet(ctx, "m1", "missing", "m2").Wait(ctx)
		require.NoError(t, err)
		require.Len(t, values, 3)
		assert.Equal(t, "a", *values[0])
		assert.Nil(t, values[1])
		assert.Equal(t, "b", *values[2])
	})

	t.Run("Hashes", func(t *testing.T) {
		_, err := client.HMSet(ctx, "h", map[string]interface{}{"name": "robin", "count": 1}).Wait(ctx)
		require.NoError(t, err)

		count, err := client.HIncrBy(ctx, "h", "count", 4).Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)

		all, err := client.HGetAll(ctx, "h").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "robin", "count": "5"}, all)
	})

	t.Run("Lists", func(t *testing.T) {
		length, err := client.RPush(ctx, "l", "a", "b", "c").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), length)

		items, err := client.LRange(ctx, "l", 0, -1).Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, items)

		head, err := client.LPop(ctx, "l").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a", head)

		moved, err := client.RPopLPush(ctx, "l", "l2").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "c", moved)
	})

	t.Run("Sets", func(t *testing.T) {
		added, err := client.SAdd(ctx, "set1", "a", "b", "c").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), added)

		_, err = client.SAdd(ctx, "set2", "b", "c", "d").Wait(ctx)
		require.NoError(t, err)

		inter, err := client.SInter(ctx, "set1", "set2").Wait(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"b", "c"}, inter)

		isMember, err := client.SIsMember(ctx, "set1", "a").Wait(ctx)
		require.NoError(t, err)
		assert.True(t, isMember)
	})

	t.Run("SortedSets", func(t *testing.T) {
		added, err := client.ZAdd(ctx, "z",
			redwing.ZMember{Member: "low", Score: 1},
			redwing.ZMember{Member: "mid", Score: 2},
			redwing.ZMember{Member: "high", Score: 3},
		).Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), added)

		members, err := client.ZRangeWithScores(ctx, "z", 0, -1).Wait(ctx)
		require.NoError(t, err)
		require.Len(t, members, 3)
		assert.Equal(t, redwing.ZMember{Member: "low", Score: 1}, members[0])
		assert.Equal(t, redwing.ZMember{Member: "high", Score: 3}, members[2])

		score, err := client.ZScore(ctx, "z", "mid").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(2), score)

		rank, err := client.ZRank(ctx, "z", "high").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rank)
	})

	t.Run("Keyspace", func(t *testing.T) {
		_, err := client.Set(ctx, "k", "v").Wait(ctx)
		require.NoError(t, err)

		exists, err := client.Exists(ctx, "k").Wait(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		typ, err := client.Type(ctx, "k").Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, "string", typ)

		ok, err := client.Expire(ctx, "k", time.Hour).Wait(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		ttl, err := client.TTL(ctx, "k").Wait(ctx)
		require.NoError(t, err)
		assert.Greater(t, ttl, int64(3000))

		_, err = client.Rename(ctx, "k", "k2").Wait(ctx)
		require.NoError(t, err)

		exists, err = client.Exists(ctx, "k").Wait(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

// TestClient_ServerErrors checks that a rejected command fails alone and the
// connection keeps serving the commands around it.
func TestClient_ServerErrors(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	_, err := client.RPush(ctx, "alist", "x").Wait(ctx)
	require.NoError(t, err)

	before := client.Set(ctx, "ok-before", "1")
	bad := client.Incr(ctx, "alist")
	after := client.Set(ctx, "ok-after", "2")

	_, err = before.Wait(ctx)
	assert.NoError(t, err)

	_, err = bad.Wait(ctx)
	var serverErr *redwing.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "WRONGTYPE", serverErr.Code)

	_, err = after.Wait(ctx)
	assert.NoError(t, err)

	pong, err := client.Ping(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)
}

func TestClient_NilReplies(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	_, err := client.Get(ctx, "never-written").Wait(ctx)
	assert.ErrorIs(t, err, redwing.ErrNil)

	_, err = client.LPop(ctx, "empty-list").Wait(ctx)
	assert.ErrorIs(t, err, redwing.ErrNil)
}

func TestClient_LargeValues(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	// Big enough that the reply spans many socket reads
	large := strings.Repeat("v", 256*1024)

	_, err := client.Set(ctx, "large", large).Wait(ctx)
	require.NoError(t, err)

	got, err := client.Get(ctx, "large").Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, len(large), len(got))
	assert.Equal(t, large, got)
}

func TestClient_SelectDatabase(t *testing.T) {
	_ = newClient(t) // flushes and proves the server is reachable
	ctx := opCtx(t)

	client, err := redwing.NewClient(redwing.DefaultConfig().
		WithAddr(testRedis.Addr).
		WithDB(2))
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { client.Close() })

	_, err = client.Set(ctx, "db-scoped", "here").Wait(ctx)
	require.NoError(t, err)

	// Not visible in database 0
	_, err = control.Get(ctx, "db-scoped").Result()
	assert.ErrorIs(t, err, goredis.Nil)

	// Visible in database 2
	controlDB2 := goredis.NewClient(&goredis.Options{Addr: testRedis.Addr, DB: 2})
	t.Cleanup(func() { controlDB2.Close() })

	got, err := controlDB2.Get(ctx, "db-scoped").Result()
	require.NoError(t, err)
	assert.Equal(t, "here", got)
}

func TestClient_Info(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	info, err := client.Info(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Contains(t, info, "redis_version")

	size, err := client.DBSize(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

// TestClient_ConcurrentProducers hammers one client from several goroutines;
// the single-writer design must serialize them without losing commands.
func TestClient_ConcurrentProducers(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	const (
		goroutines = 8
		perWorker  = 100
	)

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := client.Incr(ctx, "shared-counter").Wait(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, err := control.Get(ctx, "shared-counter").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perWorker), total)

	stats := client.Stats()
	assert.Zero(t, stats.Pending, "no replies should be outstanding")
	assert.Zero(t, stats.QueueDepth, "write queue should have drained")
}

func TestClient_QuitTerminatesCleanly(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	_, err := client.Set(ctx, "pre-quit", "1").Wait(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Quit(ctx))

	_, err = client.Ping(ctx).Wait(ctx)
	assert.ErrorIs(t, err, redwing.ErrClosed)

	// The write made it to the server before the connection closed
	got, err := control.Get(ctx, "pre-quit").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
