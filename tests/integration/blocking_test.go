package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/redwing"
)

func TestBlocking_BLPopDelivers(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	// Feed the list after the pop is already parked server-side
	go func() {
		time.Sleep(300 * time.Millisecond)
		control.LPush(context.Background(), "jobs", "job-1")
	}()

	start := time.Now()
	kv, err := client.BLPop(ctx, 10*time.Second, "jobs").Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, kv)
	assert.Equal(t, "jobs", kv.Key)
	assert.Equal(t, "job-1", kv.Value)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond,
		"the reply should have been held until the push")
}

func TestBlocking_BLPopTimesOutWithNil(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	start := time.Now()
	kv, err := client.BLPop(ctx, time.Second, "nothing-here").Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, kv, "server timeout surfaces as a nil pop, not an error")
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestBlocking_FirstNonEmptyKeyWins(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	require.NoError(t, control.RPush(ctx, "second", "from-second").Err())

	kv, err := client.BLPop(ctx, 5*time.Second, "first", "second").Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, kv)
	assert.Equal(t, "second", kv.Key)
	assert.Equal(t, "from-second", kv.Value)
}

func TestBlocking_BRPopTakesTail(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	require.NoError(t, control.RPush(ctx, "queue", "head", "tail").Err())

	kv, err := client.BRPop(ctx, 5*time.Second, "queue").Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, kv)
	assert.Equal(t, "tail", kv.Value)
}

// TestBlocking_PipelineWaitsBehindBlockedPop documents the cost of sharing a
// connection with a blocking pop: replies are FIFO, so commands sent after
// the pop are parked behind it until the server releases the reply.
func TestBlocking_PipelineWaitsBehindBlockedPop(t *testing.T) {
	client := newClient(t)
	ctx := opCtx(t)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	// Completion callbacks run on the read loop in reply order, so the
	// slice below is exactly the order the server released the replies.
	popFut := client.BLPop(ctx, 10*time.Second, "work")
	popFut.OnComplete(func(_ *redwing.KeyValue, _ error) { record("pop") })

	pingFut := client.Ping(ctx)
	pingFut.OnComplete(func(_ string, _ error) { record("ping") })

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, control.LPush(ctx, "work", "unblock").Err())

	pong, err := pingFut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	kv, err := popFut.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, kv)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"pop", "ping"}, order, "the ping reply must arrive after the pop reply")
}
