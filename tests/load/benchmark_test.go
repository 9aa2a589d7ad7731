package load

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/birbparty/redwing"
	"github.com/birbparty/redwing/resp"
	"github.com/birbparty/redwing/tests/testutil"
)

// pipelineWindow is how many commands are in flight before the benchmark
// waits for the batch. Well under the default write queue capacity.
const pipelineWindow = 256

var (
	testRedis *testutil.RedisContainer
	client    *redwing.Client
)

// TestMain starts one Redis container and one shared client for all
// benchmarks.
func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testRedis, err = testutil.StartRedis(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to start Redis container: %v", err))
	}

	cfg := redwing.DefaultConfig().WithAddr(testRedis.Addr)
	client, err = redwing.NewClient(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create client: %v", err))
	}
	if err := client.Connect(ctx); err != nil {
		panic(fmt.Sprintf("Failed to connect: %v", err))
	}

	code := m.Run()

	client.Close()
	testRedis.Cleanup(ctx)

	os.Exit(code)
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

var payloadSizes = []struct {
	name string
	size int
}{
	{"Small_100B", 100},
	{"Medium_1KB", 1024},
	{"Large_10KB", 10240},
	{"XLarge_100KB", 102400},
}

func BenchmarkPipelinedSet(b *testing.B) {
	ctx := context.Background()

	for _, bm := range payloadSizes {
		b.Run(bm.name, func(b *testing.B) {
			value := randString(bm.size)
			futures := make([]*redwing.Future[string], 0, pipelineWindow)

			b.ResetTimer()
			b.SetBytes(int64(bm.size))

			for i := 0; i < b.N; i++ {
				key := fmt.Sprintf("bench-set-%d", i)
				futures = append(futures, client.Set(ctx, key, value))
				if len(futures) == pipelineWindow {
					for _, f := range futures {
						require.NoError(b, f.Err())
					}
					futures = futures[:0]
				}
			}
			for _, f := range futures {
				require.NoError(b, f.Err())
			}
		})
	}
}

func BenchmarkPipelinedGet(b *testing.B) {
	ctx := context.Background()

	// Pre-populate so every GET hits
	numKeys := 10000
	value := randString(1024)
	seeds := make([]*redwing.Future[string], 0, numKeys)
	for i := 0; i < numKeys; i++ {
		seeds = append(seeds, client.Set(ctx, fmt.Sprintf("bench-get-%d", i), value))
	}
	for _, f := range seeds {
		require.NoError(b, f.Err())
	}

	futures := make([]*redwing.Future[string], 0, pipelineWindow)

	b.ResetTimer()
	b.SetBytes(int64(len(value)))

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-get-%d", i%numKeys)
		futures = append(futures, client.Get(ctx, key))
		if len(futures) == pipelineWindow {
			for _, f := range futures {
				require.NoError(b, f.Err())
			}
			futures = futures[:0]
		}
	}
	for _, f := range futures {
		require.NoError(b, f.Err())
	}
}

// BenchmarkSequentialRoundTrip waits for each reply before sending the next
// command. The gap between this and the pipelined numbers is the round trip
// cost pipelining buys back.
func BenchmarkSequentialRoundTrip(b *testing.B) {
	ctx := context.Background()
	value := randString(1024)

	b.ResetTimer()
	b.SetBytes(int64(len(value)))

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-seq-%d", i)
		_, err := client.Set(ctx, key, value).Wait(ctx)
		require.NoError(b, err)
	}
}

// BenchmarkConcurrentProducers drives one shared connection from many
// goroutines. The client serializes writes internally, so this measures
// contention on the write queue rather than on the socket.
func BenchmarkConcurrentProducers(b *testing.B) {
	ctx := context.Background()

	// Pre-populate the read working set
	numKeys := 1000
	value := randString(1024)
	seeds := make([]*redwing.Future[string], 0, numKeys)
	for i := 0; i < numKeys; i++ {
		seeds = append(seeds, client.Set(ctx, fmt.Sprintf("concurrent-%d", i), value))
	}
	for _, f := range seeds {
		require.NoError(b, f.Err())
	}

	concurrencyLevels := []int{10, 50, 100}

	for _, concurrency := range concurrencyLevels {
		b.Run(fmt.Sprintf("Concurrency_%d", concurrency), func(b *testing.B) {
			var seq atomic.Int64
			b.SetParallelism(concurrency)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				rng := rand.New(rand.NewSource(seq.Add(1)))
				for pb.Next() {
					key := fmt.Sprintf("concurrent-%d", rng.Intn(numKeys))

					// 70% reads, 30% writes
					if rng.Float32() < 0.7 {
						_, err := client.Get(ctx, key).Wait(ctx)
						if err != nil {
							b.Fatal(err)
						}
					} else {
						if err := client.Set(ctx, key, value).Err(); err != nil {
							b.Fatal(err)
						}
					}
				}
			})
		})
	}
}

// BenchmarkEncodeCommand measures the request encoder on its own, no
// socket involved.
func BenchmarkEncodeCommand(b *testing.B) {
	sizes := []int{100, 1024, 10240, 102400}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size_%dB", size), func(b *testing.B) {
			value := randString(size)
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				buf, err := resp.AppendCommand(nil, "SET", "bench-encode", value)
				if err != nil {
					b.Fatal(err)
				}
				if len(buf) == 0 {
					b.Fatal("empty encoding")
				}
			}
		})
	}
}

func BenchmarkLatencyDistribution(b *testing.B) {
	ctx := context.Background()

	numKeys := 10000
	value := randString(1024)
	seeds := make([]*redwing.Future[string], 0, numKeys)
	for i := 0; i < numKeys; i++ {
		seeds = append(seeds, client.Set(ctx, fmt.Sprintf("latency-%d", i), value))
	}
	for _, f := range seeds {
		require.NoError(b, f.Err())
	}

	latencies := make([]time.Duration, 0, b.N)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("latency-%d", rand.Intn(numKeys))

		start := time.Now()
		_, err := client.Get(ctx, key).Wait(ctx)
		latency := time.Since(start)

		require.NoError(b, err)
		latencies = append(latencies, latency)
	}

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	p50 := latencies[len(latencies)*50/100]
	p95 := latencies[len(latencies)*95/100]
	p99 := latencies[len(latencies)*99/100]

	b.Logf("Latency - P50: %v, P95: %v, P99: %v", p50, p95, p99)
}
