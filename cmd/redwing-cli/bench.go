package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/redwing"
)

var (
	benchRequests int
	benchPipeline int
	benchPayload  int
	benchReads    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure pipelined throughput",
	Long: `Issue SET commands in pipelined batches and report the observed
throughput. With --reads each written key is read back in a second,
equally pipelined pass.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if benchRequests <= 0 || benchPipeline <= 0 {
			return errors.New("requests and pipeline must be positive")
		}

		cfg := clientConfig().WithWriteQueueSize(benchPipeline * 2)
		client, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		payload := strings.Repeat("x", benchPayload)

		start := time.Now()
		if err := benchWrites(ctx, client, payload); err != nil {
			return err
		}
		writes := time.Since(start)
		report("SET", benchRequests, writes)

		if benchReads {
			start = time.Now()
			if err := benchReadBack(ctx, client); err != nil {
				return err
			}
			report("GET", benchRequests, time.Since(start))
		}
		return nil
	},
}

func benchWrites(ctx context.Context, client *redwing.Client, payload string) error {
	futures := make([]*redwing.Future[string], 0, benchPipeline)
	completed := 0
	for completed < benchRequests {
		batch := benchPipeline
		if rem := benchRequests - completed; rem < batch {
			batch = rem
		}

		futures = futures[:0]
		for i := 0; i < batch; i++ {
			key := fmt.Sprintf("bench:%d", completed+i)
			futures = append(futures, client.Set(ctx, key, payload))
		}
		for _, fut := range futures {
			if _, err := fut.Wait(ctx); err != nil {
				return err
			}
		}
		completed += batch
	}
	return nil
}

func benchReadBack(ctx context.Context, client *redwing.Client) error {
	futures := make([]*redwing.Future[string], 0, benchPipeline)
	completed := 0
	for completed < benchRequests {
		batch := benchPipeline
		if rem := benchRequests - completed; rem < batch {
			batch = rem
		}

		futures = futures[:0]
		for i := 0; i < batch; i++ {
			key := fmt.Sprintf("bench:%d", completed+i)
			futures = append(futures, client.Get(ctx, key))
		}
		for _, fut := range futures {
			if _, err := fut.Wait(ctx); err != nil {
				return err
			}
		}
		completed += batch
	}
	return nil
}

func report(op string, n int, elapsed time.Duration) {
	fmt.Printf("%s: %d commands in %.2fs (%.0f ops/sec, pipeline depth %d)\n",
		op, n, elapsed.Seconds(), float64(n)/elapsed.Seconds(), benchPipeline)
}

func init() {
	flags := benchCmd.Flags()
	flags.IntVar(&benchRequests, "requests", 10000, "total commands to issue")
	flags.IntVar(&benchPipeline, "pipeline", 128, "commands kept in flight per batch")
	flags.IntVar(&benchPayload, "payload", 64, "value size in bytes")
	flags.BoolVar(&benchReads, "reads", false, "read every key back after writing")
}
