package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var blpopBlock time.Duration

var blpopCmd = &cobra.Command{
	Use:   "blpop KEY [KEY...]",
	Short: "Pop from the first non-empty list, waiting server-side",
	Long: `Pop the head element of the first non-empty list among KEYs. If all
lists are empty the server holds the reply until an element is pushed or
the --block duration elapses, whichever comes first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// The reply is held server-side, so the wait is bounded by the
		// interrupt signal rather than the usual per-command timeout.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		kv, err := client.BLPop(ctx, blpopBlock, args...).Wait(ctx)
		if err != nil {
			return err
		}
		if kv == nil {
			fmt.Println("(nil)")
			return nil
		}
		fmt.Printf("%s: %s\n", kv.Key, kv.Value)
		return nil
	},
}

func init() {
	blpopCmd.Flags().DurationVar(&blpopBlock, "block", 5*time.Second, "server-side wait; 0 blocks until data arrives")
}
