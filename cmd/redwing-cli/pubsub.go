package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/redwing"
	"github.com/birbparty/redwing/telemetry"
)

var publishCmd = &cobra.Command{
	Use:   "publish CHANNEL MESSAGE",
	Short: "Publish MESSAGE to CHANNEL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		receivers, err := client.Publish(ctx, args[0], args[1]).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(receivers)
		return nil
	},
}

var subscribePatterns bool

var subscribeCmd = &cobra.Command{
	Use:   "subscribe CHANNEL [CHANNEL...]",
	Short: "Print messages published to the given channels",
	Long: `Print messages published to the given channels until interrupted.

Subscriptions do not survive reconnects, so when the connection drops the
command dials again with exponential backoff and subscribes anew.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backoff := redwing.DefaultBackoff()
		for {
			err := runSubscription(ctx, backoff, args)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				telemetry.L().WithError(err).Warn("subscription lost, reconnecting")
			}

			select {
			case <-time.After(backoff.Next()):
			case <-ctx.Done():
				return nil
			}
		}
	},
}

// disconnectWatcher turns the observer's disconnect callback into a channel
// the subscribe loop can select on
type disconnectWatcher struct {
	redwing.NoopObserver
	ch chan error
}

func (w *disconnectWatcher) OnDisconnect(addr string, err error) {
	select {
	case w.ch <- err:
	default:
	}
}

// runSubscription holds one subscribed connection open, printing messages
// as they arrive, until the connection drops or ctx is canceled.
func runSubscription(ctx context.Context, backoff *redwing.Backoff, channels []string) error {
	watcher := &disconnectWatcher{ch: make(chan error, 1)}

	client, err := newClient(ctx, watcher)
	if err != nil {
		return err
	}
	defer client.Close()

	handler := func(msg redwing.PushMessage) {
		switch msg.Kind {
		case redwing.PushKindMessage:
			fmt.Printf("%s: %s\n", msg.Channel, msg.Payload)
		case redwing.PushKindPMessage:
			fmt.Printf("%s %s: %s\n", msg.Pattern, msg.Channel, msg.Payload)
		}
	}

	var fut *redwing.Future[int64]
	if subscribePatterns {
		fut = client.PSubscribe(ctx, handler, channels...)
	} else {
		fut = client.Subscribe(ctx, handler, channels...)
	}

	count, err := fut.Wait(ctx)
	if err != nil {
		return err
	}
	backoff.Reset()
	telemetry.L().WithField("subscriptions", count).Info("subscribed")

	select {
	case <-ctx.Done():
		return nil
	case err := <-watcher.ch:
		return err
	}
}

func init() {
	subscribeCmd.Flags().BoolVarP(&subscribePatterns, "patterns", "p", false, "treat arguments as glob patterns (PSUBSCRIBE)")
}
