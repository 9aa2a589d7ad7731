package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/redwing"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		reply, err := client.Ping(ctx).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the value stored at KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		value, err := client.Get(ctx, args[0]).Wait(ctx)
		if errors.Is(err, redwing.ErrNil) {
			fmt.Println("(nil)")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var setTTL time.Duration

var setCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store VALUE at KEY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		// Pipeline the write and its expiry in one round trip
		setFut := client.Set(ctx, args[0], args[1])
		var expireFut *redwing.Future[bool]
		if setTTL > 0 {
			expireFut = client.Expire(ctx, args[0], setTTL)
		}

		status, err := setFut.Wait(ctx)
		if err != nil {
			return err
		}
		if expireFut != nil {
			if _, err := expireFut.Wait(ctx); err != nil {
				return err
			}
		}
		fmt.Println(status)
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del KEY [KEY...]",
	Short: "Delete one or more keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		removed, err := client.Del(ctx, args...).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(removed)
		return nil
	},
}

var incrCmd = &cobra.Command{
	Use:   "incr KEY",
	Short: "Increment the integer stored at KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		value, err := client.Incr(ctx, args[0]).Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

func init() {
	setCmd.Flags().DurationVar(&setTTL, "ttl", 0, "expire the key after this duration")
}
