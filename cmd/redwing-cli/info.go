package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print server info and client pipeline statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		info, err := client.Info(ctx).Wait(ctx)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %s\n", k, info[k])
		}

		stats := client.Stats()
		fmt.Printf("\nclient: queue %d/%d, pending %d, subscribed %v\n",
			stats.QueueDepth, stats.QueueCapacity, stats.Pending, stats.Subscribed)
		return nil
	},
}
