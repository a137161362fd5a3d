package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/cachesync/cache"
)

var clearOpts struct {
	channel string
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a channel's cache and all global and session records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClear(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	clearCmd.Flags().StringVar(&clearOpts.channel, "channel", "", "channel whose cache is deleted")
}

func runClear(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.stop()

	resolver := cache.ChannelResolverFunc(func(context.Context) (string, error) {
		return clearOpts.channel, nil
	})
	if err := cache.NewFacade(a.adapter(), resolver, log).ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "cache cleared")
	return nil
}
