package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/cachesync/cache"
	"github.com/kbukum/cachesync/store"
)

var searchOpts struct {
	channel string
	store   string
	limit   int
}

var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search cached entities of a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchOpts.channel, "channel", "", "channel id")
	searchCmd.Flags().StringVar(&searchOpts.store, "store", store.Products, "entity store: products, customers or suppliers")
	searchCmd.Flags().IntVar(&searchOpts.limit, "limit", cache.DefaultLimit, "maximum results")
	_ = searchCmd.MarkFlagRequired("channel")
}

func runSearch(ctx context.Context, out io.Writer, term string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.stop()

	if err := a.adapter().Open(ctx, store.ChannelScope(searchOpts.channel)); err != nil {
		return err
	}
	results, err := cache.Search[json.RawMessage](ctx, a.adapter(), searchOpts.store, term, searchOpts.limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(out, string(r))
	}
	return nil
}
