package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/cachesync/cache"
	"github.com/kbukum/cachesync/cachesync"
	"github.com/kbukum/cachesync/httpclient"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/store"
	"github.com/kbukum/cachesync/version"
)

// lastLiveKey is the channel record holding when the feed last went live.
const lastLiveKey = "sync.lastLiveAt"

var watchOpts struct {
	channel string
	token   string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a channel's change feed and expire changed entities",
	Long: `Connect to the change feed of one channel and drop every changed product,
customer and supplier from the cache until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.channel, "channel", "", "channel id to follow")
	watchCmd.Flags().StringVar(&watchOpts.token, "token", "", "channel token")
	_ = watchCmd.MarkFlagRequired("channel")
}

func runWatch(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	log.Info("starting watch", logger.Fields(
		"version", version.Get().String(),
		logger.FieldChannelID, watchOpts.channel,
		"token", logger.Masked(watchOpts.token, 4)))

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	client, err := httpclient.New(cfg.API)
	if err != nil {
		return err
	}
	engine := cachesync.NewEngine(cfg.Sync, cachesync.NewHTTPTransport(client, cfg.Sync), nil, log)
	if err := a.components.Register(engine); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.stop()

	facade := cache.NewFacade(a.adapter(), engine, log)
	for t, storeName := range entityStores {
		if err := engine.Register(invalidator(facade, t, storeName)); err != nil {
			return err
		}
	}

	scope := store.ChannelScope(watchOpts.channel)
	if err := a.adapter().Open(ctx, scope); err != nil {
		return err
	}
	unsubscribe := engine.OnStateChange(func(s cachesync.State) {
		if s != cachesync.StateLive {
			return
		}
		if err := facade.SetKV(context.Background(), scope, lastLiveKey, time.Now().UTC()); err != nil {
			log.Warn("could not record live time", logger.ErrorFields("set_kv", err))
		}
	})
	defer unsubscribe()

	engine.SetChannel(cachesync.Channel{ID: watchOpts.channel, Token: watchOpts.token})
	<-ctx.Done()

	st := engine.Stats()
	log.Info("watch stopped", logger.Fields(
		"received", st.Received, "dispatched", st.Dispatched,
		"dropped", st.Dropped, "reconnects", st.Reconnects))
	for _, h := range a.components.HealthAll(context.Background()) {
		log.Info("component health", logger.Fields("name", h.Name, "status", string(h.Status), "message", h.Message))
	}
	return nil
}
