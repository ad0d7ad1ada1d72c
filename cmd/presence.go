package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spigell/gigboard/internal/logger"
	"github.com/spigell/gigboard/internal/presence"
	"github.com/spigell/gigboard/internal/secrets"
	"github.com/spigell/gigboard/internal/store"
	"github.com/spigell/gigboard/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReportInterval = 15 * time.Second
	flushTimeout          = 5 * time.Second
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Report the user as online and log who else is online",
	Run: func(_ *cobra.Command, _ []string) {
		runPresence()
	},
}

func init() {
	rootCmd.AddCommand(presenceCmd)

	presenceCmd.Flags().String("store", "", "presence store: rest, redis or postgres (default rest)")
	presenceCmd.Flags().String("path", "", "current screen path, auth-flow paths disable tracking")
	presenceCmd.Flags().Duration("report-interval", 0, "how often to log the online users (default 15s)")

	viper.BindPFlag("presence.store", presenceCmd.Flags().Lookup("store"))
	viper.BindPFlag("presence.path", presenceCmd.Flags().Lookup("path"))
	viper.BindPFlag("presence.report-interval", presenceCmd.Flags().Lookup("report-interval"))
}

func runPresence() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	pc := config.Presence
	logger.Info("starting the gigboard presence tracker",
		zap.String("version", version),
		zap.String("user_id", pc.UserID),
		zap.String("store", pc.Store),
	)

	st, closeStore, err := newPresenceStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a presence store", zap.Error(err))
	}
	defer closeStore()

	tracker, err := presence.New(&pc.Config, &presence.Deps{Store: st, Logger: logger})
	if err != nil {
		logger.Fatal("creating a presence tracker", zap.Error(err))
	}

	eligibility := presence.Eligibility{UserID: pc.UserID, Path: pc.Path}
	if !eligibility.Eligible() {
		logger.Warn("presence tracking is disabled",
			zap.String("hint", "set presence.user-id (or GIGBOARD_USER_ID) and a non auth-flow presence.path"),
		)
	}
	tracker.Update(eligibility)

	interval := pc.ReportInterval
	if interval <= 0 {
		interval = defaultReportInterval
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reportPresence(gctx, tracker, interval, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("presence report loop failed", zap.Error(err))
	}

	logger.Info("stopping the presence tracker")
	tracker.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := tracker.Flush(flushCtx); err != nil {
		logger.Warn("offline flag may not have been written", zap.Error(err))
	}
}

func reportPresence(ctx context.Context, tracker *presence.Tracker, interval time.Duration, logger *zap.Logger) error {
	for {
		if err := utils.WaitFor(ctx, interval); err != nil {
			return err
		}

		online := tracker.Online()
		logger.Info("presence status",
			zap.Stringer("state", tracker.Status()),
			zap.Int("online_count", len(online)),
			zap.Strings("online", online),
		)
	}
}

// newPresenceStore builds the configured store and a func releasing its connections.
func newPresenceStore(ctx context.Context, config *Config, logger *zap.Logger) (presence.Store, func(), error) {
	pc := config.Presence
	noop := func() {}

	switch kind := strings.ToLower(strings.TrimSpace(pc.Store)); kind {
	case "", store.KindREST:
		api, err := newBackend(config.Backend, logger)
		if err != nil {
			return nil, noop, err
		}
		if api == nil {
			return nil, noop, errors.New("backend.url is required for the rest presence store")
		}
		return store.NewREST(api), noop, nil

	case store.KindRedis:
		src := secrets.Source{Name: "redis url", Env: "REDIS_URL"}
		if pc.Redis != nil {
			src.Value, src.File = pc.Redis.URL, pc.Redis.URLFile
		}
		url, err := secrets.Load(src)
		if err != nil {
			return nil, noop, err
		}

		client, err := store.NewRedisClient(ctx, url)
		if err != nil {
			return nil, noop, err
		}
		return store.NewRedis(client), func() { client.Close() }, nil

	case store.KindPostgres:
		src := secrets.Source{Name: "postgres url", Env: "DATABASE_URL"}
		if pc.Postgres != nil {
			src.Value, src.File = pc.Postgres.URL, pc.Postgres.URLFile
		}
		url, err := secrets.Load(src)
		if err != nil {
			return nil, noop, err
		}

		pool, err := store.NewPostgresPool(ctx, url)
		if err != nil {
			return nil, noop, err
		}
		return store.NewPostgres(pool), pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown presence store %q", kind)
	}
}
