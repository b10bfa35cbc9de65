// Command presencebot runs the Slack presence board bot: a Socket Mode event
// loop for slash commands plus a cron job that keeps the pinned board fresh.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/zerollpaper/presence-bot/internal/bot"
	"github.com/zerollpaper/presence-bot/internal/config"
	"github.com/zerollpaper/presence-bot/internal/persistence"
	"github.com/zerollpaper/presence-bot/internal/persistence/sqlite"
	"github.com/zerollpaper/presence-bot/internal/schedule"
	"github.com/zerollpaper/presence-bot/internal/slackbot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := maxprocs.Set(); err != nil {
		logger.Warn("maxprocs", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	state, err := openStateStore(ctx, cfg, loc)
	if err != nil {
		return err
	}
	defer state.Close()

	snap, err := state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	store := schedule.FromSnapshot(snap)

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	client := slackbot.NewClient(api)
	socket := socketmode.New(api)

	service := bot.NewService(store, state, client, client, cfg.AdminUsers, now, logger)

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.CleanupCron, func() {
		service.RefreshBoard(ctx)
	}); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", cfg.CleanupCron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("presence bot starting",
		"timezone", cfg.Timezone,
		"cleanup_cron", cfg.CleanupCron,
		"admins", len(cfg.AdminUsers),
	)

	runner := slackbot.NewRunner(socket, service, logger)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode: %w", err)
	}

	logger.Info("presence bot stopped")
	return nil
}

func openStateStore(ctx context.Context, cfg config.Config, loc *time.Location) (persistence.Store, error) {
	if cfg.SQLiteDSN != "" {
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate sqlite state: %w", err)
		}
		return store, nil
	}
	todayKey := func() string {
		return schedule.DateKey(time.Now().In(loc))
	}
	return persistence.NewFileStore(cfg.StateFile, todayKey), nil
}
