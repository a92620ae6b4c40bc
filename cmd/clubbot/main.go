// Command clubbot runs the running-club registration bot: Telegram
// transport, embedded SQLite storage, the daily cleanup sweeper and an
// optional read-only status server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/gruppenrun/clubbot/core/config"
	"github.com/gruppenrun/clubbot/core/database"
	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/core/telegram"
	"github.com/gruppenrun/clubbot/core/telegram/state"
	"github.com/gruppenrun/clubbot/internal/bot"
	"github.com/gruppenrun/clubbot/internal/dialogue"
	"github.com/gruppenrun/clubbot/internal/notify"
	"github.com/gruppenrun/clubbot/internal/service"
	"github.com/gruppenrun/clubbot/internal/status"
	"github.com/gruppenrun/clubbot/internal/store"
	"github.com/gruppenrun/clubbot/internal/sweeper"
	"github.com/gruppenrun/clubbot/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "clubbot:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return err
	}

	dbCfg := database.Config{
		File:          cfg.Database.File,
		MigrationsDir: cfg.Database.MigrationsDir,
	}
	if err := database.RunMigrations(dbCfg); err != nil {
		return err
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cached := store.NewCached(store.New(db), store.DefaultCacheTTL)
	resolver := status.NewResolver(cached)
	notifier := notify.New(nil, cfg.Telegram.AdminID)
	svc := service.NewRegistrations(cached, resolver, notifier, cfg.Events.CampCapacity)

	sessions := state.NewMemoryManager()
	engine := dialogue.NewEngine(sessions, svc, cached, dialogue.PaymentLinks{
		RunOneTime:   cfg.Payments.RunOneTime,
		RunMonthly:   cfg.Payments.RunMonthly,
		TrailOneTime: cfg.Payments.TrailOneTime,
		TrailMonthly: cfg.Payments.TrailMonthly,
		Relay:        cfg.Payments.Relay,
		CampHalf:     cfg.Payments.CampHalf,
		CampFull:     cfg.Payments.CampFull,
		PhoneInfo:    cfg.Payments.PhoneInfo,
	})
	b := bot.New(cfg, engine, svc, cached, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cleanup runs once at boot, then daily.
	go sweeper.New(cached).Run(ctx)

	if cfg.Web.Listen != "" {
		srv := web.NewServer(cached, cached, cfg.BotVersion)
		go func() {
			if err := srv.Run(ctx, cfg.Web.Listen); err != nil {
				logger.WEB.Error("status server failed",
					slog.String("event", "web.error"),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	return telegram.Run(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: b.Middlewares(),
		Routes:      b.Routes(),
		Wire: func(tb *tele.Bot) error {
			// Out-of-band notifications need the live bot instance.
			notifier.Messenger = &notify.TelebotMessenger{Bot: tb}
			return nil
		},
	})
}
