// Package bot wires the access-bot behaviour: user onboarding with a
// one-time agreement, config distribution, and the admin console with
// stats, export, config replacement and broadcast flows.
package bot

import (
	"context"
	"time"

	"github.com/episthema/vpnbot/internal/broadcast"
	"github.com/episthema/vpnbot/internal/config"
	"github.com/episthema/vpnbot/internal/gate"
	"github.com/episthema/vpnbot/internal/logger"
	"github.com/episthema/vpnbot/internal/session"
	"github.com/episthema/vpnbot/internal/storage"
	"github.com/episthema/vpnbot/internal/telegram"
	tghelpers "github.com/episthema/vpnbot/internal/telegram/helpers"
	"github.com/episthema/vpnbot/internal/telegram/router"
	"log/slog"

	"github.com/robfig/cron/v3"
	tele "gopkg.in/telebot.v4"
)

// Store is the persistence surface the bot depends on.
type Store interface {
	LookupInternalID(ctx context.Context, chatID int64) (string, bool, error)
	Register(ctx context.Context, chatID int64, username string) (string, string, error)
	Stats(ctx context.Context) (storage.Stats, error)
	AllChatIDs(ctx context.Context) ([]int64, error)
	AllUsers(ctx context.Context) ([]storage.User, error)
	Config(ctx context.Context) (string, error)
	SetConfig(ctx context.Context, text string) error
}

// App owns the bot's domain dependencies and exposes handlers plus the
// wiring needed by telegram.RunTelegram.
type App struct {
	cfg      *config.Config
	store    Store
	sessions session.Manager
	gate     *gate.Gate

	// botAPI carries the outbound transport for broadcasts. It is set
	// when the bot starts and replaced by a fake in tests.
	botAPI broadcast.BotAPI

	sched *cron.Cron
	now   func() time.Time
}

// New builds the application and registers its conversation handlers.
func New(cfg *config.Config, store Store, sessions session.Manager, g *gate.Gate) *App {
	a := &App{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		gate:     g,
		now:      time.Now,
	}

	sessions.RegisterHandler(stateAwaitingAgreement, a.onAgreementText)
	sessions.RegisterHandler(stateMainMenu, a.onMainMenuText)
	sessions.RegisterHandler(stateAwaitingNewConfig, a.onNewConfigText)
	sessions.RegisterHandler(stateAwaitingBroadcastText, a.onBroadcastText)
	sessions.RegisterHandler(stateAwaitingBroadcastPhoto, a.onBroadcastPhoto)
	sessions.RegisterHandler(stateAwaitingBroadcastURL, a.onBroadcastURL)

	return a
}

func (a *App) engine() *broadcast.Engine {
	return broadcast.New(a.store, broadcast.TelebotSender{Bot: a.botAPI})
}

// Registry declares the bot's commands and callbacks.
func (a *App) Registry() *telegram.Registry {
	reg := telegram.NewRegistry()

	reg.RegisterCommand("/start", telegram.Command{
		Handler:     a.handleStart,
		Description: "Register or open the main menu",
	})
	reg.RegisterCommand("/cancel", telegram.Command{
		Handler:     a.handleCancel,
		Description: "Abort the current operation",
	})
	reg.RegisterCommand("/admin", telegram.Command{
		Handler:     a.handleAdmin,
		Description: "Open the admin panel",
		AdminOnly:   true,
	})

	_ = reg.RegisterCallback(cbAgree, a.handleAgree)
	_ = reg.RegisterCallback(cbGetConfig, a.handleGetConfig)
	_ = reg.RegisterCallback(cbBackToMenu, a.handleBackToMenu)
	_ = reg.RegisterCallback(cbFuturePlans, a.handleFuturePlans)
	_ = reg.RegisterCallback(cbPlus, a.handlePlus)

	_ = reg.RegisterCallback(cbViewUsers, a.adminOnly(a.handleViewUsers))
	_ = reg.RegisterCallback(cbDownloadDB, a.adminOnly(a.handleDownloadDB))
	_ = reg.RegisterCallback(cbSetConfig, a.adminOnly(a.handleSetConfigStart))
	_ = reg.RegisterCallback(cbBroadcast, a.adminOnly(a.handleBroadcastStart))

	// Dismissal of a broadcast message is deliberately open to everyone:
	// the button sits in the recipient's own chat.
	_ = reg.RegisterCallback(broadcast.DeleteCallbackKey, a.handleDeleteBroadcast)

	return reg
}

// Routes assembles all handler routes for the registry.
func (a *App) Routes(reg *telegram.Registry) []telegram.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       a.gate.IsAdmin,
		OnAdminReject: a.rejectNonAdmin,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{
		UnknownText: func(c tele.Context) error {
			return c.Send(startHintText)
		},
	})...)
	return routes
}

// RunOptions builds the full telegram.RunOptions for this application.
func (a *App) RunOptions() telegram.RunOptions {
	reg := a.Registry()
	return telegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: telegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      a.Routes(reg),
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			a.botAPI = rt.Bot
			return a.startScheduler(ctx)
		},
		OnStop: func(context.Context, telegram.Runtime) error {
			a.stopScheduler()
			return nil
		},
	}
}

// startScheduler launches the background jobs: the idle-session janitor
// and a daily registration stats snapshot.
func (a *App) startScheduler(ctx context.Context) error {
	a.sched = cron.New()

	sweep := a.cfg.Session.SessionSweepInterval()
	maxIdle := a.cfg.Session.SessionMaxIdle()
	if _, err := a.sched.AddFunc("@every "+sweep.String(), func() {
		if evicted := a.sessions.EvictIdle(maxIdle); evicted > 0 {
			logger.SESS.LogAttrs(ctx, slog.LevelInfo, "session.evicted",
				slog.Int("count", evicted),
			)
		}
	}); err != nil {
		return err
	}

	if _, err := a.sched.AddFunc("0 0 * * *", func() {
		stats, err := a.store.Stats(ctx)
		if err != nil {
			logger.SVCUsers.LogAttrs(ctx, slog.LevelWarn, "stats.snapshot_failed",
				slog.String("err", err.Error()),
			)
			return
		}
		logger.SVCUsers.LogAttrs(ctx, slog.LevelInfo, "stats.snapshot",
			slog.Int("total", stats.Total),
			slog.Int("last_24h", stats.Last24h),
			slog.Int("last_7d", stats.Last7d),
			slog.Int("last_30d", stats.Last30d),
		)
	}); err != nil {
		return err
	}

	a.sched.Start()
	return nil
}

func (a *App) stopScheduler() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
}

// adminOnly guards callback handlers that must never run for regular users.
func (a *App) adminOnly(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !a.gate.IsAdmin(sender.ID) {
			return a.rejectNonAdmin(c)
		}
		return h(c)
	}
}

func (a *App) rejectNonAdmin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var id int64
	if s := c.Sender(); s != nil {
		id = s.ID
	}
	logger.TG.LogAttrs(ctx, slog.LevelWarn, "access.denied",
		slog.Int64("user_id", id),
	)
	return c.Send(accessDeniedText)
}
