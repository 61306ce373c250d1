// cmd/web/main.go
//
// Recipebox web frontend – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (YAML → .env → RECIPEBOX_ env → Vault refs).
//
//  2. Start the daily rotating logger (tees to console when running in a
//     TTY) and install it globally.
//
//  3. Process-wide services: GeoIP reader, CSRF key, cookie store, API
//     client, query cache, double-submit guard, views, realtime hub, and
//     the checkout flow.
//
//  4. Optional Redis subscription feeding payment events to the hub.
//
//  5. Build the site router (every registered component) and serve until
//     SIGINT/SIGTERM, then shut down gracefully.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/checkout"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/config"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/idem"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/realtime"
	"github.com/yanizio/recipebox/internal/requestinfo"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/server"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/site"
	"github.com/yanizio/recipebox/internal/view"

	_ "github.com/yanizio/recipebox/components/auth"
	_ "github.com/yanizio/recipebox/components/checkout"
	_ "github.com/yanizio/recipebox/components/community"
	_ "github.com/yanizio/recipebox/components/notify"
	_ "github.com/yanizio/recipebox/components/plans"
	_ "github.com/yanizio/recipebox/components/profile"
	_ "github.com/yanizio/recipebox/components/recipes"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	if err := run(ctx, cfg, logOut); err != nil {
		logOut.Fatalw("server stopped", "err", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logOut *zap.SugaredLogger) error {
	//
	// ── 1.  Request enrichment and form security ───────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		// Geo is decoration; keep serving without it.
		logOut.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
	}
	form.SetSecret(session.DecodeKey(cfg.Form.CSRFKey))

	//
	// ── 2.  Session, API, caches ────────────────────────────────────────
	//
	store, err := session.New(session.Options{
		Secure:   cfg.IsProduction(),
		HashKey:  session.DecodeKey(cfg.Session.HashKey),
		BlockKey: session.DecodeKey(cfg.Session.BlockKey),
	})
	if err != nil {
		return err
	}
	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, logOut.Named("backend"))
	qc := querycache.New(cfg.Cache.Capacity, cfg.Cache.TTL)

	themeDir := ""
	if cfg.Theme.Dir != "" {
		themeDir = cfg.Theme.Dir
		if !filepath.IsAbs(themeDir) {
			themeDir = filepath.Join(cfg.Paths.Root, themeDir)
		}
	}
	views, err := view.New(store, view.Options{
		ThemeDir: themeDir,
		NoCache:  cfg.Env == "development",
	})
	if err != nil {
		return err
	}

	//
	// ── 3.  Realtime and checkout ───────────────────────────────────────
	//
	hub := realtime.NewHub(logOut.Named("realtime"))
	flow := checkout.NewFlow(
		checkout.NewEmbeddedCard(cfg.Stripe.PublishableKey, checkout.NewStripeConfirmer(cfg.Stripe.PublishableKey)),
		api, hub, logOut.Named("checkout"),
	)
	if !flow.Available() {
		logOut.Warn("stripe publishable key not configured; checkout submission disabled")
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		src := realtime.NewRedisSource(rdb, cfg.Redis.Channel, hub, logOut.Named("redis"))
		go func() {
			if err := src.Run(ctx); err != nil && ctx.Err() == nil {
				logOut.Errorw("redis event source stopped", "err", err)
			}
		}()
	}

	//
	// ── 4.  Site ────────────────────────────────────────────────────────
	//
	s, err := site.New(&component.Deps{
		Config:   cfg,
		Backend:  api,
		Sessions: store,
		Cache:    qc,
		Guard:    idem.New(cfg.Cache.Capacity, idem.DefaultTTL),
		Views:    views,
		Respond:  respond.New(store, qc, cfg.Auth.LoginPath),
		Checkout: flow,
		Hub:      hub,
		Log:      logOut,
	})
	if err != nil {
		return err
	}

	t := server.Timeouts{
		Read:     cfg.HTTP.ReadTimeout,
		Write:    cfg.HTTP.WriteTimeout,
		Idle:     cfg.HTTP.IdleTimeout,
		Shutdown: cfg.HTTP.ShutdownTimeout,
	}
	srv := server.New(cfg.HTTP.ListenAddr, s.Router(), t)
	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "env", cfg.Env)
	return server.Run(ctx, srv, t, logOut)
}
