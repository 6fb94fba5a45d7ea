package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/lumina-store/internal/auth"
	"github.com/ariefcatur/lumina-store/internal/checkout"
	"github.com/ariefcatur/lumina-store/internal/config"
	"github.com/ariefcatur/lumina-store/internal/contact"
	"github.com/ariefcatur/lumina-store/internal/httpx"
	"github.com/ariefcatur/lumina-store/internal/inventory"
	"github.com/ariefcatur/lumina-store/internal/logx"
	"github.com/ariefcatur/lumina-store/internal/notify"
	"github.com/ariefcatur/lumina-store/internal/orders"
	"github.com/ariefcatur/lumina-store/internal/outbox"
	"github.com/ariefcatur/lumina-store/internal/postgres"
	"github.com/ariefcatur/lumina-store/internal/redisx"
	"github.com/ariefcatur/lumina-store/internal/restock"
	"github.com/ariefcatur/lumina-store/internal/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logx.New(logx.Options{Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	notifier := &notify.Notifier{Outbox: &outbox.Store{DB: db}, Log: log.Named("notify")}
	templates := &notify.Templates{AdminEmail: cfg.AdminEmail, StorefrontURL: cfg.StorefrontURL}
	tokens := &auth.Tokens{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}

	ledger := inventory.NewLedger(&inventory.Repo{DB: db}, cfg.LowStockWatermark)
	registry := &restock.Registry{
		Store:     &restock.Repo{DB: db},
		Products:  ledger,
		Notifier:  notifier,
		Templates: templates,
		Dedup:     cfg.RestockDedup,
		Log:       log.Named("restock"),
	}
	orderSvc := &orders.Service{
		Store:     &orders.Repo{DB: db},
		Notifier:  notifier,
		Templates: templates,
		Log:       log.Named("orders"),
	}
	userSvc := &users.Service{
		Store:     &users.Repo{DB: db},
		Tokens:    tokens,
		Notifier:  notifier,
		Templates: templates,
		Log:       log.Named("users"),
	}
	contactSvc := &contact.Service{Store: &contact.Repo{DB: db}, Notifier: notifier, Templates: templates}
	orch := &checkout.Orchestrator{
		Products:  ledger,
		Orders:    orderSvc,
		Restock:   registry,
		Users:     userSvc,
		Payments:  &redisx.PaymentIndex{RDB: rdb},
		Notifier:  notifier,
		Templates: templates,
		Log:       log.Named("checkout"),
	}

	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return err
	}

	authn := &httpx.Authenticator{Tokens: tokens, Users: userSvc, Log: log}
	router := httpx.NewRouter(log,
		&httpx.ProductsHandler{Catalog: ledger, Updater: orch, Auth: authn, Log: log},
		&httpx.CheckoutHandler{Checkout: orch, Log: log},
		&httpx.OrdersHandler{Orders: orderSvc, Auth: authn, Log: log},
		&httpx.NotificationsHandler{Registry: registry, Auth: authn, Log: log},
		&httpx.UsersHandler{Users: userSvc, Auth: authn, Log: log},
		&httpx.ContactHandler{Inbox: contactSvc, Log: log},
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.Int("low_stock_watermark", ledger.Watermark()),
			zap.Bool("restock_dedup", cfg.RestockDedup))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
