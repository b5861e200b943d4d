package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/repo"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/authz"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg, err := config.FromEnv()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	sugar.Infow("starting service-admin-go", "addr", cfg.Addr, "catalog", cfg.ProductAPI)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The pool is kept even if the database is down at boot; admin endpoints
	// answer 503 until it is reachable, the catalog proxy does not need it.
	dbCfg := database.ConfigFromEnv()
	if cfg.DatabaseURI != "" {
		dbCfg.DSN = cfg.DatabaseURI
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		sugar.Fatalf("db: %v", err)
	}
	defer db.Close()
	go func() {
		err := database.PingUntilReady(ctx, db, dbCfg, 5*time.Second, func(err error) {
			sugar.Warnw("database not reachable yet", "err", err)
		})
		if err == nil {
			sugar.Info("database connected")
		}
	}()

	cipher, err := textcrypto.New(cfg.AESKey, cfg.AESIV)
	if err != nil {
		sugar.Fatalf("cipher: %v", err)
	}
	tokens, err := token.NewService(token.Config{
		Issuer:        cfg.Issuer,
		Algorithm:     cfg.Algorithm,
		AccessSecret:  cfg.AccessSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshSecret: cfg.RefreshSecret,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	client, err := catalog.NewClient(cfg.ProductAPI, cfg.ProxyTimeout, sugar.Named("catalog"))
	if err != nil {
		sugar.Fatalf("catalog client: %v", err)
	}

	dir := repo.NewAdminRepo(db)
	gate := authz.NewGate(cipher, dir, cfg.AdminRole, cfg.UserRole)
	verifier, err := admin.NewVerifier(dir, admin.BcryptHasher{Cost: 12}, cipher, cfg.VerificationTTL, sugar.Named("auth"))
	if err != nil {
		sugar.Fatalf("verifier: %v", err)
	}
	svc := admin.NewAdminService(dir, verifier, tokens, gate, cipher, cfg.AdminRole, sugar.Named("admin"))

	handler, err := router.RegisterRoutes(sugar, router.Deps{
		Admin:     admin.NewHandler(svc, authz.NewCookies(cfg.CookieDomain, cfg.AccessTTL, cfg.RefreshTTL), sugar),
		Catalog:   catalog.NewHandler(client, sugar),
		Auth:      authz.NewMiddleware(tokens, gate, sugar),
		LoginRate: cfg.LoginRate,
	})
	if err != nil {
		sugar.Fatalf("routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// catalog calls may take up to the proxy timeout
		WriteTimeout: cfg.ProxyTimeout + 10*time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
