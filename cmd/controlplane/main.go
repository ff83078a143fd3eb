// Package main is the control plane's entry point, grounded on the
// teacher's cmd/gateway: one net/http server behind gorilla/mux, a
// background stale-job sweeper, and a /metrics endpoint.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/boringdata/boring-ui-controlplane/api"
	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
	"github.com/boringdata/boring-ui-controlplane/domain/proxy"
	"github.com/boringdata/boring-ui-controlplane/domain/routing"
	"github.com/boringdata/boring-ui-controlplane/domain/sharelink"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/config"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/metrics"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/middleware"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/security"
	"github.com/boringdata/boring-ui-controlplane/storage/memory"
	"github.com/boringdata/boring-ui-controlplane/storage/postgres"
)

type repositories struct {
	workspace  workspace.Repository
	provision  provisioning.Repository
	shareLink  sharelink.Repository
	ping       func() error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New("controlplane", cfg.Logging.Level, cfg.Logging.Format)

	repos, err := buildRepositories(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	m := metrics.Init("controlplane")

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Correlation(logger, true))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))
	router.Use(middleware.BodyLimit(0))
	router.Use(middleware.SecurityHeaders)

	hostResolver := identity.NewHostResolver(cfg.Identity.HostMap, cfg.Identity.DefaultAppID)
	appConfigs := make([]identity.AppConfig, 0, len(cfg.Identity.Apps))
	for _, a := range cfg.Identity.Apps {
		appConfigs = append(appConfigs, identity.AppConfig{
			AppID:            a.AppID,
			Name:             a.Name,
			Logo:             a.Logo,
			DefaultReleaseID: a.DefaultReleaseID,
		})
	}
	hostResolver = hostResolver.WithAppConfigs(appConfigs)

	var keyProvider identity.KeyProvider
	if cfg.IdP.Enabled && cfg.IdP.JWKSURL != "" {
		jwksProvider, err := identity.NewJWKSKeyProvider(ctx, cfg.IdP.JWKSURL)
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		keyProvider = jwksProvider
	} else {
		keyProvider = identity.NewStaticKeyProvider(cfg.IdP.JWTSecret)
	}
	verifier := identity.NewTokenVerifier(keyProvider, cfg.IdP.JWTAudience)

	sessionTTL := time.Duration(cfg.Session.TTLSeconds) * time.Second
	refreshThreshold := time.Duration(cfg.Session.RefreshThresholdSeconds) * time.Second
	issuer := identity.NewSessionIssuer(cfg.Session.SigningSecret, sessionTTL)
	exemptPaths := []string{"/health", "/ready", "/metrics", "/api/v1/app-config", "/api/v1/auth/callback", "/s/"}
	guard := identity.NewAuthGuard(issuer, cfg.Session.CookieName, refreshThreshold, exemptPaths)

	workspaceService := workspace.NewService(repos.workspace)
	stepTimeouts := provisioning.DefaultStepTimeouts()
	machine := provisioning.NewStateMachine(stepTimeouts, nil)
	provisioningService := provisioning.NewService(repos.provision, machine)
	shareLinkService := sharelink.NewService(repos.shareLink, logger, nil)

	streamRegistry := proxy.NewStreamRegistry(cfg.Proxy.MaxStreamsPerWorkspace, m)
	proxyHandler := proxy.NewHandler(runtimeResolver(repos.workspace, cfg.Proxy.RuntimeURLTemplate), streamRegistry, upstreamHeaderConfig(cfg))

	workspaceLookup := func(ctx context.Context, workspaceID string) (string, bool) {
		ws, err := repos.workspace.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return "", false
		}
		return ws.AppID, true
	}

	router.Use(func(next http.Handler) http.Handler {
		return routing.AppContext(hostResolver, workspaceLookup)(next)
	})
	router.Use(guard.Middleware())
	router.Use(middleware.CSRF(guard.CSRFTokenFor))

	authHandlers := api.NewAuthHandlers(verifier, issuer, guard, workspaceService)
	appConfigHandlers := api.NewAppConfigHandlers(hostResolver)
	sessionHandlers := api.NewSessionHandlers(issuer, guard, workspaceService)
	registerRoutes(router, logger, m, guard, workspaceService, provisioningService, shareLinkService, proxyHandler, repos, authHandlers, appConfigHandlers, sessionHandlers)

	detector := provisioning.NewStaleJobDetector(provisioningService, repos.provision, machine, logger, m)
	stopSweep, err := detector.StartCron(cfg.Provisioning.SweepCronSchedule)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer stopSweep()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // streaming proxy responses must not be cut off
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.WithFields(map[string]interface{}{"addr": addr}).Info("control plane starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "shutdown error", err, nil)
	}
}

func buildRepositories(cfg *config.Config) (*repositories, error) {
	if cfg.Database.UseMemoryStore {
		return &repositories{
			workspace: memory.NewWorkspaceStore(),
			provision: memory.NewProvisioningStore(),
			shareLink: memory.NewShareLinkStore(),
			ping:      func() error { return nil },
		}, nil
	}

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	return &repositories{
		workspace: postgres.NewWorkspaceStore(db),
		provision: postgres.NewProvisioningStore(db),
		shareLink: postgres.NewShareLinkStore(db),
		ping:      func() error { return db.Ping() },
	}, nil
}

func upstreamHeaderConfig(cfg *config.Config) security.ProxyHeaderConfig {
	// The per-app upstream bearer is resolved at proxy-time from the
	// workspace's app_id in a fuller implementation; main wiring uses the
	// first configured upstream as the default bearer until multi-app
	// bearer selection is added to the proxy handler.
	var header, token string
	if len(cfg.Identity.Upstreams) > 0 {
		header = cfg.Identity.Upstreams[0].BearerHeader
		token = cfg.Identity.Upstreams[0].BearerToken
	}
	return security.NewProxyHeaderConfig(header, token, nil)
}

func runtimeResolver(repo workspace.Repository, urlTemplate string) proxy.RuntimeResolver {
	return func(ctx context.Context, workspaceID string) (string, error) {
		ws, err := repo.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return "", cperrors.WorkspaceNotFound()
		}
		sandboxName, err := provisioning.SandboxName(ws.AppID, ws.ID, "production")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(urlTemplate, sandboxName), nil
	}
}
