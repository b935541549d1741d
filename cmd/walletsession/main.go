package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wallet_session/internal/app/port"
	"wallet_session/internal/app/provider"
	"wallet_session/internal/app/service"
	apiclient "wallet_session/internal/client"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/infrastructure/configloader"
	clientprovider "wallet_session/internal/infrastructure/network/client"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/infrastructure/recordstore"
	"wallet_session/internal/infrastructure/restapi"
	"wallet_session/internal/infrastructure/tokenloader"
	"wallet_session/internal/infrastructure/wallet/memprovider"
	"wallet_session/internal/pkg/logger"
	"wallet_session/internal/pkg/metrics"
	"wallet_session/internal/pkg/utils"
)

const defaultConnectionTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := configloader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration %s: %v\n", configPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	logger.Info("Wallet session service starting", "config", configPath, "provider", cfg.Provider.Mode, "verifier", cfg.Verifier.Mode)
	appLogger := logger.NewSlogAdapter()

	var (
		recorder       = metrics.NewNoopRecorder()
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info("Prometheus metrics enabled")
	}

	classifier := networkdefinition.NewClassifier(appLogger, cfg.Networks)

	walletProvider, closeProvider := newWalletProvider(ctx, cfg, appLogger)
	defer closeProvider()

	gateway := provider.NewGateway(walletProvider, classifier, appLogger, recorder)
	session := service.NewSessionService(gateway, classifier, appLogger, recorder)
	session.SetConnectTimeout(time.Duration(cfg.Provider.ConnectTimeoutSecs) * time.Second)
	if walletProvider != nil {
		sub, err := session.Start(ctx)
		if err != nil {
			logger.Fatal("Failed to subscribe to wallet notifications", "error", err)
		}
		defer sub.Unsubscribe()
	}
	go logResets(ctx, session)

	if snap, err := session.Restore(ctx); err != nil {
		logger.Warn("No wallet session restored", "error", err)
	} else if snap.IsConnected() {
		logger.Info("Wallet session restored", "address", snap.Account.Address, "network", snap.Network.DisplayName)
	}

	tokens := tokenloader.NewTokenLoader(appLogger, cfg.Payment.TokensDir, cfg.Payment.Tokens)
	balances := service.NewBalanceService(
		gateway,
		session,
		tokens,
		appLogger,
		time.Duration(cfg.Cache.BalanceTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.CleanupIntervalSeconds)*time.Second,
		cfg.Performance.MaxConcurrentRoutines,
	)
	identity := service.NewIdentityService(gateway, session, appLogger, cfg.Identity.VerifySignatures)

	defaultDirective := cfg.Payment.DefaultDirective
	var (
		verifier port.IdentityVerifier
		callback restapi.CallbackReceiver
	)
	switch cfg.Verifier.Mode {
	case "callback":
		cv := apiclient.NewCallbackVerifier(apiclient.CallbackConfig{
			StartURL:         cfg.Verifier.StartURL,
			CallbackURL:      cfg.Verifier.CallbackURL,
			Scope:            cfg.Verifier.Scope,
			Timeout:          time.Duration(cfg.Verifier.TimeoutSeconds) * time.Second,
			RequestTimeout:   time.Duration(cfg.Verifier.RequestTimeoutMillis) * time.Millisecond,
			DefaultDirective: &defaultDirective,
		}, zapLogger)
		verifier, callback = cv, cv
	default:
		verifier = apiclient.NewMockVerifier(entity.VerificationOutcome{
			Verified:  cfg.Verifier.Mock.Verified,
			Reason:    cfg.Verifier.Mock.Reason,
			Directive: cfg.Verifier.Mock.Directive,
		}, &defaultDirective, zapLogger)
		logger.Warn("Using mock identity verifier")
	}

	var (
		sink    port.RecordSink
		records restapi.RecordLister
	)
	switch cfg.Records.Mode {
	case "http":
		sink = apiclient.NewRecordClient(cfg.Records.Endpoint, time.Duration(cfg.Records.RequestTimeoutMillis)*time.Millisecond, zapLogger)
	default:
		store := recordstore.NewMemoryStore(appLogger)
		sink, records = store, store
	}

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Session:    session,
		Balances:   balances,
		Verifier:   verifier,
		Tokens:     tokens,
		Classifier: classifier,
		Sink:       sink,
		Logger:     appLogger,
		Metrics:    recorder,
	}, cfg.Payment.FeeChainID, cfg.Verifier.CallbackURL)

	handler := restapi.NewHandler(restapi.Deps{
		Session:      session,
		Classifier:   classifier,
		Balances:     balances,
		Tokens:       tokens,
		Identity:     identity,
		Orchestrator: orchestrator,
		Callback:     callback,
		Records:      records,
		Logger:       appLogger,
	})
	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		CORSOrigins:    cfg.Server.CORSOrigins,
		SwaggerEnabled: cfg.Swagger.Enabled,
		SwaggerPath:    cfg.Swagger.Path,
		SpecFile:       cfg.Swagger.SpecFile,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan

	logger.Info("Shutdown signal received, stopping HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server stopped.")
	}

	cancel()
	logger.Info("Wallet session service stopped.")
}

// newWalletProvider builds the configured provider. A nil provider means no wallet is
// available; the session then reports ProviderAbsent.
func newWalletProvider(ctx context.Context, cfg *configloader.Config, log port.Logger) (port.WalletProvider, func()) {
	switch cfg.Provider.Mode {
	case "rpc":
		w, err := clientprovider.NewEVMWallet(
			cfg.Provider.URLs,
			defaultConnectionTimeout,
			time.Duration(cfg.Provider.RequestTimeoutMillis)*time.Millisecond,
			log,
		)
		if err != nil {
			logger.Error("Wallet provider unavailable", "urls", cfg.Provider.URLs, "error", err)
			return nil, func() {}
		}
		w.StartWatcher(ctx, time.Duration(cfg.Provider.PollIntervalMillis)*time.Millisecond, cfg.Provider.PollBurst)
		return w, w.Close
	default:
		m := cfg.Provider.Memory
		w, err := memprovider.New(memprovider.Config{
			PrivateKeyHex:    m.PrivateKeyHex,
			ChainID:          m.ChainID,
			KnownChains:      m.KnownChains,
			NativeBalanceWei: m.NativeBalanceWei,
			Authorized:       m.Authorized,
		})
		if err != nil {
			logger.Fatal("Failed to create in-memory wallet", "error", err)
		}
		logger.Info("Using in-memory wallet", "address", w.Address(), "chainId", w.CurrentChain())
		return w, func() {}
	}
}

// logResets drains session reset signals for the lifetime of ctx.
func logResets(ctx context.Context, session *service.SessionService) {
	ch := make(chan entity.ResetSignal, 8)
	sub := session.SubscribeResets(ch)
	defer sub.Unsubscribe()
	for {
		select {
		case sig := <-ch:
			logger.Warn("Session reset", "from", sig.From.DisplayName, "to", sig.To.DisplayName, "generation", sig.Generation)
		case err := <-sub.Err():
			if err != nil {
				logger.Error("Reset subscription failed", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
