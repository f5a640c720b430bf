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

	"goighem/internal/advisor"
	"goighem/internal/app"
	"goighem/internal/config"
	"goighem/internal/family"
	"goighem/internal/feed"
	apphttp "goighem/internal/http"
	"goighem/internal/log"
	"goighem/internal/session"
	"goighem/internal/store/factory"
	appsync "goighem/internal/sync"
)

func main() {
	// .env is for local development; absence is fine.
	_ = godotenv.Load()

	logger := log.Setup(log.ComponentApp)
	logger.Info("starting goighem")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", log.FieldError, err.Error())
		os.Exit(1)
	}

	// The gate does not exist yet when the store is built; the token source
	// resolves lazily so the rest adapter always sees the current session.
	var gate *session.Gate
	tokenSource := func() string {
		if gate == nil {
			return ""
		}
		return gate.Token()
	}

	st, err := factory.New(logger.Logger).CreateStore(factory.Config{
		Type:         factory.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		RemoteURL:    cfg.RemoteStoreURL,
		RemoteAPIKey: cfg.RemoteStoreKey,
		RemoteToken:  tokenSource,
	})
	if err != nil {
		logger.Error("store initialization failed", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	var auth session.Authenticator
	if factory.BackendType(cfg.DataBackend) == factory.RemoteBackend {
		auth = session.NewRemoteAuthenticator(cfg.RemoteStoreURL, cfg.RemoteStoreKey)
	} else {
		creds, ok := st.(session.CredentialStore)
		if !ok {
			logger.Error("backend cannot store credentials", log.FieldBackend, cfg.DataBackend)
			os.Exit(1)
		}
		tokens := session.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
		auth = session.NewLocalAuthenticator(creds, tokens)
	}
	gate = session.NewGate(auth, logger.WithComponent(log.ComponentSession))

	fam := family.NewService(st, st, logger.WithComponent(log.ComponentFamily))
	syncer := appsync.New(st, fam, logger.WithComponent(log.ComponentSync))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var feedClient *feed.Client
	if cfg.AMQPURL != "" {
		feedClient, err = feed.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentFeed))
		if err != nil {
			logger.Error("change feed unavailable", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer feedClient.Close()
	} else {
		logger.Info("change feed disabled, peers converge on periodic sync only")
	}

	var publisher app.Publisher
	if feedClient != nil {
		publisher = feedClient
	}
	ctrl := app.NewController(st, syncer, fam, publisher, logger)

	events, unsubscribe := gate.Subscribe()
	defer unsubscribe()
	go ctrl.Watch(ctx, events)

	if feedClient != nil {
		startFeedListener(ctx, feedClient, gate, syncer, cfg.FeedDebounce, logger)
	}

	var adv *advisor.Advisor
	if cfg.GeminiAPIKey != "" {
		adv, err = advisor.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger.WithComponent(log.ComponentAdvisor))
		if err != nil {
			logger.Warn("advisor unavailable, AI endpoints will answer 503", log.FieldError, err.Error())
			adv = nil
		} else {
			defer adv.Close()
		}
	} else {
		logger.Info("no GEMINI_API_KEY, AI endpoints will answer 503")
	}

	srv := apphttp.NewServer(":"+cfg.Port, gate, ctrl, syncer, adv, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", log.FieldError, err.Error())
		}
		cancel()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", log.FieldError, err.Error())
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("stopped")
}

// startFeedListener funnels broadcast change messages into debounced resyncs
// of the active session.
func startFeedListener(ctx context.Context, client *feed.Client, gate *session.Gate, syncer *appsync.Syncer, window time.Duration, logger *log.Logger) {
	debouncer := feed.NewDebouncer(window)
	go debouncer.Run(ctx)

	go func() {
		err := client.ConsumeChanges(ctx, func(msg *feed.ChangeMessage) error {
			// Our own writes are already spliced locally.
			if uid := gate.UserID(); uid == "" || msg.ActorID == uid {
				return nil
			}
			debouncer.Notify()
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("change feed consumption stopped", log.FieldError, err.Error())
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-debouncer.Resyncs():
				uid := gate.UserID()
				if uid == "" {
					continue
				}
				if _, err := syncer.Sync(ctx, uid); err != nil {
					logger.Warn("feed-triggered sync incomplete", log.FieldError, err.Error())
				}
			}
		}
	}()
}
