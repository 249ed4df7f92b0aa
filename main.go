package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tubequeue/domain/repository"
	"tubequeue/infrastructure/cache"
	googleauth "tubequeue/infrastructure/clients/google"
	youtubeclient "tubequeue/infrastructure/clients/youtube"
	"tubequeue/infrastructure/configuration"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/persistence"
	"tubequeue/infrastructure/pubsub"
	"tubequeue/infrastructure/realtime"
	"tubequeue/infrastructure/servicebus"
	httpHandler "tubequeue/interfaces/http"
	"tubequeue/interfaces/middleware"
	"tubequeue/server"
	"tubequeue/usecase"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

// stores holds the persistence chosen by configuration plus what must be
// closed on shutdown.
type stores struct {
	credentials repository.ICredential
	activations repository.IActivation
	queue       repository.IQueue
	states      repository.IOAuthState
	search      repository.ISearchCache
	closers     []func()
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	if loaded := configuration.LoadEnvFromFile("config.env", ".env"); len(loaded) > 0 {
		logger.GetLogger().WithField("files", loaded).Info("Loaded env files")
		configuration.Reload()
	}
	app := configuration.C.App
	jukeboxCfg := configuration.C.Jukebox
	timeout := time.Duration(jukeboxCfg.UpstreamTimeoutSeconds) * time.Second

	st, err := initiateStores(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Store initialization failed")
	}
	defer func() {
		for _, closeFn := range st.closers {
			closeFn()
		}
	}()

	youtubeConfig, err := configuration.GetYouTubeConfig()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("YouTube OAuth client not configured - hosts cannot connect")
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"hasAPIKey":   youtubeConfig.APIKey != "",
		"clientIDSet": youtubeConfig.ClientID != "",
		"redirectURL": youtubeConfig.RedirectURL,
	}).Info("Loaded YouTube configuration state")

	authority := googleauth.NewTokenAuthority(&googleauth.Config{
		ClientID:     youtubeConfig.ClientID,
		ClientSecret: youtubeConfig.ClientSecret,
		RedirectURL:  youtubeConfig.RedirectURL,
		Scopes:       youtubeConfig.Scopes,
		Timeout:      youtubeConfig.Timeout,
	})
	youtubeClient := youtubeclient.NewYouTubeClient(&youtubeclient.Config{
		APIKey:   youtubeConfig.APIKey,
		Endpoint: youtubeConfig.Endpoint,
		Timeout:  youtubeConfig.Timeout,
	})

	hub := realtime.NewQueueHub()
	publishers := []repository.IQueueEvents{hub}
	publishers = append(publishers, initiatePublishers(ctx, &st)...)

	refresher := usecase.NewTokenRefresher(st.credentials, authority, time.Duration(jukeboxCfg.RefreshBufferSeconds)*time.Second)
	resolver := usecase.NewStatusResolver(st.activations, refresher)
	activationUsecase := usecase.NewActivationUsecase(st.activations, refresher)
	jukeboxUsecase := usecase.NewJukeboxUsecase(resolver, st.activations, st.queue, youtubeClient, timeout, jukeboxCfg.PlaylistMaxResults, publishers...)
	searchUsecase := usecase.NewSearchUsecase(youtubeClient, jukeboxCfg.SearchDefaultResults, jukeboxCfg.SearchMaxResults, timeout)
	if st.search != nil {
		searchUsecase.WithCache(st.search, time.Duration(jukeboxCfg.SearchCacheTTLSeconds)*time.Second)
	}
	hostUsecase := usecase.NewHostUsecase(st.credentials, st.activations, refresher, youtubeClient, timeout)
	authUsecase := usecase.NewAuthUsecase(authority, youtubeClient, st.credentials, st.states, activationUsecase, jukeboxUsecase, usecase.AuthConfig{
		SecretKey:  app.SecretKey,
		SessionTTL: time.Duration(jukeboxCfg.SessionTTLHours) * time.Hour,
		Timeout:    timeout,
	})

	router := server.InitiateRouter(server.Handlers{
		Health:      httpHandler.NewHealthHandler(),
		Jukebox:     httpHandler.NewJukeboxHandler(jukeboxUsecase, searchUsecase),
		Host:        httpHandler.NewHostHandler(hostUsecase, activationUsecase),
		YouTubeAuth: httpHandler.NewYouTubeAuthHandler(authUsecase, app.PostLoginRedirect, app.TLSEnabled),
		Stream:      hub.Serve,
	}, server.Options{
		AllowedOrigins: app.AllowedOrigins,
		SecretKey:      app.SecretKey,
		GuestLimiter:   middleware.NewIPRateLimiter(jukeboxCfg.GuestRateLimit, jukeboxCfg.GuestRateBurst),
	})

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case sig := <-interrupt:
		logger.GetLogger().WithField("signal", sig.String()).Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// SSE streams end with their request contexts.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Graceful shutdown timed out")
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// initiateStores opens the credential/activation store selected by
// database.vendor, then Redis for the queue, OAuth state and search cache.
func initiateStores(ctx context.Context) (stores, error) {
	var st stores
	var mongoDb *mongo.Database

	switch vendor := configuration.C.Database.Vendor; vendor {
	case "postgres", "postgresql", "psql":
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			return st, fmt.Errorf("connect postgres: %w", err)
		}
		if err := persistence.EnsureJukeboxSchema(db); err != nil {
			return st, fmt.Errorf("ensure postgres schema: %w", err)
		}
		st.credentials = persistence.NewCredentialRepository(db)
		st.activations = persistence.NewActivationRepository(db)
		st.closers = append(st.closers, closeSQL(db, "postgres"))
	case "mssql", "sqlserver":
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return st, fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsureJukeboxSchemaMSSQL(db); err != nil {
			return st, fmt.Errorf("ensure mssql schema: %w", err)
		}
		st.credentials = persistence.NewCredentialRepositoryMSSQL(db)
		st.activations = persistence.NewActivationRepositoryMSSQL(db)
		st.closers = append(st.closers, closeSQL(db, "mssql"))
	case "mongo", "mongodb":
		client, err := persistence.NewMongoDb(ctx)
		if err != nil {
			return st, err
		}
		mongoDb = client.Database(configuration.C.Database.Mongo.Name)
		st.credentials = persistence.NewCredentialRepositoryMongo(mongoDb)
		st.activations = persistence.NewActivationRepositoryMongo(mongoDb)
		st.closers = append(st.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.GetLogger().WithField("error", err).Warn("mongo disconnect failed")
			}
		})
	default:
		return st, fmt.Errorf("unknown database vendor %q", vendor)
	}
	logger.GetLogger().WithField("vendor", configuration.C.Database.Vendor).Info("Database connected.")

	redisCfg := configuration.C.RedisClient
	redisClient, err := cache.NewCache(ctx, fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port), redisCfg.Username, redisCfg.Password, redisCfg.DB)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without search cache")
		redisClient = nil
	}
	if redisClient != nil {
		st.states = cache.NewStateStore(redisClient)
		st.search = cache.NewSearchCache(redisClient)
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	} else {
		// OAuth state only has to survive one login round trip on this instance.
		st.states = cache.NewMemoryStateStore()
	}

	queue, err := initiateQueue(ctx, configuration.C.Jukebox.QueueStore, redisClient, mongoDb)
	if err != nil {
		return st, err
	}
	st.queue = queue
	return st, nil
}

func initiateQueue(ctx context.Context, kind string, redisClient *redis.Client, mongoDb *mongo.Database) (repository.IQueue, error) {
	if kind == "redis" && redisClient != nil {
		return cache.NewQueueCache(redisClient), nil
	}
	if mongoDb != nil {
		if kind == "redis" {
			logger.GetLogger().Warn("Redis queue store unavailable - using MongoDB display queue")
		}
		if err := persistence.EnsureQueueIndexes(ctx, mongoDb); err != nil {
			return nil, fmt.Errorf("ensure queue indexes: %w", err)
		}
		return persistence.NewQueueRepositoryMongo(mongoDb), nil
	}
	return nil, fmt.Errorf("queue store %q needs redis or the mongo vendor", kind)
}

// initiatePublishers returns the optional broker publishers that are configured.
func initiatePublishers(ctx context.Context, st *stores) []repository.IQueueEvents {
	var publishers []repository.IQueueEvents

	if cfg := configuration.C.Pubsub; cfg.ProjectID != "" && cfg.Topic != "" {
		client, err := pubsub.NewPubSub(ctx, cfg.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		} else {
			publisher := pubsub.NewQueuePublisher(client, cfg.Topic)
			publishers = append(publishers, publisher)
			st.closers = append(st.closers, func() {
				if p, ok := publisher.(*pubsub.QueuePublisher); ok {
					p.Stop()
				}
				_ = client.Close()
			})
		}
	}

	if cfg := configuration.C.ServiceBus; cfg.Queue != "" && (cfg.Namespace != "" || cfg.ConnectionString != "") {
		client, err := servicebus.NewServiceBus(cfg.Namespace, cfg.ConnectionString)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		} else {
			publishers = append(publishers, servicebus.NewQueueSender(client, cfg.Queue))
			st.closers = append(st.closers, func() { _ = client.Close(context.Background()) })
		}
	}

	logger.GetLogger().WithField("brokers", len(publishers)).Info("Queue event publishers initialized")
	return publishers
}

func closeSQL(db *sql.DB, name string) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.GetLogger().WithField("db", name).WithField("error", err).Warn("close database failed")
		}
	}
}
