package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/makeasinger/studio/internal/auth"
	"github.com/makeasinger/studio/internal/client"
	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/handler"
	"github.com/makeasinger/studio/internal/logging"
	"github.com/makeasinger/studio/internal/middleware"
	"github.com/makeasinger/studio/internal/service"
	"github.com/makeasinger/studio/internal/storage"
	ws "github.com/makeasinger/studio/internal/websocket"
	"github.com/makeasinger/studio/internal/worker"
)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// providers holds the external clients, falling back to local mocks where a
// service is not configured.
type providers struct {
	music   generation.Provider
	aligner client.LyricsAligner
	chat    client.ChatCompleter
	images  client.ImageGenerator
	dl      service.ImageDownloader
	objects client.StorageClient
}

func newProviders(cfg *config.Config, log zerolog.Logger) *providers {
	p := &providers{}

	suno := client.NewSunoClient(&cfg.Suno, log)
	if suno.IsConfigured() {
		p.music, p.aligner = suno, suno
	} else {
		log.Warn().Msg("SUNO_API_KEY not set, using mock music provider")
		mock := client.NewMockSunoClient()
		p.music, p.aligner = mock, mock
	}

	if chat := client.NewChatClient(&cfg.Groq, log); chat.IsConfigured() {
		p.chat = chat
	}
	if images := client.NewImageClient(&cfg.OpenAI, log); images.IsConfigured() {
		p.images, p.dl = images, images
	}

	if r2, err := client.NewR2Client(&cfg.R2); err != nil {
		log.Warn().Err(err).Msg("R2 not available, covers keep provider URLs")
	} else {
		p.objects = r2
	}
	return p
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	store, err := storage.New(cfg.Database.Type, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		return err
	}
	if err := store.Start(ctx); err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	p := newProviders(cfg, log)

	var verifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		v, err := auth.NewJWKSVerifier(ctx, &cfg.Zitadel)
		if err != nil {
			log.Warn().Err(err).Msg("JWKS verifier unavailable, accepting legacy tokens only")
		} else {
			verifier = v
		}
	}
	authenticator := auth.NewAuthenticator(verifier, cfg.JWT.Secret)

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	covers := service.NewCoverService(p.images, p.dl, p.objects, log)
	tracks := service.NewTrackService(store, asynqClient, hub, p.aligner, covers, log)
	chat := service.NewChatService(p.chat, log)

	manager := generation.New(p.music, generation.Config{
		MaxConcurrent:   cfg.Generation.MaxConcurrent,
		PollInterval:    cfg.Generation.PollInterval,
		RemovalDelay:    cfg.Generation.RemovalDelay,
		MaxPollDuration: cfg.Generation.MaxPollDuration,
		PollRetries:     cfg.Generation.PollRetries,
		RetryBackoff:    cfg.Generation.RetryBackoff,
		QueueLimit:      cfg.Generation.QueueLimit,
		Estimator:       generation.NewEstimator(cfg.Generation.ExpectedDuration),
		Publisher:       hub,
		Logger:          &log,
		OnComplete:      tracks.OnComplete,
		OnReject: func(reason string) {
			log.Warn().Str("reason", reason).Msg("generation rejected")
		},
	})
	defer manager.Close()

	validate := validator.New()

	apiAuth := middleware.NewAuthMiddleware(authenticator).Authenticate()
	if cfg.Gateway.Enabled {
		apiAuth = middleware.GatewayAuthMiddleware()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	router := &handler.Router{
		Generations: handler.NewGenerationHandler(manager, validate),
		Chat:        handler.NewChatHandler(chat, validate),
		Tracks:      handler.NewTrackHandler(tracks, validate),
		Covers:      handler.NewCoverHandler(covers, validate),
		Auth:        handler.NewAuthHandler(authenticator),
		Hub:         hub,
		APIAuth:     apiAuth,
		RateLimiter: middleware.NewRateLimiter(redisClient, log),
		Limits:      cfg.RateLimit,
		Services: func() fiber.Map {
			return fiber.Map{
				"suno":   cfg.Suno.APIKey != "",
				"groq":   p.chat != nil,
				"openai": p.images != nil,
				"r2":     p.objects != nil,
				"auth":   authenticator.Configured(),
			}
		},
	}
	router.Mount(app)

	workers := startWorkerServer(redisOpt, tracks, covers, log)
	defer workers.Shutdown()

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		log.Info().Str("addr", addr).Msg("server starting")
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	manager.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startWorkerServer(redisOpt asynq.RedisClientOpt, tracks *service.TrackService, covers *service.CoverService, log zerolog.Logger) *asynq.Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			service.QueueTracks: 1,
		},
		Logger: logging.AsynqLogger{L: log.With().Str("component", "asynq").Logger()},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeTrackEnrich, worker.NewTrackWorker(tracks, covers, log).ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Error().Err(err).Msg("asynq worker error")
	}
	return srv
}
