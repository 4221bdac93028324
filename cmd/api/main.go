package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/playback-gate/internal/application/access"
	"github.com/playback-gate/internal/application/adcatalog"
	"github.com/playback-gate/internal/application/auth"
	"github.com/playback-gate/internal/application/playback"
	"github.com/playback-gate/internal/application/preroll"
	"github.com/playback-gate/internal/application/session"
	"github.com/playback-gate/internal/application/user"
	"github.com/playback-gate/internal/config"
	"github.com/playback-gate/internal/infrastructure/dynamo"
	jwtinfra "github.com/playback-gate/internal/infrastructure/jwt"
	"github.com/playback-gate/internal/infrastructure/memory"
	goredis "github.com/playback-gate/internal/infrastructure/redis"
	s3infra "github.com/playback-gate/internal/infrastructure/s3"
	"github.com/playback-gate/internal/infrastructure/smtp"
	"github.com/playback-gate/internal/infrastructure/sns"
	"github.com/playback-gate/internal/pkg/clock"
	transporthttp "github.com/playback-gate/internal/transport/http"
	"github.com/playback-gate/internal/transport/http/handler"
	appmiddleware "github.com/playback-gate/internal/transport/http/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	clk := clock.New()

	jwtProvider, err := jwtinfra.NewProvider(cfg, clk)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.VerificationCodes)
	contentRepo := dynamo.NewContentRepo(dynamoClient, cfg.DynamoTables.Contents)
	adRepo := dynamo.NewAdvertisementRepo(dynamoClient, cfg.DynamoTables.Advertisements)

	media := s3infra.NewMediaStore(s3infra.NewClient(awsCfg, cfg), cfg.S3BucketName, cfg.S3PresignTTL)

	// SNS events (noop when no topic is configured).
	events := sns.NewPublisher(sns.NewClient(awsCfg, cfg.SNSRegion, cfg.AWSEndpointURL), cfg.SNSTopicARN)

	// Redis when configured, process memory otherwise.
	var (
		stores      handler.SessionStores
		throttle    auth.Throttle
		localStores *memory.SessionStores
	)
	if cfg.RedisAddr != "" {
		rdb, err := goredis.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		stores = goredis.NewSessionStores(rdb, cfg.RefreshTokenExpiry)
		throttle = goredis.NewThrottle(rdb, cfg.OTP.Cooldown)
	} else {
		log.Println("WARN: REDIS_ADDR not set, sessions and resend throttle are process-local")
		localStores = memory.NewSessionStores(clk, cfg.RefreshTokenExpiry)
		stores = localStores
		throttle = memory.NewThrottle(clk, cfg.OTP.Cooldown)
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		VerificationRepo: verificationRepo,
		UserRepo:         userRepo,
		SessionRepo:      sessionRepo,
		Mailer:           smtp.NewMailer(cfg),
		Events:           events,
		JWTProvider:      jwtProvider,
		Throttle:         throttle,
		Clock:            clk,
		CodeTTL:          cfg.OTP.CodeTTL,
		MaxAttempts:      cfg.OTP.MaxAttempts,
		RefreshTokenDur:  cfg.RefreshTokenExpiry,
		MailSubject:      cfg.OTP.MailSubject,
	})
	sessionSvc := session.NewService(sessionRepo, userRepo, jwtProvider, clk, cfg.RefreshTokenExpiry)

	gate := playback.NewService(playback.Config{
		Catalog:      contentRepo,
		Entitlements: access.NewResolver(jwtProvider, userRepo, sessionRepo, clk),
		Ads:          adcatalog.NewService(adRepo, media),
		Verifier:     authSvc,
		Events:       events,
		Clock:        clk,
		Cooldown:     cfg.OTP.Cooldown,
		MinimumWatch: cfg.Playback.MinimumWatch,
		ContentRoute: cfg.Playback.ContentRoute,
		AuthRoute:    cfg.Playback.AuthRoute,
		BillingRoute: cfg.Playback.BillingRoute,
		FlowTTL:      cfg.OTP.FlowIdleTTL,
		AdSessionTTL: cfg.Playback.AdSessionTTL,
		Selector:     preroll.RandomSelector,
	})

	// 5 requests/second, burst of 10, on the public verification endpoints.
	limiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Playback: gate,
		Sessions: sessionSvc,
		Users:    user.NewService(userRepo, clk),
		Stores:   stores,
		Tokens:   jwtProvider,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return gate.Run(gctx, cfg.Playback.SweepInterval) })
	g.Go(func() error { return limiter.Run(gctx) })
	if localStores != nil {
		g.Go(func() error { return localStores.Run(gctx, cfg.Playback.SweepInterval) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
