package main // Entry point package

import (
	"context"   // shutdown deadlines
	"errors"    // server-closed check
	"fmt"       // error wrapping
	"log"       // Logging library
	"net/http"  // http.ErrServerClosed
	"os"        // interrupt signal
	"os/signal" // graceful shutdown trigger
	"syscall"   // SIGTERM
	"time"      // timeouts

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request id, access log, panic recovery

	"github.com/iliyamo/tutoring-marketplace/internal/config"     // Internal config loader
	"github.com/iliyamo/tutoring-marketplace/internal/database"   // store connections
	"github.com/iliyamo/tutoring-marketplace/internal/handler"    // HTTP handlers
	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // session guard, rate limit, cache
	"github.com/iliyamo/tutoring-marketplace/internal/queue"      // activity events
	"github.com/iliyamo/tutoring-marketplace/internal/repository" // store implementations
	"github.com/iliyamo/tutoring-marketplace/internal/router"     // Internal router setup
	"github.com/iliyamo/tutoring-marketplace/internal/service"    // business rules
	"github.com/iliyamo/tutoring-marketplace/internal/utils"      // tokens and hashing
)

func main() {
	cfg := config.Load() // Load environment config

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		log.Fatalf("open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStores()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A nil interface disables events in the services.
	var events service.EventPublisher
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL)
		defer pub.Close()
		events = pub
		go queue.StartActivityConsumer(ctx, cfg.RabbitURL, cfg.ActivityLogDir)
	}

	signer := utils.NewJWTSigner(cfg.JWTSecret, cfg.AccessTTL())
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)
	directory := middleware.NewResponseCache(config.LoadCacheConfig(), rdb) // Tutor directory cache

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Deps{
		Auth:        handler.NewAuthHandler(service.NewAuthService(stores.Users, hasher, signer).WithDirectoryCache(directory)),
		Messages:    handler.NewMessageHandler(service.NewMessageService(stores.Messages, stores.Users, events)),
		Lessons:     handler.NewLessonHandler(service.NewLessonService(stores.Lessons, stores.Users, events, cfg.MeetingBaseURL)),
		Tutors:      handler.NewTutorHandler(service.NewTutorService(stores.Users)),
		Quizzes:     handler.NewQuizHandler(service.NewQuizService(stores.Quizzes)),
		Verifier:    signer,
		TokenHeader: cfg.TokenHeader,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:       directory.Middleware(),
	})

	addr := ":" + cfg.Port                                                          // Address string with port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStores connects the backend chosen by STORE_DRIVER, prepares its
// schema or indexes and returns its repositories with a close function.
func openStores(cfg config.Config) (service.Stores, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return service.Stores{}, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
		return service.Stores{
			Users:    repository.NewUserRepo(db),
			Messages: repository.NewMessageRepo(db),
			Lessons:  repository.NewLessonRepo(db),
			Quizzes:  repository.NewQuizRepo(db),
		}, func() { _ = db.Close() }, nil

	case config.StoreBolt:
		db, err := database.OpenBolt(cfg.BoltPath)
		if err != nil {
			return service.Stores{}, nil, err
		}
		if err := repository.EnsureBoltBuckets(db); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, fmt.Errorf("buckets: %w", err)
		}
		return service.Stores{
			Users:    repository.NewBoltUserRepo(db),
			Messages: repository.NewBoltMessageRepo(db),
			Lessons:  repository.NewBoltLessonRepo(db),
			Quizzes:  repository.NewBoltQuizRepo(db),
		}, func() { _ = db.Close() }, nil
	}

	client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return service.Stores{}, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return service.Stores{}, nil, fmt.Errorf("indexes: %w", err)
	}
	return service.Stores{
		Users:    repository.NewMongoUserRepo(db),
		Messages: repository.NewMongoMessageRepo(db),
		Lessons:  repository.NewMongoLessonRepo(db),
		Quizzes:  repository.NewMongoQuizRepo(db),
	}, func() { _ = client.Disconnect(context.Background()) }, nil
}
