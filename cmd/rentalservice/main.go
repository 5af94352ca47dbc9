package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/eurent/internal/booking/availability"
	"github.com/example/eurent/internal/booking/domain"
	"github.com/example/eurent/internal/booking/handler"
	"github.com/example/eurent/internal/booking/repository"
	bookingservice "github.com/example/eurent/internal/booking/service"
	httpmiddleware "github.com/example/eurent/internal/http/middleware"
	"github.com/example/eurent/pkg/events"
	"github.com/example/eurent/pkg/observability"
)

type appConfig struct {
	HTTPAddr     string
	FleetFile    string
	RedisAddr    string
	NATSURL      string
	EventSubject string
	IdemTTL      time.Duration
	BrowseRate   float64
	BrowseBurst  float64
	BookRate     float64
	BookBurst    float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("rental-service")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "rental-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	cfg := loadConfig()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("rentalservice")); err == nil {
			natsConn = conn
			defer conn.Drain()
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	fleet := repository.NewMemoryFleetCatalog()
	if cfg.FleetFile != "" {
		loaded, err := fleet.LoadCSV(cfg.FleetFile)
		if err != nil {
			logger.Warn("fleet file load failed", zap.String("path", cfg.FleetFile), zap.Error(err))
		} else {
			logger.Info("fleet loaded", zap.Int("vehicles", loaded))
		}
	}
	customers := repository.NewMemoryCustomerDirectory()
	store := repository.NewMemoryBookingStore()
	resolver := availability.NewResolver(fleet, store)
	publisher := events.NewPublisher(natsConn, cfg.EventSubject)
	idem := buildIdempotencyRepo(redisClient, cfg)

	svc := bookingservice.New(store, customers, resolver, publisher, domain.SystemClock{}, idem)
	rentalHTTP := handler.NewHTTP(svc, fleet, customers)

	limiter := httpmiddleware.NewRateLimiter(redisClient,
		httpmiddleware.RateConfig{Rate: cfg.BrowseRate, Burst: cfg.BrowseBurst},
		httpmiddleware.RateConfig{Rate: cfg.BookRate, Burst: cfg.BookBurst})

	r := chi.NewRouter()
	r.Use(limiter.Middleware)
	r.Mount("/", rentalHTTP.Router())
	r.Mount("/observability", observability.MetricsRouter())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rental service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildIdempotencyRepo(redisClient *redis.Client, cfg appConfig) domain.IdempotencyRepository {
	if redisClient == nil {
		return repository.NewMemoryIdempotencyRepo()
	}
	return repository.NewRedisIdempotencyRepo(redisClient, "", cfg.IdemTTL)
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		FleetFile:    getenv("FLEET_FILE", "cars.csv"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		NATSURL:      os.Getenv("NATS_URL"),
		EventSubject: getenv("EVENT_SUBJECT", "rental.bookings"),
		IdemTTL:      time.Duration(parseIntEnv("IDEMPOTENCY_TTL_SEC", 86400)) * time.Second,
		BrowseRate:   parseFloatEnv("RATE_BROWSE_PER_SEC", 0),
		BrowseBurst:  parseFloatEnv("RATE_BROWSE_BURST", 0),
		BookRate:     parseFloatEnv("RATE_BOOK_PER_SEC", 0),
		BookBurst:    parseFloatEnv("RATE_BOOK_BURST", 0),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
