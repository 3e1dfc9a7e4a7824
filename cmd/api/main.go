// Package main is the entry point for the Mobility Sharing API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mobility-sharing/backend/internal/config"
	"github.com/mobility-sharing/backend/internal/events"
	"github.com/mobility-sharing/backend/internal/geocode"
	"github.com/mobility-sharing/backend/internal/handler"
	"github.com/mobility-sharing/backend/internal/middleware"
	"github.com/mobility-sharing/backend/internal/repo"
	"github.com/mobility-sharing/backend/internal/service"
	"github.com/mobility-sharing/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.RunMigrations {
		sqlDB := stdlib.OpenDBFromPool(pool)
		applied, err := migrations.Up(context.Background(), sqlDB)
		sqlDB.Close()
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", applied)
	}

	// --- Geocoding --------------------------------------------------------
	// Coordinates are optional. Without a geocoder URL travels keep whatever
	// coordinates the driver sent.
	var geocoder service.Geocoder
	if cfg.GeocoderURL != "" {
		var g geocode.Geocoder = geocode.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderTimeout)
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			defer rdb.Close()
			if err := rdb.Ping(context.Background()).Err(); err != nil {
				slog.Warn("redis unreachable, geocode cache will fall through", "error", err)
			}
			g = geocode.NewCache(g, rdb, cfg.GeocodeCacheTTL)
		}
		geocoder = g
	}

	// --- Events -----------------------------------------------------------
	var publisher service.EventPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	// --- Services ---------------------------------------------------------
	store := repo.NewStore(pool)
	travelService := service.NewTravelService(store, service.TravelOptions{
		Geocoder:         geocoder,
		Events:           publisher,
		Location:         cfg.Location,
		MaxRecurringDays: cfg.MaxRecurringDays,
	})
	bookingService := service.NewBookingService(store, publisher)
	server := handler.NewServer(handler.Services{
		Travels:  travelService,
		Search:   service.NewSearchService(travelService, bookingService),
		Bookings: bookingService,
		Ratings:  service.NewRatingService(store, publisher),
		Users:    service.NewUserService(store.Users()),
		Eco: service.NewEcoService(store.Eco(), service.EcoParams{
			CO2PerSeatKg:       cfg.Eco.CO2PerSeatKg,
			RupeesPerPassenger: cfg.Eco.RupeesPerPassenger,
			RupeesPerRide:      cfg.Eco.RupeesPerRide,
		}, cfg.Location),
		DB: pool,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit → metrics.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	server.Register(r)

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
