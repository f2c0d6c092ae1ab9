package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/badge"
	"github.com/vasiliy-maslov/campus-cafe/internal/config"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
	cafeHttp "github.com/vasiliy-maslov/campus-cafe/internal/handler/http"
	"github.com/vasiliy-maslov/campus-cafe/internal/inventory"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
	"github.com/vasiliy-maslov/campus-cafe/internal/payment"
	"github.com/vasiliy-maslov/campus-cafe/internal/report"
	"github.com/vasiliy-maslov/campus-cafe/internal/reservation"
	"github.com/vasiliy-maslov/campus-cafe/internal/review"
	"github.com/vasiliy-maslov/campus-cafe/internal/schedule"
	"github.com/vasiliy-maslov/campus-cafe/internal/storage"
	"github.com/vasiliy-maslov/campus-cafe/internal/student"
	"github.com/vasiliy-maslov/campus-cafe/internal/user"
	"golang.org/x/sync/errgroup"
)

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.Name).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Msg("Cafe service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := dbConn.ApplyMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	files, err := storage.NewLocalStore(cfg.Media.Root, cfg.Media.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare media storage")
	}

	group, groupCtx := errgroup.WithContext(ctx)

	notificationSvc := notification.NewService(notification.NewRepository(dbConn.Pool))
	var publisher notification.Publisher = notificationSvc
	if cfg.RabbitMQ.Enabled() {
		broker, err := notification.DialBroker(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer broker.Close()

		publisher = notification.NewAMQPPublisher(broker)
		consumer := notification.NewConsumer(broker, notificationSvc)
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authMiddleware := auth.NewMiddleware(tokens, auth.DefaultPolicy)

	userRepository := user.NewRepository(dbConn.Pool)
	menuRepository := menu.NewRepository(dbConn.Pool)
	orderRepository := order.NewRepository(dbConn.Pool)

	userSvc := user.NewService(userRepository, tokens)
	menuSvc := menu.NewService(menuRepository)
	orderSvc := order.NewService(orderRepository, menuRepository, publisher)
	paymentSvc := payment.NewService(payment.NewRepository(dbConn.Pool), orderSvc)
	reservationSvc := reservation.NewService(reservation.NewRepository(dbConn.Pool))
	reviewSvc := review.NewService(review.NewRepository(dbConn.Pool), orderRepository)
	inventorySvc := inventory.NewService(inventory.NewRepository(dbConn.Pool), publisher)
	scheduleSvc := schedule.NewService(schedule.NewRepository(dbConn.Pool), userRepository)
	reportSvc := report.NewService(report.NewRepository(dbConn.SQLX()))
	studentSvc := student.NewService(student.NewRepository(dbConn.Pool), badge.NewGenerator(), files)

	router := cafeHttp.NewRouter(authMiddleware.Authenticate, authMiddleware, cafeHttp.Routes{
		Cafe: []cafeHttp.RouteRegistrar{
			cafeHttp.NewUserHandler(userSvc),
			cafeHttp.NewMenuHandler(menuSvc),
			cafeHttp.NewOrderHandler(orderSvc),
			cafeHttp.NewPaymentHandler(paymentSvc),
			cafeHttp.NewReservationHandler(reservationSvc),
			cafeHttp.NewReviewHandler(reviewSvc),
			cafeHttp.NewInventoryHandler(inventorySvc),
			cafeHttp.NewScheduleHandler(scheduleSvc),
			cafeHttp.NewNotificationHandler(notificationSvc),
			cafeHttp.NewReportHandler(reportSvc),
		},
		Students: cafeHttp.NewStudentHandler(studentSvc),
		Media:    files.Handler(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	group.Go(func() error {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("Cafe service stopped with error")
		return
	}
	log.Info().Msg("Cafe service stopped gracefully")
}
