package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"meatstore/internal/config"
	"meatstore/internal/es"
	"meatstore/internal/events"
	"meatstore/internal/handlers"
	"meatstore/internal/logging"
	"meatstore/internal/mailer"
	mwauth "meatstore/internal/middleware/auth"
	loggingmw "meatstore/internal/middleware/logging"
	"meatstore/internal/search"
	"meatstore/internal/token"
	httpserver "meatstore/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	tokens := token.New([]byte(configuration.JWT_SECRET))
	session := mwauth.NewSession(tokens, db)

	var producer *events.Producer
	if len(configuration.KAFKA_BROKERS) > 0 {
		producer = events.NewProducer(configuration.KAFKA_BROKERS)
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events disabled")
	}

	var smtpMailer mailer.Mailer
	if configuration.SMTP_HOST != "" {
		smtpMailer = &mailer.SMTPMailer{
			Host:     configuration.SMTP_HOST,
			Port:     configuration.SMTP_PORT,
			Username: configuration.SMTP_USER,
			Password: configuration.SMTP_PASSWORD,
			From:     configuration.MAIL_FROM,
			FromName: configuration.MAIL_FROM_NAME,
		}
	} else {
		logger.Warn("SMTP_HOST not set, outgoing mail disabled")
	}

	var searchHandler *handlers.SearchHandler
	productHandler := &handlers.ProductHandler{DB: db}
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		productHandler.ES = esClient
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: search.ProductIndex}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	var pub events.Publisher
	if producer != nil {
		pub = producer
	}
	productHandler.Producer = pub

	deps := httpserver.Deps{
		Session: session,
		AuthHandler: &handlers.AuthHandler{
			DB:        db,
			Tokens:    tokens,
			Mailer:    smtpMailer,
			Producer:  pub,
			ClientURL: configuration.CLIENT_URL,
		},
		CartHandler:    &handlers.CartHandler{DB: db, Producer: pub},
		ProductHandler: productHandler,
		SearchHandler:  searchHandler,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	logger.Info("server started", "port", configuration.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	logger.Info("shutdown complete")
}
