package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/marketplace/internal/config"
	"github.com/Skotchmaster/marketplace/internal/forms"
	"github.com/Skotchmaster/marketplace/internal/handlers"
	"github.com/Skotchmaster/marketplace/internal/logging"
	"github.com/Skotchmaster/marketplace/internal/middleware/loggingmw"
	"github.com/Skotchmaster/marketplace/internal/mykafka"
	"github.com/Skotchmaster/marketplace/internal/render"
	httpserver "github.com/Skotchmaster/marketplace/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	jwtSecret := []byte(configuration.JWT_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	e.Renderer = render.New()
	e.Validator = forms.NewEchoValidator()

	deps := httpserver.Deps{
		DB:              db,
		JWTSecret:       jwtSecret,
		MediaDir:        configuration.MEDIA_DIR,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: producerOrNil(prod)},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: producerOrNil(prod), MediaDir: configuration.MEDIA_DIR},
		CartHandler:     &handlers.CartHandler{DB: db, Producer: producerOrNil(prod)},
		PurchaseHandler: &handlers.PurchaseHandler{DB: db, Producer: producerOrNil(prod)},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.HTTP_PORT,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

// producerOrNil keeps a typed-nil *Producer out of the EventPublisher
// interface so the nil check in handlers stays meaningful.
func producerOrNil(p *mykafka.Producer) handlers.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
