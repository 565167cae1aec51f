package main

import (
	"log"

	"github.com/chayanin/tripvote-service/config"
	"github.com/chayanin/tripvote-service/internal/handler"
	"github.com/chayanin/tripvote-service/internal/middleware"
	"github.com/chayanin/tripvote-service/internal/repository"
	"github.com/chayanin/tripvote-service/internal/service"
	"github.com/chayanin/tripvote-service/pkg/database"
	"github.com/chayanin/tripvote-service/pkg/gemini"
	"github.com/chayanin/tripvote-service/pkg/places"
	"github.com/chayanin/tripvote-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: room lifecycle events for push consumers, optional
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		var err error
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RABBITMQ_URL not set, room events disabled")
	}

	// Repositories
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	// External clients
	generator := gemini.NewClient(cfg.GeminiAPIKey)
	placesClient := places.NewClient(cfg.MapsAPIKey)

	// Services
	roomSvc := service.NewRoomService(roomRepo, userRepo, publisher)
	voteSvc := service.NewVoteService(roomRepo, userRepo, voteRepo, generator, publisher, cfg.GenerationTimeout)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "tripvote-service"})
	})

	handler.NewRoomHandler(roomSvc, voteSvc, cfg.BaseURL).RegisterRoutes(e)
	handler.NewPlaceHandler(placesClient).RegisterRoutes(e)

	log.Printf("TripVote Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
