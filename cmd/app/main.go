package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/offerpoint/offerpoint-core/injector"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

func main() {
	infrastructures.LoadConfig()

	app, err := injector.InitializeApplication()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	// Fiber configuration
	config := fiber.Config{
		ReadTimeout:  time.Second * 60,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	}

	router := fiber.New(config)

	// Add CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length",
		MaxAge:        300,
	}))

	app.RegisterRoutes(router)

	app.FulfillmentWorker.Start(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logrus.Info("shutting down")
		app.FulfillmentWorker.Stop()
		_ = router.Shutdown()
	}()

	if err := router.Listen(":8080"); err != nil {
		logrus.Fatal(err)
	}
}
