package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/JonasWehrle/StagePass/app/repository"
	"github.com/JonasWehrle/StagePass/internal/pkg/cache"
	"github.com/JonasWehrle/StagePass/internal/pkg/database"
	"github.com/JonasWehrle/StagePass/internal/pkg/env"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
	"github.com/JonasWehrle/StagePass/internal/pkg/providers"
	"github.com/JonasWehrle/StagePass/internal/pkg/rolecache"
	"github.com/JonasWehrle/StagePass/internal/pkg/router"
	"github.com/JonasWehrle/StagePass/internal/pkg/streamhealth"
	"github.com/JonasWehrle/StagePass/internal/pkg/streams"
	"github.com/JonasWehrle/StagePass/internal/pkg/sweeper"
)

func main() {
	app := NewApplication()

	manager := sweeper.GetManager()
	manager.Start()

	// graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("[Main] Shutting down...")
		manager.Stop()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	db := database.GetDB()
	ledger := grants.NewService(grants.NewRepository(db), rolecache.New(), grants.DefaultPolicy())
	lifecycle := streams.NewServiceFromDB(db, providers.NoopVideoProvider{}, providers.NoopChatProvider{})
	monitorSvc := streamhealth.NewMonitor(lifecycle, streamhealth.NewLastSeenStore())
	sweeper.Setup(ledger, monitorSvc)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "StagePass",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
