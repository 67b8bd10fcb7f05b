package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"license-reconciler/core/config"
	"license-reconciler/core/loader"
	"license-reconciler/core/logger"
	"license-reconciler/core/middleware/auth"
	"license-reconciler/core/middleware/rayid"
	"license-reconciler/feature/license"
	"license-reconciler/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "license-reconciler/docs/swagger"
)

// @title License Reconciler API
// @version 1.0
// @description Reconciliation engine between the internal license store and the external licensing system.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the license reconciler server",
	Long:  `Starts the HTTP server, initializes all enabled features, and schedules periodic syncs when configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Wire the engine (database, breaker, API client, services)
		eng, err := buildEngine(cfg, logg)
		if err != nil {
			logg.Fatal("Failed to build engine", zap.Error(err))
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// 5. Register Features
		mgr := loader.NewManager()
		mgr.Register(license.NewFeature(eng.db, eng.detector, logg))
		mgr.Register(sync.NewFeature(eng.syncSvc, cfg.External.BaseURL != "", logg))

		// Middleware Registration
		// RayID must be first to trace everything.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Scheduled Syncs
		var scheduler *cron.Cron
		if cfg.Sync.Schedule != "" && cfg.External.BaseURL != "" {
			scheduler = cron.New()
			_, err := scheduler.AddFunc(cfg.Sync.Schedule, func() {
				result, err := eng.syncSvc.Run(context.Background(), sync.Options{
					Comprehensive: cfg.Sync.Comprehensive,
				})
				if err != nil {
					// Only ErrSyncInProgress lands here; skip this tick.
					logg.Warn("Scheduled sync skipped", zap.Error(err))
					return
				}
				if !result.Success {
					logg.Error("Scheduled sync failed", zap.String("operation_id", result.OperationID), zap.String("error", result.Error))
				}
			})
			if err != nil {
				logg.Fatal("Invalid sync schedule", zap.String("schedule", cfg.Sync.Schedule), zap.Error(err))
			}
			scheduler.Start()
			logg.Info("Scheduled syncs enabled", zap.String("schedule", cfg.Sync.Schedule))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
