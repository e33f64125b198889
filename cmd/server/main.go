// main.go
//
// A workflow and ballot engine for assembly motions and elections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of assemblydb.
// assemblydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// assemblydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with assemblydb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/database"
	"github.com/localnerve/assemblydb/internal/handlers"
	"github.com/localnerve/assemblydb/internal/middleware"
	"github.com/localnerve/assemblydb/internal/services"
	"github.com/localnerve/assemblydb/internal/workflow"

	_ "github.com/localnerve/assemblydb/docs/api" // Swagger docs
)

// @title AssemblyDB API
// @version 1.0.0
// @description Workflow and ballot engine for assembly motions and elections
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/assemblydb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	})))

	ctx := context.Background()

	// Schema and workflows are installed with the admin account
	adminDB, err := database.ConnectAdmin(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to admin database: %v", err)
	}
	if err := database.AutoMigrate(adminDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	specs, err := workflow.BuiltinSpecs()
	if err != nil {
		log.Fatalf("Failed to parse built-in workflows: %v", err)
	}
	if cfg.WorkflowsFile != "" {
		extra, err := workflow.LoadSpecs(cfg.WorkflowsFile)
		if err != nil {
			log.Fatalf("Failed to load workflows from %s: %v", cfg.WorkflowsFile, err)
		}
		specs = append(specs, extra...)
	}
	installed, err := workflow.Bootstrap(ctx, adminDB, specs, nil)
	if err != nil {
		log.Fatalf("Failed to install workflows: %v", err)
	}
	if len(installed) > 0 {
		log.Printf("Installed workflows: %s", strings.Join(installed, ", "))
	}
	_ = database.Close(adminDB)

	// Connect to database (app pool)
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to app database: %v", err)
	}
	defer database.Close(appDB)

	graph, err := workflow.LoadGraph(ctx, appDB)
	if err != nil {
		log.Fatalf("Failed to load workflow graph: %v", err)
	}

	settings, err := services.NewSettings(ctx, appDB, cfg.Assembly, nil)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	audit := &services.DBAuditSink{DB: appDB}
	polls := services.NewPollEngine(appDB, settings, audit, nil)
	lifecycle := services.NewLifecycle(appDB, graph, settings, audit, polls, nil)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("assemblydb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, appDB, lifecycle)
		if result.Status != "healthy" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(result)
		}
		return c.JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	// Authorizer is initialized on the first request, once the public
	// host is known
	api.Use(func(c *fiber.Ctx) error {
		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
				log.Printf("Authorizer initialization failed: %v", err)
			}
		}
		return c.Next()
	})

	handlers.New(lifecycle, polls, settings).Register(api,
		middleware.AuthUser(services.ValidateSession),
		middleware.AuthAdmin(services.ValidateSession),
	)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s with %d workflows", port, len(graph.Workflows()))
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error", "silent":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
