package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/tw-smith/authserver/pkg/asyncx"
	"github.com/tw-smith/authserver/pkg/config"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/logx"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logx.Fatalf("invalid configuration: %v", err)
	}

	logx.Info("starting auth server...")

	container, err := NewContainer(cfg)
	if err != nil {
		logx.Fatalf("failed to build container: %v", err)
	}
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "tw-smith Auth Server",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.CORSOrigins, ", "),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
		ExposeHeaders:    "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	app.Get("/health", healthCheckHandler(container))

	container.Handlers.RegisterRoutes(app, container.Middleware)
	logx.Info("auth routes registered")

	app.Use(notFoundHandler)

	// Background email workers stop with the server.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartBackgroundServices(ctx)

	startServer(app, cfg.Server)
}

// healthCheckHandler reports the state of the server's dependencies.
// Both stores are pinged concurrently so a slow one does not serialize
// the check.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "authserver",
		}

		dbCheck := asyncx.Run(func() (string, error) {
			if err := container.DB.Ping(); err != nil {
				return "unhealthy", err
			}
			return "healthy", nil
		})
		redisCheck := asyncx.Run(func() (string, error) {
			if err := container.Redis.Ping(context.Background()).Err(); err != nil {
				return "unhealthy", err
			}
			return "healthy", nil
		})

		dbStatus, dbErr := dbCheck.Await()
		health["db"] = dbStatus
		if dbErr != nil {
			health["status"] = "degraded"
		}

		redisStatus, redisErr := redisCheck.Await()
		health["redis"] = redisStatus
		if redisErr != nil {
			health["status"] = "degraded"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":  "Route not found",
		"code":   "NOT_FOUND",
		"path":   c.Path(),
		"method": c.Method(),
	})
}

// globalErrorHandler converts internal errors to standard HTTP responses.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= fiber.StatusInternalServerError {
			logx.WithFields(logx.Fields{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Get("X-Request-ID"),
			}).Errorf("request error: %v", err)
		}

		return c.Status(appErr.HTTPStatus).JSON(appErr.ToHTTPResponse())
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":  fiberErr.Message,
			"code":   "FIBER_ERROR",
			"status": fiberErr.Code,
		})
	}

	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.Get("X-Request-ID"),
	}).Errorf("unhandled error: %v", err)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":  "Internal Server Error",
		"code":   "INTERNAL_ERROR",
		"status": fiber.StatusInternalServerError,
	})
}

// startServer starts the server and blocks until a shutdown signal.
func startServer(app *fiber.App, cfg config.ServerConfig) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	go func() {
		logx.Infof("server listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("received signal %v, shutting down...", sig)

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("server forced to shutdown: %v", err)
	}

	logx.Info("server exited")
}
