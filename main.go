package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launchpad/command"
	"launchpad/config"
	"launchpad/directory"
	"launchpad/middleware"
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/realtime"
	"launchpad/routes"
	"launchpad/session"
	"launchpad/store"
	"launchpad/utils"
	"launchpad/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogger()
	cfg := config.AppConfig
	logger := logrus.WithField("service", "launchpad")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var base store.Store
	switch cfg.StoreDriver {
	case "postgres":
		if err := config.ConnectDB(); err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		base = store.NewGormStore(config.DB)
	default:
		mem := store.NewMemoryStore()
		base = mem
		logger.Warn("Using in-memory store; data is lost on restart")
		if cfg.Environment != "production" {
			for _, p := range seedDemo(mem) {
				token, err := utils.GenerateToken(p.ID, cfg.JWTSecret, 24*time.Hour)
				if err != nil {
					logger.WithError(err).Warn("Failed to issue demo token")
					continue
				}
				logger.WithFields(logrus.Fields{"name": p.Name, "role": p.Role, "token": token}).Info("Demo profile")
			}
		}
	}

	if cfg.Redis.Enabled {
		if err := config.ConnectRedis(ctx); err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer config.Redis.Close()
	}

	layerLogger := logger.WithField("component", "realtime")
	var transport realtime.PresenceTransport
	var heartbeat time.Duration
	if cfg.RealtimeDriver == "redis" {
		rt := realtime.NewRedisTransport(config.Redis, cfg.Redis.Prefix, layerLogger)
		heartbeat = rt.PresenceTTL() / 4
		transport = rt
	} else {
		hub := realtime.NewHub()
		defer hub.Close()
		transport = hub
	}

	feed := store.WithFeed(base, realtime.FeedPublisher{Transport: transport}, logger.WithField("component", "feed"))
	dir := directory.New(feed, cfg.DirectoryStaleness)

	var orc oracle.Client = oracle.Offline{}
	if cfg.Oracle.URL != "" {
		orc = oracle.NewHTTPClient(cfg.Oracle.URL, cfg.Oracle.APIKey, cfg.Oracle.Timeout)
	} else {
		logger.Info("No oracle endpoint configured; freeform questions get curated resources only")
	}

	dispatcher := command.NewDispatcher(command.Builtins(), feed, dir, orc, logger.WithField("component", "dispatcher"))

	app := fiber.New(fiber.Config{
		AppName:      "launchpad",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(utils.SuccessResponse(fiber.Map{
			"store":    cfg.StoreDriver,
			"realtime": cfg.RealtimeDriver,
		}))
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	layer := realtime.NewLayer(transport, layerLogger)
	layer.SetHeartbeat(heartbeat)

	var limiterStorage fiber.Storage
	if cfg.Redis.Enabled {
		limiterStorage = middleware.NewRedisStorage(config.Redis, cfg.Redis.Prefix+":ratelimit")
	}

	routes.SetupRoutes(app, routes.Deps{
		Store:      feed,
		Dispatcher: dispatcher,
		Session: session.Deps{
			Dispatcher: dispatcher,
			Layer:      layer,
			Directory:  dir,
			Logger:     logger.WithField("component", "session"),
			Channel:    cfg.PresenceChannel,
		},
		JWTSecret:        cfg.JWTSecret,
		CommandRateLimit: cfg.CommandRateLimit,
		LimiterStorage:   limiterStorage,
		Logger:           logger,
	})

	directoryWorker := worker.NewDirectoryWorker(dir, logger.WithField("component", "directory_worker"), cfg.DirectoryRefresh)
	go directoryWorker.Start(ctx)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

// seedDemo gives a memory-backed instance something to talk to.
func seedDemo(mem *store.MemoryStore) []models.Profile {
	rocket := mem.PutTeam(models.Team{Name: "Rocket", Stage: models.StageMVP, Description: "Scheduling for community clinics"})
	nebula := mem.PutTeam(models.Team{Name: "Nebula", Stage: models.StageValidation, Description: "Inventory forecasting for cafes"})

	var seeded []models.Profile
	for _, p := range []models.Profile{
		{Name: "Alice Park", Role: models.RoleBuilder, TeamID: &rocket.ID, Skills: "go,postgres", Bio: "Backend engineer"},
		{Name: "Bob Idowu", Role: models.RoleBuilder, TeamID: &nebula.ID, Skills: "react,design", Bio: "Product designer"},
		{Name: "Carol Mendes", Role: models.RoleMentor, Skills: "fundraising,sales", Bio: "Two exits in B2B SaaS"},
		{Name: "Dan Okafor", Role: models.RoleLead, Bio: "Program lead"},
		{Name: "Gina Ruiz", Role: models.RoleGuest, Bio: "Visiting investor"},
	} {
		seeded = append(seeded, mem.PutProfile(p))
	}
	return seeded
}
