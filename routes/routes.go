package routes

import (
	"launchpad/command"
	controller "launchpad/controllers"
	"launchpad/middleware"
	"launchpad/session"
	"launchpad/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Deps is everything the route table wires into controllers.
type Deps struct {
	Store            store.Store
	Dispatcher       *command.Dispatcher
	Session          session.Deps
	JWTSecret        string
	CommandRateLimit int
	LimiterStorage   fiber.Storage // nil keeps limiter counters in memory
	Logger           *logrus.Entry
}

func SetupRoutes(app *fiber.App, deps Deps) {
	protected := middleware.Protected(deps.Store, deps.JWTSecret)

	oracleController := controller.NewOracleController(deps.Dispatcher, deps.Logger.WithField("component", "oracle"))
	messageController := controller.NewMessageController(deps.Store, deps.Logger.WithField("component", "messages"))
	dashboardController := controller.NewDashboardController(deps.Store, deps.Logger.WithField("component", "dashboard"))
	sessionController := controller.NewSessionController(deps.Session, deps.Logger.WithField("component", "session"))

	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), protected)

	oracle := api.Group("/oracle")
	oracle.Post("/command", middleware.CommandRateLimiter(deps.CommandRateLimit, deps.LimiterStorage), oracleController.RunCommand)
	oracle.Get("/commands", oracleController.ListCommands)

	messages := api.Group("/messages")
	messages.Get("/", messageController.GetInbox)
	messages.Put("/:id/read", messageController.MarkRead)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/teams", dashboardController.GetTeamHealth)

	app.Get("/ws/oracle", protected, sessionController.Upgrade, websocket.New(sessionController.HandleSession))
}
