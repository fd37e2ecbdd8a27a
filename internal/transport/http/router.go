package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/config"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/transport/http/handlers"
	httpmw "github.com/taskextreme/backend/internal/transport/http/middleware"
)

type RouterConfig struct {
	Tasks        ports.TaskService
	Templates    ports.TemplateService
	Preferences  ports.PreferenceService
	Connectivity ports.ConnectivityService
	Hub          *handlers.NotificationHub
	Logger       *logger.Logger
	Config       *config.Config
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	taskHandler := handlers.NewTaskHandler(cfg.Tasks, cfg.Logger)
	syncHandler := handlers.NewSyncHandler(cfg.Tasks, cfg.Connectivity, cfg.Logger)
	templateHandler := handlers.NewTemplateHandler(cfg.Templates, cfg.Logger)
	preferenceHandler := handlers.NewPreferenceHandler(cfg.Preferences, cfg.Logger)

	api := app.Group("/api/v1")

	// Get also answers HEAD, which the connectivity probe uses.
	api.Get("/health", syncHandler.Health)

	auth := httpmw.APIKey(cfg.Config)

	tasks := api.Group("/tasks", auth)
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Delete("/", taskHandler.ClearTasks)
	tasks.Put("/:id", taskHandler.UpdateTask)
	tasks.Delete("/:id", taskHandler.DeleteTask)

	syncGroup := api.Group("/sync", auth)
	syncGroup.Get("/pending", syncHandler.Pending)
	syncGroup.Post("/drain", syncHandler.Drain)

	conn := api.Group("/connectivity", auth)
	conn.Get("/", syncHandler.Connectivity)
	conn.Post("/events", syncHandler.ConnectivityEvent)

	// Static segments are registered before /:id.
	templates := api.Group("/templates", auth)
	templates.Get("/", templateHandler.List)
	templates.Get("/groups", templateHandler.Groups)
	templates.Get("/export", templateHandler.Export)
	templates.Post("/import", templateHandler.Import)
	templates.Post("/", templateHandler.Create)
	templates.Get("/:id", templateHandler.Get)
	templates.Put("/:id", templateHandler.Update)
	templates.Delete("/:id", templateHandler.Delete)
	templates.Post("/:id/duplicate", templateHandler.Duplicate)
	templates.Post("/:id/apply", templateHandler.Apply)

	prefs := api.Group("/preferences", auth)
	prefs.Get("/theme", preferenceHandler.GetTheme)
	prefs.Put("/theme", preferenceHandler.SetTheme)
	prefs.Get("/view", preferenceHandler.GetView)
	prefs.Put("/view", preferenceHandler.SetView)
	prefs.Get("/checked", preferenceHandler.GetChecked)
	prefs.Put("/checked", preferenceHandler.SetChecked)

	if cfg.Hub != nil {
		ws := api.Group("/ws", auth, func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		ws.Get("/notifications", websocket.New(cfg.Hub.Handle))
	}
}
