package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/api/http/handlers"
	"github.com/spec-kit/defects-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Projects       *handlers.ProjectsHandler
	Defects        *handlers.DefectsHandler
	Comments       *handlers.CommentsHandler
	Attachments    *handlers.AttachmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/change-password", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.ChangePassword)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	projects := api.Group("/projects")
	projects.Post("", cfg.Projects.Create)
	projects.Get("", cfg.Projects.List)
	projects.Get("/:id", cfg.Projects.Get)
	projects.Delete("/:id", cfg.Projects.Delete)
	projects.Get("/:id/members", cfg.Projects.ListMembers)
	projects.Post("/:id/members", cfg.Projects.AddMember)
	projects.Delete("/:id/members/:userId", cfg.Projects.RemoveMember)

	defects := api.Group("/defects")
	defects.Post("", cfg.Defects.Create)
	defects.Get("", cfg.Defects.List)
	defects.Get("/:id", cfg.Defects.Get)
	defects.Patch("/:id", cfg.Defects.Update)
	defects.Delete("/:id", cfg.Defects.Delete)
	defects.Put("/:id/assignee", cfg.Defects.Assign)
	defects.Put("/:id/status", cfg.Defects.ChangeStatus)
	defects.Put("/:id/priority", cfg.Defects.ChangePriority)
	defects.Put("/:id/due-date", cfg.Defects.ChangeDueDate)
	defects.Put("/:id/tags", cfg.Defects.PutTags)
	defects.Get("/:id/history", cfg.Defects.ListHistory)

	defects.Post("/:id/comments", cfg.Comments.Add)
	defects.Get("/:id/comments", cfg.Comments.List)
	defects.Put("/:id/comments/:commentId", cfg.Comments.Edit)
	defects.Delete("/:id/comments/:commentId", cfg.Comments.Delete)

	defects.Post("/:id/attachments", cfg.Attachments.Upload)
	defects.Get("/:id/attachments", cfg.Attachments.List)
	defects.Get("/:id/attachments/:attachmentId", cfg.Attachments.Download)
	defects.Delete("/:id/attachments/:attachmentId", cfg.Attachments.Delete)
}
