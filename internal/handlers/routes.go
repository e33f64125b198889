package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/assemblydb/internal/services"
)

// Handlers groups the route handlers of the API
type Handlers struct {
	Documents *DocumentHandler
	Polls     *PollHandler
	Workflows *WorkflowHandler
	Settings  *SettingsHandler
}

// New builds the handlers around one engine
func New(lifecycle *services.Lifecycle, polls *services.PollEngine, settings *services.Settings) *Handlers {
	return &Handlers{
		Documents: &DocumentHandler{Lifecycle: lifecycle},
		Polls:     &PollHandler{Lifecycle: lifecycle, Polls: polls},
		Workflows: &WorkflowHandler{Graph: lifecycle.Graph()},
		Settings:  &SettingsHandler{Settings: settings, Lifecycle: lifecycle},
	}
}

// Register mounts the API on router. user guards every route; admin
// additionally guards the assembly-wide settings.
func (h *Handlers) Register(router fiber.Router, user, admin fiber.Handler) {
	router.Get("/workflows", user, h.Workflows.ListWorkflows)
	router.Get("/workflows/:id", user, h.Workflows.GetWorkflow)

	docs := router.Group("/documents", user)
	docs.Get("/", h.Documents.ListDocuments)
	docs.Post("/", h.Documents.CreateDocument)
	docs.Get("/:id", h.Documents.GetDocument)
	docs.Delete("/:id", h.Documents.DeleteDocument)
	docs.Get("/:id/actions", h.Documents.AllowedActions)
	docs.Get("/:id/quorum", h.Documents.Quorum)
	docs.Get("/:id/audit", h.Documents.AuditLog)

	docs.Post("/:id/versions", h.Documents.CreateVersion)
	docs.Post("/:id/versions/:number/permit", h.Documents.PermitVersion)
	docs.Post("/:id/versions/:number/reject", h.Documents.RejectVersion)

	docs.Post("/:id/state", h.Documents.SetState)
	docs.Post("/:id/reset", h.Documents.Reset)
	docs.Post("/:id/identifier", h.Documents.AssignIdentifier)
	docs.Post("/:id/recommendation", h.Documents.SetRecommendation)
	docs.Post("/:id/recommendation/follow", h.Documents.FollowRecommendation)
	docs.Post("/:id/support", h.Documents.Support)
	docs.Delete("/:id/support", h.Documents.Unsupport)

	docs.Post("/:id/candidates", h.Documents.AddCandidate)
	docs.Delete("/:id/candidates/:person", h.Documents.RemoveCandidate)
	docs.Post("/:id/candidates/:person/elected", h.Documents.SetElected)

	docs.Get("/:id/polls", h.Polls.ListPolls)
	docs.Post("/:id/polls", h.Polls.CreatePoll)

	polls := router.Group("/polls", user)
	polls.Get("/:id", h.Polls.GetPoll)
	polls.Delete("/:id", h.Polls.DeletePoll)
	polls.Post("/:id/votes", h.Polls.RecordVotes)
	polls.Get("/:id/tally", h.Polls.Tally)
	polls.Post("/:id/publish", h.Polls.SetPublished)

	router.Get("/settings", user, h.Settings.GetSettings)
	router.Post("/settings", admin, h.Settings.UpdateSetting)
	router.Get("/categories", user, h.Settings.ListCategories)
	router.Post("/categories", admin, h.Settings.CreateCategory)
}
