package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/api/dto"
	"github.com/spec-kit/defects-service/internal/auth"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/service"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// ProjectsHandler manages projects and their memberships.
type ProjectsHandler struct {
	service *service.ProjectService
}

func NewProjectsHandler(projectService *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{service: projectService}
}

// Create POST /projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	project, err := h.service.Create(c.Context(), actor, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromProject(project)})
}

// Get GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	project, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromProject(project)})
}

// List GET /projects.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	projects, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	out := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, dto.FromProject(&projects[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Delete DELETE /projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddMember POST /projects/:id/members.
func (h *ProjectsHandler) AddMember(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, valid := domain.ParseRole(req.Role)
	if !valid {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": req.Role})
	}
	member, err := h.service.AddMember(c.Context(), actor, c.Params("id"), req.UserID, role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromMember(*member)})
}

// RemoveMember DELETE /projects/:id/members/:userId.
func (h *ProjectsHandler) RemoveMember(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.RemoveMember(c.Context(), actor, c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMembers GET /projects/:id/members.
func (h *ProjectsHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.service.ListMembers(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, dto.FromMember(members[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
