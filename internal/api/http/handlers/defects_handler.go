package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/api/dto"
	"github.com/spec-kit/defects-service/internal/auth"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/repository"
	"github.com/spec-kit/defects-service/internal/service"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// DefectsHandler exposes the defect lifecycle over HTTP.
type DefectsHandler struct {
	service *service.DefectService
}

// NewDefectsHandler constructs handler.
func NewDefectsHandler(defectService *service.DefectService) *DefectsHandler {
	return &DefectsHandler{service: defectService}
}

// Create POST /defects.
func (h *DefectsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateDefectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProjectID == "" || req.Title == "" {
		return apperrors.NewValidationError("project_id and title required", nil)
	}

	priority := domain.DefectPriority("")
	if req.Priority != "" {
		parsed, ok := domain.ParsePriority(req.Priority)
		if !ok {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": req.Priority})
		}
		priority = parsed
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return err
	}

	defect, err := h.service.Create(c.Context(), actor, service.DefectCreateInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		AssignedID:  req.AssignedID,
		DueDate:     dueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// List GET /defects.
func (h *DefectsHandler) List(c *fiber.Ctx) error {
	var (
		defects []domain.Defect
		err     error
	)
	if projectID := c.Query("project_id"); projectID != "" {
		defects, err = h.service.ListByProject(c.Context(), projectID)
	} else {
		defects, err = h.service.List(c.Context())
	}
	if err != nil {
		return err
	}
	out := make([]dto.DefectResponse, 0, len(defects))
	for i := range defects {
		out = append(out, dto.FromDefect(&defects[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /defects/:id.
func (h *DefectsHandler) Get(c *fiber.Ctx) error {
	defect, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// Update PATCH /defects/:id.
func (h *DefectsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateDefectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.DefectUpdateInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Priority != nil {
		priority, ok := domain.ParsePriority(*req.Priority)
		if !ok {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": *req.Priority})
		}
		input.Priority = &priority
	}
	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *req.Status})
		}
		input.Status = &status
	}
	if req.AssignedID != nil || req.ClearAssign {
		input.AssignedIDSet = true
		input.AssignedID = req.AssignedID
	}
	if req.DueDate != nil || req.ClearDue {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			return err
		}
		input.DueDateSet = true
		input.DueDate = dueDate
	}

	defect, err := h.service.Update(c.Context(), c.Params("id"), actor, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// Assign PUT /defects/:id/assignee.
func (h *DefectsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignDefectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	defect, err := h.service.Assign(c.Context(), c.Params("id"), actor, req.AssignedID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// ChangeStatus PUT /defects/:id/status.
func (h *DefectsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, valid := domain.ParseStatus(req.Status)
	if !valid {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": req.Status})
	}
	defect, err := h.service.ChangeStatus(c.Context(), c.Params("id"), actor, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// ChangePriority PUT /defects/:id/priority.
func (h *DefectsHandler) ChangePriority(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority, valid := domain.ParsePriority(req.Priority)
	if !valid {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": req.Priority})
	}
	defect, err := h.service.ChangePriority(c.Context(), c.Params("id"), actor, priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// ChangeDueDate PUT /defects/:id/due-date.
func (h *DefectsHandler) ChangeDueDate(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeDueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return err
	}
	defect, err := h.service.ChangeDueDate(c.Context(), c.Params("id"), actor, dueDate)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// PutTags PUT /defects/:id/tags.
func (h *DefectsHandler) PutTags(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PutTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	defect, err := h.service.PutTags(c.Context(), c.Params("id"), actor, req.Tags)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDefect(defect)})
}

// Delete DELETE /defects/:id.
func (h *DefectsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), c.Params("id"), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListHistory GET /defects/:id/history.
func (h *DefectsHandler) ListHistory(c *fiber.Ctx) error {
	query := repository.HistoryQuery{
		Order: domain.HistoryOrderDesc,
	}
	if c.Query("order") == "asc" {
		query.Order = domain.HistoryOrderAsc
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return apperrors.NewValidationError("invalid limit", nil)
		}
		query.Limit = limit
	}
	if afterStr := c.Query("after"); afterStr != "" {
		after, err := time.Parse(time.RFC3339, afterStr)
		if err != nil {
			return apperrors.NewValidationError("invalid after timestamp", nil)
		}
		query.After = &after
	}

	entries, err := h.service.ListHistory(c.Context(), c.Params("id"), query)
	if err != nil {
		return err
	}
	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.FromHistory(entry))
	}
	return c.JSON(fiber.Map{"data": out})
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", map[string]any{"value": *value})
	}
	return &parsed, nil
}
