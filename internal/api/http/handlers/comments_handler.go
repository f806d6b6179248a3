package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/api/dto"
	"github.com/spec-kit/defects-service/internal/auth"
	"github.com/spec-kit/defects-service/internal/service"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// CommentsHandler serves the discussion thread under a defect.
type CommentsHandler struct {
	service *service.CommentService
}

func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// Add POST /defects/:id/comments.
func (h *CommentsHandler) Add(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.Add(c.Context(), c.Params("id"), actor, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromComment(*comment)})
}

// List GET /defects/:id/comments.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var after *time.Time
	if afterStr := c.Query("after"); afterStr != "" {
		parsed, err := time.Parse(time.RFC3339, afterStr)
		if err != nil {
			return apperrors.NewValidationError("invalid after timestamp", nil)
		}
		after = &parsed
	}
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return apperrors.NewValidationError("invalid limit", nil)
		}
		limit = parsed
	}
	comments, err := h.service.List(c.Context(), c.Params("id"), actor, after, limit)
	if err != nil {
		return err
	}
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, dto.FromComment(comment))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Edit PUT /defects/:id/comments/:commentId.
func (h *CommentsHandler) Edit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.EditCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.Edit(c.Context(), c.Params("id"), c.Params("commentId"), actor, req.Text); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete DELETE /defects/:id/comments/:commentId.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), c.Params("id"), c.Params("commentId"), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
