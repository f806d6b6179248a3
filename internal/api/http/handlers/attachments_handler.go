package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defects-service/internal/api/dto"
	"github.com/spec-kit/defects-service/internal/auth"
	"github.com/spec-kit/defects-service/internal/service"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// AttachmentsHandler serves file uploads attached to defects.
type AttachmentsHandler struct {
	service *service.AttachmentService
}

func NewAttachmentsHandler(attachmentService *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{service: attachmentService}
}

// Upload POST /defects/:id/attachments. Expects multipart form with a "file" part.
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file part required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("could not read file", nil)
	}
	defer file.Close()

	attachment, err := h.service.Upload(c.Context(), c.Params("id"), actor, service.AttachmentUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromAttachment(*attachment)})
}

// List GET /defects/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	attachments, err := h.service.List(c.Context(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	out := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		out = append(out, dto.FromAttachment(attachment))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Download GET /defects/:id/attachments/:attachmentId.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	reader, attachment, err := h.service.Open(c.Context(), c.Params("id"), c.Params("attachmentId"), actor)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.FileName+`"`)
	return c.SendStream(reader)
}

// Delete DELETE /defects/:id/attachments/:attachmentId.
func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), c.Params("id"), c.Params("attachmentId"), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
