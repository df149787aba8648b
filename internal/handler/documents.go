package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/middleware"
	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/pkg/response"
)

type DocumentsHandler struct {
	service       *service.DocumentService
	validator     *validator.Validate
	maxUploadSize int64
}

func NewDocumentsHandler(svc *service.DocumentService, v *validator.Validate, maxSizeMB int) *DocumentsHandler {
	return &DocumentsHandler{
		service:       svc,
		validator:     v,
		maxUploadSize: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Upload handles POST /api/documents/upload (uploader only)
func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	issuerAgency := c.FormValue("issuer_agency")
	if issuerAgency == "" {
		return response.ValidationError(c, "issuer_agency is required", nil)
	}
	documentType := c.FormValue("document_type")
	if documentType == "" {
		return response.ValidationError(c, "document_type is required", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}
	if file.Size > h.maxUploadSize {
		return response.ValidationError(c, "File too large", map[string]interface{}{
			"maxSize":  h.maxUploadSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	user := middleware.GetUser(c)
	result, err := h.service.Upload(c.Context(), user.ID, file.Filename, issuerAgency, documentType, f)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFileType) {
			return response.ValidationError(c, "Unsupported file type. Supported: PDF, DOCX, DOC", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Pending handles GET /api/documents/pending (reviewer only)
func (h *DocumentsHandler) Pending(c *fiber.Ctx) error {
	docs, err := h.service.Pending(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, docs)
}

// Preview handles GET /api/documents/:id/preview (reviewer only)
func (h *DocumentsHandler) Preview(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid document id", nil)
	}

	doc, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return response.NotFound(c, "Document not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return c.Download(doc.StoredPath, doc.Filename)
}

// Approve handles PUT /api/documents/:id/approve (reviewer only)
func (h *DocumentsHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, true)
}

// Reject handles PUT /api/documents/:id/reject (reviewer only)
func (h *DocumentsHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, false)
}

func (h *DocumentsHandler) review(c *fiber.Ctx, approve bool) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.ValidationError(c, "Invalid document id", nil)
	}

	user := middleware.GetUser(c)
	doc, err := h.service.Review(c.Context(), id, user.ID, approve)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			return response.NotFound(c, "Document not found or not reviewable")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, doc)
}
