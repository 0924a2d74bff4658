package handler

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// ImageHandler handles image-related HTTP requests
type ImageHandler struct {
	imageService *service.ImageService
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageService *service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// UploadImageResponse represents the upload response
type UploadImageResponse struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DisplayURL   string `json:"displayUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// PresignResponse carries a temporary GET URL for a stored image
type PresignResponse struct {
	URL string `json:"url"`
}

// UploadImage handles POST /api/v1/images. Multipart form fields: file,
// kind (clients|receipts), entityId (loan or payment UUID).
func (h *ImageHandler) UploadImage(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.imageService == nil || !h.imageService.IsEnabled() {
		return NewServiceUnavailableError(c, "Image uploads are disabled (storage not configured)")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	kind := c.FormValue("kind")
	if kind != service.ImageKindClient && kind != service.ImageKindReceipt {
		return NewValidationError(c, "Invalid kind", []ValidationError{
			{Field: "kind", Message: "Must be one of: clients, receipts"},
		})
	}

	entityID, err := uuid.Parse(c.FormValue("entityId"))
	if err != nil {
		return NewValidationError(c, "Invalid entity ID", []ValidationError{
			{Field: "entityId", Message: "Must be a valid UUID"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	metadata, err := h.imageService.ProcessAndUpload(c.Request().Context(), workspaceID, kind, entityID, data, file.Filename)
	if err != nil {
		switch err {
		case service.ErrImageTooLarge:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File too large. Maximum size is 5MB"},
			})
		case service.ErrInvalidFormat:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid format. Supported: JPEG, PNG, WebP"},
			})
		case service.ErrImageTooSmall:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Image too small. Minimum 50x50 pixels"},
			})
		case service.ErrInvalidImageData:
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid image data"},
			})
		default:
			log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to upload image")
			return NewInternalError(c, "Failed to upload image")
		}
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Str("kind", kind).
		Str("entity_id", entityID.String()).
		Str("image_id", metadata.ID).
		Msg("Image uploaded")

	return c.JSON(http.StatusCreated, UploadImageResponse{
		ID:           metadata.ID,
		ThumbnailURL: metadata.ThumbnailURL,
		DisplayURL:   metadata.DisplayURL,
		OriginalURL:  metadata.OriginalURL,
	})
}

// PresignImage handles GET /api/v1/images/url?path=...
func (h *ImageHandler) PresignImage(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.imageService == nil || !h.imageService.IsEnabled() {
		return NewServiceUnavailableError(c, "Image storage not configured")
	}

	objectPath := c.QueryParam("path")
	if objectPath == "" {
		return NewValidationError(c, "Missing path", []ValidationError{
			{Field: "path", Message: "Object path is required"},
		})
	}

	url, err := h.imageService.PresignURL(c.Request().Context(), objectPath)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("path", objectPath).Msg("Failed to presign image URL")
		return NewInternalError(c, "Failed to generate image URL")
	}

	return c.JSON(http.StatusOK, PresignResponse{URL: url})
}

// DeleteImage handles DELETE /api/v1/images?path=...
func (h *ImageHandler) DeleteImage(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.imageService == nil || !h.imageService.IsEnabled() {
		return NewServiceUnavailableError(c, "Image storage not configured")
	}

	objectPath := c.QueryParam("path")
	if objectPath == "" {
		return NewValidationError(c, "Missing path", []ValidationError{
			{Field: "path", Message: "Object path is required"},
		})
	}

	if err := h.imageService.DeleteAllVariants(c.Request().Context(), objectPath); err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("path", objectPath).Msg("Failed to delete image")
		return NewInternalError(c, "Failed to delete image")
	}

	return c.NoContent(http.StatusNoContent)
}
