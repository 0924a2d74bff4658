package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// SyncHandler handles replica reconciliation HTTP requests
type SyncHandler struct {
	syncService *service.SyncService
}

// NewSyncHandler creates a new SyncHandler. syncService may be nil when no
// replica is configured.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// TriggerSync handles POST /api/v1/sync. It runs one reconciliation pass
// for the caller's workspace and reports what moved.
func (h *SyncHandler) TriggerSync(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.syncService == nil {
		return NewConflictError(c, "No replica configured")
	}

	report, err := h.syncService.SyncWorkspace(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Manual sync failed")
		return NewInternalError(c, "Sync failed; local data is unaffected")
	}

	return c.JSON(http.StatusOK, report)
}

// SyncStatusResponse reports whether a replica is configured and what the
// last completed pass moved
type SyncStatusResponse struct {
	ReplicaConfigured bool               `json:"replicaConfigured"`
	LastSync          *domain.SyncReport `json:"lastSync,omitempty"`
}

// GetSyncStatus handles GET /api/v1/sync/status
func (h *SyncHandler) GetSyncStatus(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	status := SyncStatusResponse{ReplicaConfigured: h.syncService != nil}
	if h.syncService != nil {
		status.LastSync = h.syncService.LastReport()
	}
	return c.JSON(http.StatusOK, status)
}
