package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tern/internal/config"
	"tern/internal/delivery"
	"tern/internal/models"
	"tern/internal/services"
	"tern/internal/utils"
)

// ValidateRecipientsRequest carries the raw recipient submission. The
// list may be newline or comma separated.
type ValidateRecipientsRequest struct {
	Recipients string `json:"recipients" validate:"required"`
}

// SettingsOverrides lets a dispatch request tune pacing and retry
// behavior per campaign. All delays are milliseconds; absent fields
// fall back to the server defaults.
type SettingsOverrides struct {
	BatchSize       *int  `json:"batchSize,omitempty" validate:"omitempty,min=1"`
	BatchDelayMs    *int  `json:"batchDelayMs,omitempty" validate:"omitempty,min=0"`
	ChunkSize       *int  `json:"chunkSize,omitempty" validate:"omitempty,min=1"`
	ChunkDelayMs    *int  `json:"chunkDelayMs,omitempty" validate:"omitempty,min=0"`
	MaxRetries      *int  `json:"maxRetries,omitempty" validate:"omitempty,min=1"`
	MaxBackoffMs    *int  `json:"maxBackoffDelayMs,omitempty" validate:"omitempty,min=0"`
	RetryChunkSizes []int `json:"retryChunkSizes,omitempty" validate:"omitempty,dive,min=1"`
}

// DispatchCampaignRequest is the dispatch endpoint payload. Content is
// the fully rendered newsletter body.
type DispatchCampaignRequest struct {
	Subject     string             `json:"subject" validate:"required"`
	Content     string             `json:"content" validate:"required"`
	Recipients  string             `json:"recipients" validate:"required"`
	ScheduledAt *time.Time         `json:"scheduledAt,omitempty"`
	Settings    *SettingsOverrides `json:"settings,omitempty"`
}

// ProgressResponse is the polled delivery progress shape.
type ProgressResponse struct {
	CampaignID      string `json:"campaignId"`
	CompletedChunks int    `json:"completedChunks"`
	TotalChunks     int    `json:"totalChunks"`
	SentCount       int    `json:"sentCount"`
	FailedCount     int    `json:"failedCount"`
	IsComplete      bool   `json:"isComplete"`
	Success         bool   `json:"success"`
}

// CampaignHandler exposes the campaign HTTP surface.
type CampaignHandler struct {
	service   *services.CampaignService
	campaigns *models.CampaignStore
	progress  *utils.RedisClient
	defaults  config.DeliveryConfig
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(service *services.CampaignService, campaigns *models.CampaignStore, progress *utils.RedisClient, defaults config.DeliveryConfig) *CampaignHandler {
	return &CampaignHandler{
		service:   service,
		campaigns: campaigns,
		progress:  progress,
		defaults:  defaults,
	}
}

// ValidateRecipients parses and classifies a recipient list without
// creating a campaign.
func (h *CampaignHandler) ValidateRecipients(c echo.Context) error {
	var req ValidateRecipientsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	summary, _, err := h.service.ValidateRecipients(c.Request().Context(), req.Recipients)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to validate recipients")
	}
	return c.JSON(http.StatusOK, summary)
}

// Dispatch accepts a campaign for delivery. A submission with no valid
// recipients is answered with the validation summary and no campaign.
func (h *CampaignHandler) Dispatch(c echo.Context) error {
	var req DispatchCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	dispatchReq := services.DispatchRequest{
		Subject:       req.Subject,
		Content:       req.Content,
		RawRecipients: req.Recipients,
		Settings:      h.mergeSettings(req.Settings),
	}
	if req.ScheduledAt != nil {
		dispatchReq.ScheduledAt = *req.ScheduledAt
	}

	result, err := h.service.Dispatch(c.Request().Context(), dispatchReq)
	if err != nil {
		if errors.Is(err, delivery.ErrInvalidChunkSize) || errors.Is(err, delivery.ErrInvalidSettings) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to dispatch campaign")
	}
	if !result.Accepted() {
		// Nothing deliverable; the summary tells the caller why.
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(http.StatusAccepted, result)
}

// GetProgress returns the latest delivery snapshot for a campaign.
func (h *CampaignHandler) GetProgress(c echo.Context) error {
	campaignID := c.Param("id")

	snap, err := h.progress.GetProgress(c.Request().Context(), campaignID)
	if err != nil {
		if errors.Is(err, utils.ErrProgressNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no progress recorded for campaign")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch progress")
	}

	return c.JSON(http.StatusOK, ProgressResponse{
		CampaignID:      snap.CampaignID,
		CompletedChunks: snap.CompletedChunks,
		TotalChunks:     snap.TotalChunks,
		SentCount:       snap.TotalSent,
		FailedCount:     snap.TotalFailed,
		IsComplete:      snap.IsComplete,
		Success:         snap.Success(),
	})
}

// GetCampaign returns the stored campaign record.
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	campaign, err := h.campaigns.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrCampaignNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "campaign not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch campaign")
	}
	return c.JSON(http.StatusOK, campaign)
}

// mergeSettings layers request overrides on top of the server defaults.
func (h *CampaignHandler) mergeSettings(overrides *SettingsOverrides) delivery.Settings {
	settings := delivery.Settings{
		BatchSize:       h.defaults.BatchSize,
		BatchDelay:      h.defaults.BatchDelay,
		ChunkSize:       h.defaults.ChunkSize,
		ChunkDelay:      h.defaults.ChunkDelay,
		MaxRetries:      h.defaults.MaxRetries,
		MaxBackoffDelay: h.defaults.MaxBackoffDelay,
		RetryChunkSizes: append([]int(nil), h.defaults.RetryChunkSizes...),
	}
	if overrides == nil {
		return settings
	}
	if overrides.BatchSize != nil {
		settings.BatchSize = *overrides.BatchSize
	}
	if overrides.BatchDelayMs != nil {
		settings.BatchDelay = time.Duration(*overrides.BatchDelayMs) * time.Millisecond
	}
	if overrides.ChunkSize != nil {
		settings.ChunkSize = *overrides.ChunkSize
	}
	if overrides.ChunkDelayMs != nil {
		settings.ChunkDelay = time.Duration(*overrides.ChunkDelayMs) * time.Millisecond
	}
	if overrides.MaxRetries != nil {
		settings.MaxRetries = *overrides.MaxRetries
	}
	if overrides.MaxBackoffMs != nil {
		settings.MaxBackoffDelay = time.Duration(*overrides.MaxBackoffMs) * time.Millisecond
	}
	if overrides.RetryChunkSizes != nil {
		settings.RetryChunkSizes = append([]int(nil), overrides.RetryChunkSizes...)
	}
	return settings
}
