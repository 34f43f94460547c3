package routes

import (
	"github.com/labstack/echo/v4"

	"tern/internal/handlers"
)

// SetupCampaignRoutes registers the campaign endpoints under the given
// API group.
func SetupCampaignRoutes(g *echo.Group, h *handlers.CampaignHandler) {
	campaigns := g.Group("/campaigns")
	campaigns.POST("/validate", h.ValidateRecipients)
	campaigns.POST("/dispatch", h.Dispatch)
	campaigns.GET("/:id", h.GetCampaign)
	campaigns.GET("/:id/progress", h.GetProgress)
}
