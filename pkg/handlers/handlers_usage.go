package handlers

import (
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/gin-gonic/gin"
)

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get(ctxAPIKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	usage, err := h.Store.UsageHistory(c.Request.Context(), apiKey.ID, usageDays)
	if err != nil {
		h.storeError(c, err)
		return
	}

	var totalRequests, totalRequirements, totalVolunteers int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalRequirements += int64(u.TotalRequirements)
		totalVolunteers += int64(u.TotalVolunteers)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":     totalRequests,
			"requirements": totalRequirements,
			"volunteers":   totalVolunteers,
		},
	})
}
