package handlers

import (
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
)

// ValidateInput checks an assignment request without running the optimizer
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Volunteers) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one volunteer is required"})
		return
	}
	capacity, err := h.capacity(input.MaxCapacity)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "max_capacity must be positive"})
		return
	}

	volIDs := make(map[string]bool)
	for _, v := range input.Volunteers {
		if v.ID == "" {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Volunteer ID is required"})
			return
		}
		if volIDs[v.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate volunteer ID: " + v.ID})
			return
		}
		volIDs[v.ID] = true
	}

	reqIDs := make(map[string]bool)
	for _, r := range input.Requirements {
		if r.ID == "" {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Requirement ID is required"})
			return
		}
		if reqIDs[r.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate requirement ID: " + r.ID})
			return
		}
		reqIDs[r.ID] = true
	}

	opts := h.Options
	opts.MaxCapacity = capacity
	if err := optimizer.Validate(input.Requirements, input.Volunteers, opts); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"volunteer_count":   len(input.Volunteers),
			"requirement_count": len(input.Requirements),
			"total_capacity":    len(input.Volunteers) * capacity,
		},
	})
}
