package handlers

import (
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
)

// ListRequirements returns requirements, optionally filtered by ?query=
func (h *Handler) ListRequirements(c *gin.Context) {
	reqs, err := h.Store.ListRequirements(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) GetRequirement(c *gin.Context) {
	req, err := h.Store.GetRequirement(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// CreateRequirement stores a requirement owned by the calling recipient
func (h *Handler) CreateRequirement(c *gin.Context) {
	var body models.RequirementCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, ok := itemRecords(c, body.Items)
	if !ok {
		return
	}

	req := &database.RequirementRecord{
		Name:        body.Name,
		Description: body.Description,
		Priority:    body.Priority,
		Deadline:    body.Deadline,
		RecipientID: claimsFrom(c).UserID,
		Items:       items,
	}
	if err := h.Store.CreateRequirement(c.Request.Context(), req); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageWithID{Message: "Requirement created", ID: req.ID})
}

// ownedRequirement loads the requirement and checks that a recipient caller
// owns it. Admins may act on any requirement.
func (h *Handler) ownedRequirement(c *gin.Context, id string) (*database.RequirementRecord, bool) {
	req, err := h.Store.GetRequirement(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return nil, false
	}
	claims := claimsFrom(c)
	if claims.Role == database.RoleRecipient && req.RecipientID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Requirement belongs to another recipient"})
		return nil, false
	}
	return req, true
}

// UpdateRequirement changes the name, description, priority or deadline
func (h *Handler) UpdateRequirement(c *gin.Context) {
	var body models.RequirementUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, ok := h.ownedRequirement(c, c.Param("id"))
	if !ok {
		return
	}

	if body.Name != "" {
		req.Name = body.Name
	}
	if body.Description != "" {
		req.Description = body.Description
	}
	if body.Priority != "" {
		req.Priority = body.Priority
	}
	if body.Deadline != nil {
		req.Deadline = body.Deadline
	}
	if err := h.Store.UpdateRequirement(c.Request.Context(), req); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Requirement updated"})
}

// AddItems appends items to a requirement
func (h *Handler) AddItems(c *gin.Context) {
	var body []models.ItemCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, ok := itemRecords(c, body)
	if !ok {
		return
	}
	req, ok := h.ownedRequirement(c, c.Param("id"))
	if !ok {
		return
	}

	if err := h.Store.AddItems(c.Request.Context(), req.ID, items); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.Message{Message: "Items created"})
}

// DeleteRequirement removes a requirement. Recipients may only delete their own.
func (h *Handler) DeleteRequirement(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.ownedRequirement(c, id); !ok {
		return
	}

	if err := h.Store.DeleteRequirement(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Requirement with ID " + id + " deleted"})
}

func (h *Handler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": database.Categories})
}

func (h *Handler) GetPriorities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"priorities": []optimizer.Priority{
		optimizer.PriorityDefault, optimizer.PriorityHigh, optimizer.PriorityNone,
	}})
}

// itemRecords converts request items, writing a 400 on an unknown category
func itemRecords(c *gin.Context, in []models.ItemCreate) ([]database.ItemRecord, bool) {
	items := make([]database.ItemRecord, len(in))
	for i, it := range in {
		if !validCategory(it.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category: " + it.Category})
			return nil, false
		}
		items[i] = database.ItemRecord{Name: it.Name, Count: it.Count, Category: it.Category}
	}
	return items, true
}

func validCategory(category string) bool {
	for _, c := range database.Categories {
		if c == category {
			return true
		}
	}
	return false
}
