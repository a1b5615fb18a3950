package handlers

import (
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// ListFunds returns funds, optionally filtered by ?query=
func (h *Handler) ListFunds(c *gin.Context) {
	funds, err := h.Store.ListFunds(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, funds)
}

func (h *Handler) GetFund(c *gin.Context) {
	fund, err := h.Store.GetFund(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fund)
}

func (h *Handler) GetFundStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": database.FundStatuses})
}

// CreateFund opens a fund for the calling volunteer. Naming a requirement
// takes it on; 409 if another volunteer already holds it.
func (h *Handler) CreateFund(c *gin.Context) {
	var body models.FundCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fund := &database.FundRecord{
		Name:          body.Name,
		Description:   body.Description,
		MonoJarURL:    body.MonoJarURL,
		LongJarID:     body.LongJarID,
		Status:        body.Status,
		Picture:       body.Picture,
		VolunteerID:   claimsFrom(c).UserID,
		RequirementID: body.RequirementID,
	}
	if err := h.Store.CreateFund(c.Request.Context(), fund, body.Items); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageWithID{Message: "Fund created", ID: fund.ID})
}

// UpdateFund edits a fund. Volunteers may only edit their own funds.
func (h *Handler) UpdateFund(c *gin.Context) {
	var body models.FundUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	fund, err := h.Store.GetFund(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	claims := claimsFrom(c)
	if claims.Role == database.RoleVolunteer && fund.VolunteerID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Fund belongs to another volunteer"})
		return
	}

	updated, err := h.Store.UpdateFund(ctx, id, database.FundPatch{
		Name:        body.Name,
		Description: body.Description,
		MonoJarURL:  body.MonoJarURL,
		LongJarID:   body.LongJarID,
		Picture:     body.Picture,
		Status:      body.Status,
	})
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AddReport records the closing report of a fund. Recipients may only report
// on funds raised for their own requirements.
func (h *Handler) AddReport(c *gin.Context) {
	var body models.ReportCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	fund, err := h.Store.GetFund(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if claims := claimsFrom(c); claims.Role == database.RoleRecipient {
		if fund.RequirementID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Fund is not raised for a requirement"})
			return
		}
		if _, ok := h.ownedRequirement(c, *fund.RequirementID); !ok {
			return
		}
	}

	report := &database.ReportRecord{
		FundID:          fund.ID,
		Rating:          body.Rating,
		FinalConclusion: body.FinalConclusion,
	}
	if err := h.Store.AddReport(ctx, report); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageWithID{Message: "Report added", ID: report.ID})
}
