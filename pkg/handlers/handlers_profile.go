package handlers

import (
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/auth"
	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// ProfileLogin authenticates a volunteer or recipient
func (h *Handler) ProfileLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Email(), user.ID(), user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
		User:        *user,
	})
}

// GetProfile returns the account behind the bearer token. The lookup goes by
// ID so a token stays valid after the account changes its email.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	claims := claimsFrom(c)

	user := database.User{Role: claims.Role}
	var err error
	if claims.Role == database.RoleVolunteer {
		user.Volunteer, err = h.Store.GetVolunteer(ctx, claims.UserID)
	} else {
		user.Recipient, err = h.Store.GetRecipient(ctx, claims.UserID)
	}
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterVolunteer creates a volunteer account
func (h *Handler) RegisterVolunteer(c *gin.Context) {
	var req models.VolunteerCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.emailFree(c, req.Email) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}
	vol := &database.VolunteerRecord{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Surname:      req.Surname,
		Phone:        req.Phone,
		Available:    true,
		Rating:       req.Rating,
	}
	if err := h.Store.CreateVolunteer(c.Request.Context(), vol); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageWithID{Message: "Volunteer created", ID: vol.ID})
}

// RegisterRecipient creates a recipient account
func (h *Handler) RegisterRecipient(c *gin.Context) {
	var req models.RecipientCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.emailFree(c, req.Email) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}
	rec := &database.RecipientRecord{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.Store.CreateRecipient(c.Request.Context(), rec); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.MessageWithID{Message: "Recipient created", ID: rec.ID})
}

// emailFree reports whether no account uses email, writing a 409 otherwise
func (h *Handler) emailFree(c *gin.Context, email string) bool {
	if _, err := h.Store.GetUserByEmail(c.Request.Context(), email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return false
	}
	return true
}

// GetVolunteer returns a volunteer's public profile
func (h *Handler) GetVolunteer(c *gin.Context) {
	vol, err := h.Store.GetVolunteer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vol)
}

// UpdateVolunteer edits the calling volunteer's profile
func (h *Handler) UpdateVolunteer(c *gin.Context) {
	var req models.VolunteerUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	vol, err := h.Store.GetVolunteer(ctx, claimsFrom(c).UserID)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if req.Email != "" && req.Email != vol.Email {
		if !h.emailFree(c, req.Email) {
			return
		}
		vol.Email = req.Email
	}
	setIfNotEmpty(&vol.Phone, req.Phone)
	setIfNotEmpty(&vol.Name, req.Name)
	setIfNotEmpty(&vol.Surname, req.Surname)
	setIfNotEmpty(&vol.Age, req.Age)
	setIfNotEmpty(&vol.Bio, req.Bio)
	setIfNotEmpty(&vol.ProfilePic, req.ProfilePic)
	if req.Available != nil {
		vol.Available = *req.Available
	}

	if err := h.Store.UpdateVolunteer(ctx, vol); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vol)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// VolunteerDashboard lists the caller's funds and the requirements assigned to them
func (h *Handler) VolunteerDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	id := claimsFrom(c).UserID

	funds, err := h.Store.FundsByVolunteer(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	reqs, err := h.Store.RequirementsByVolunteer(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, database.Dashboard{Funds: funds, Requirements: reqs})
}

// RecipientDashboard lists the caller's requirements and the funds raised for them
func (h *Handler) RecipientDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	id := claimsFrom(c).UserID

	funds, err := h.Store.FundsByRecipient(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	reqs, err := h.Store.RequirementsByRecipient(ctx, id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, database.Dashboard{Funds: funds, Requirements: reqs})
}

func (h *Handler) VolunteerFunds(c *gin.Context) {
	funds, err := h.Store.FundsByVolunteer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, funds)
}

func (h *Handler) RecipientFunds(c *gin.Context) {
	funds, err := h.Store.FundsByRecipient(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, funds)
}

func (h *Handler) RecipientRequirements(c *gin.Context) {
	reqs, err := h.Store.RequirementsByRecipient(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}
