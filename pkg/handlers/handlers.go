package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/aid-coordination-api/pkg/auth"
	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the middlewares
const (
	ctxAPIKey = "apiKey"
	ctxClaims = "claims"
)

const (
	defaultRateLimit = 10000
	usageDays        = 30
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Store   database.Store
	Auth    *auth.Authenticator
	Logger  *zap.Logger
	Options optimizer.Options
}

// Register mounts every route on r
func (h *Handler) Register(r *gin.Engine, version string) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Aid Coordination API",
			"version": version,
		})
	})

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware(database.RoleAdmin))
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
		admin.POST("/assign/run", h.RunAssignment)
	}

	api := r.Group("/api")
	{
		volunteer := h.AuthMiddleware(database.RoleVolunteer)
		recipient := h.AuthMiddleware(database.RoleRecipient)
		owner := h.AuthMiddleware(database.RoleRecipient, database.RoleAdmin)

		api.POST("/profile/login", h.ProfileLogin)
		api.GET("/profile", h.AuthMiddleware(database.RoleVolunteer, database.RoleRecipient), h.GetProfile)

		api.POST("/volunteers", h.RegisterVolunteer)
		api.PATCH("/volunteers", volunteer, h.UpdateVolunteer)
		api.GET("/volunteers/dashboard", volunteer, h.VolunteerDashboard)
		api.GET("/volunteers/:id", h.GetVolunteer)
		api.GET("/volunteers/:id/funds", h.VolunteerFunds)

		api.POST("/recipients", h.RegisterRecipient)
		api.GET("/recipients/dashboard", recipient, h.RecipientDashboard)
		api.GET("/recipients/:id/requirements", h.RecipientRequirements)
		api.GET("/recipients/:id/funds", h.RecipientFunds)

		api.GET("/requirements", h.ListRequirements)
		api.GET("/requirements/categories", h.GetCategories)
		api.GET("/requirements/priorities", h.GetPriorities)
		api.GET("/requirements/:id", h.GetRequirement)
		api.POST("/requirements", recipient, h.CreateRequirement)
		api.PATCH("/requirements/:id", owner, h.UpdateRequirement)
		api.POST("/requirements/:id/items", owner, h.AddItems)
		api.DELETE("/requirements/:id", owner, h.DeleteRequirement)

		api.GET("/funds", h.ListFunds)
		api.GET("/funds/statuses", h.GetFundStatuses)
		api.GET("/funds/:id", h.GetFund)
		api.POST("/funds", volunteer, h.CreateFund)
		api.PUT("/funds/:id", h.AuthMiddleware(database.RoleVolunteer, database.RoleAdmin), h.UpdateFund)
		api.POST("/funds/:id/report", owner, h.AddReport)
	}

	keyed := r.Group("/api")
	keyed.Use(h.APIKeyMiddleware())
	{
		keyed.POST("/assign", h.Assign)
		keyed.POST("/assign/validate", h.ValidateInput)
		keyed.GET("/usage", h.GetMyUsage)
	}
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the JWT token and requires one of roles
func (h *Handler) AuthMiddleware(roles ...database.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		allowed := false
		for _, r := range roles {
			if claims.Role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}

		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	return v.(*auth.Claims)
}

// APIKeyMiddleware verifies the HMAC API key and enforces its daily rate limit
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		name, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		ctx := c.Request.Context()
		apiKey := &database.APIKey{
			Key:        key,
			Name:       name,
			KeyPreview: preview(key),
			RateLimit:  defaultRateLimit,
		}
		if err := h.Store.RegisterAPIKey(ctx, apiKey); err != nil {
			h.Logger.Error("api key lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not verify API key"})
			return
		}

		used, err := h.Store.RequestsOn(ctx, apiKey.ID, today())
		if err != nil {
			h.Logger.Error("api usage lookup failed", zap.Uint("key_id", apiKey.ID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not verify API key"})
			return
		}
		if apiKey.RateLimit > 0 && used >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily rate limit exceeded"})
			return
		}

		if err := h.Store.TouchAPIKey(ctx, apiKey); err != nil {
			h.Logger.Warn("failed to update last_used", zap.Uint("key_id", apiKey.ID), zap.Error(err))
		}

		c.Set(ctxAPIKey, apiKey)
		c.Next()
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}

// RecordUsage adds one request to the calling key's usage for today
func (h *Handler) RecordUsage(c *gin.Context, requirementCount, volunteerCount int) {
	apiKeyRaw, exists := c.Get(ctxAPIKey)
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	err := h.Store.RecordUsage(c.Request.Context(), database.APIUsage{
		KeyID:             apiKey.ID,
		Date:              today(),
		RequestCount:      1,
		TotalRequirements: requirementCount,
		TotalVolunteers:   volunteerCount,
	})
	if err != nil {
		h.Logger.Warn("failed to record usage", zap.Uint("key_id", apiKey.ID), zap.Error(err))
	}
}

// storeError writes the response for an error returned by the Store
func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("store failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Store.GetMasterUser(c.Request.Context(), req.Username)
	if err != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username, "", database.RoleAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RateLimit == 0 {
		req.RateLimit = defaultRateLimit
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview(key),
		RateLimit:  req.RateLimit,
	}
	if err := h.Store.CreateAPIKey(c.Request.Context(), &apiKey); err != nil {
		h.Logger.Warn("could not create key record", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Store.ListAPIKeys(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	if err := h.Store.DeleteAPIKey(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}
	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.Store.UpdateAPIKeyLimit(c.Request.Context(), c.Param("id"), req.RateLimit); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Message{Message: "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}
	usage, err := h.Store.UsageHistory(c.Request.Context(), uint(id), usageDays)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
