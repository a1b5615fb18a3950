package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// capacity resolves the per-volunteer cap of a request. Only an absent value
// falls back to the server default.
func (h *Handler) capacity(requested *int) (int, error) {
	if requested == nil {
		return h.Options.MaxCapacity, nil
	}
	if *requested <= 0 {
		return 0, fmt.Errorf("%w: max_capacity %d", optimizer.ErrInvalidCapacity, *requested)
	}
	return *requested, nil
}

// optimize runs the optimizer and writes an error response on failure
func (h *Handler) optimize(c *gin.Context, reqs []optimizer.Requirement, vols []optimizer.Volunteer, capacity int) (models.AssignResponse, bool) {
	opts := h.Options
	opts.MaxCapacity = capacity

	a, err := optimizer.Optimize(reqs, vols, opts)
	switch {
	case errors.Is(err, optimizer.ErrProblemTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return models.AssignResponse{}, false
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.AssignResponse{}, false
	}

	unassigned := optimizer.Unassigned(reqs, a)
	if unassigned == nil {
		unassigned = []string{}
	}
	return models.AssignResponse{
		Assignment: a,
		Unassigned: unassigned,
		Stats:      optimizer.Summarize(reqs, a),
	}, true
}

// Assign runs the optimizer over caller supplied volunteers and requirements.
// Nothing is persisted.
func (h *Handler) Assign(c *gin.Context) {
	var input models.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capacity, err := h.capacity(input.MaxCapacity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, ok := h.optimize(c, input.Requirements, input.Volunteers, capacity)
	if !ok {
		return
	}

	h.RecordUsage(c, len(input.Requirements), len(input.Volunteers))
	h.Logger.Debug("assignment computed",
		zap.Int("requirements", resp.Stats.Requested),
		zap.Int("assigned", resp.Stats.Assigned),
		zap.Int("volunteers", resp.Stats.Volunteers))

	c.JSON(http.StatusOK, resp)
}

// RunAssignment assigns every open requirement to available volunteers and
// persists the result.
func (h *Handler) RunAssignment(c *gin.Context) {
	var req models.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	capacity, err := h.capacity(req.MaxCapacity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	open, err := h.Store.OpenRequirements(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	vols, err := h.Store.ListVolunteers(ctx, true)
	if err != nil {
		h.storeError(c, err)
		return
	}
	assignees, err := h.Store.ActiveAssignees(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	volIDs := make([]string, len(vols))
	for i, v := range vols {
		volIDs[i] = v.ID
	}
	loads := optimizer.LoadsFromAssignments(volIDs, assignees)

	reqs := make([]optimizer.Requirement, len(open))
	for i, r := range open {
		reqs[i] = optimizer.Requirement{ID: r.ID, Priority: r.Priority}
	}
	candidates := make([]optimizer.Volunteer, len(vols))
	for i, v := range vols {
		candidates[i] = optimizer.Volunteer{ID: v.ID, Rating: v.Rating, CurrentLoad: loads[v.ID]}
	}

	resp, ok := h.optimize(c, reqs, candidates, capacity)
	if !ok {
		return
	}

	run := &database.AssignmentRun{
		Capacity:   capacity,
		Requested:  resp.Stats.Requested,
		Volunteers: resp.Stats.Volunteers,
		Fairness:   resp.Stats.FairnessScore,
	}
	if claims := claimsFrom(c); claims != nil {
		run.TriggeredBy = claims.Subject
	}

	if !req.DryRun {
		if err := h.Store.ApplyAssignment(ctx, run, resp.Assignment); err != nil {
			h.storeError(c, err)
			return
		}
	}

	h.Logger.Info("assignment run",
		zap.String("run_id", run.ID),
		zap.Bool("dry_run", req.DryRun),
		zap.Int("requested", run.Requested),
		zap.Int("assigned", resp.Stats.Assigned),
		zap.Int("persisted", run.Assigned),
		zap.Int("volunteers", run.Volunteers),
		zap.String("triggered_by", run.TriggeredBy))

	c.JSON(http.StatusOK, models.RunResponse{RunID: run.ID, Persisted: run.Assigned, AssignResponse: resp})
}
