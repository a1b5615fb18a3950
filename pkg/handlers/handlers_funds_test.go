package handlers

import (
	"net/http"
	"testing"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/models"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundLifecycle(t *testing.T) {
	s := newTestServer(t)
	volID, volToken := s.register(t, database.RoleVolunteer, "vol@example.com")
	recID, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	_, otherVolToken := s.register(t, database.RoleVolunteer, "other@example.com")

	w := s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{
		Name:  "Night optics",
		Items: []models.ItemCreate{{Name: "Thermal scope", Count: 1, Category: "Electronics and Optics"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reqID := decode[models.MessageWithID](t, w).ID

	w = s.do(t, http.MethodGet, "/api/requirements/"+reqID, "", nil)
	itemID := decode[database.RequirementRecord](t, w).Items[0].ID

	// Only volunteers open funds
	w = s.do(t, http.MethodPost, "/api/funds", recToken, models.FundCreate{Name: "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/funds", volToken, models.FundCreate{
		Name:          "Optics for the brigade",
		Status:        database.FundActive,
		MonoJarURL:    "https://send.monobank.ua/jar/abc",
		RequirementID: &reqID,
		Items:         []string{itemID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fundID := decode[models.MessageWithID](t, w).ID

	// The requirement now belongs to the volunteer
	w = s.do(t, http.MethodPost, "/api/funds", otherVolToken, models.FundCreate{Name: "late", RequirementID: &reqID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/funds/"+fundID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	fund := decode[database.FundRecord](t, w)
	assert.Equal(t, volID, fund.VolunteerID)
	require.Len(t, fund.Items, 1)

	w = s.do(t, http.MethodGet, "/api/funds?query=brigade", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.FundRecord](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/funds/statuses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"statuses":["Active","Completed","Cancelled","None"]}`, w.Body.String())

	// Dashboards
	w = s.do(t, http.MethodGet, "/api/volunteers/dashboard", volToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	volDash := decode[database.Dashboard](t, w)
	assert.Len(t, volDash.Funds, 1)
	require.Len(t, volDash.Requirements, 1)
	assert.Equal(t, database.StatusAssigned, volDash.Requirements[0].Status)

	w = s.do(t, http.MethodGet, "/api/recipients/dashboard", recToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	recDash := decode[database.Dashboard](t, w)
	assert.Len(t, recDash.Funds, 1)
	assert.Len(t, recDash.Requirements, 1)

	w = s.do(t, http.MethodGet, "/api/volunteers/dashboard", recToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/volunteers/"+volID+"/funds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.FundRecord](t, w), 1)
	w = s.do(t, http.MethodGet, "/api/recipients/"+recID+"/funds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.FundRecord](t, w), 1)
	w = s.do(t, http.MethodGet, "/api/recipients/"+recID+"/requirements", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]database.RequirementRecord](t, w), 1)

	// Another volunteer cannot edit the fund
	w = s.do(t, http.MethodPut, "/api/funds/"+fundID, otherVolToken, gin.H{"name": "mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/funds/"+fundID, volToken, gin.H{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/funds/"+fundID, volToken, gin.H{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, database.FundCompleted, decode[database.FundRecord](t, w).Status)

	w = s.do(t, http.MethodPut, "/api/funds/"+fundID, volToken, gin.H{"status": "Active"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Completing the fund completes the requirement and frees the volunteer
	w = s.do(t, http.MethodGet, "/api/requirements/"+reqID, "", nil)
	assert.Equal(t, database.StatusCompleted, decode[database.RequirementRecord](t, w).Status)

	// The recipient reports on the fund, which rates the volunteer
	w = s.do(t, http.MethodPost, "/api/funds/"+fundID+"/report", recToken, models.ReportCreate{Rating: 6, FinalConclusion: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/funds/"+fundID+"/report", recToken, models.ReportCreate{Rating: 4, FinalConclusion: "Delivered on time"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/funds/"+fundID+"/report", recToken, models.ReportCreate{Rating: 4, FinalConclusion: "twice"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/volunteers/"+volID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	vol := decode[database.VolunteerRecord](t, w)
	require.NotNil(t, vol.Rating)
	assert.Equal(t, 4.0, *vol.Rating)
	assert.Equal(t, 1, vol.TotalReports)
}

func TestAddReport_OtherRecipientForbidden(t *testing.T) {
	s := newTestServer(t)
	_, volToken := s.register(t, database.RoleVolunteer, "vol@example.com")
	_, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	_, strangerToken := s.register(t, database.RoleRecipient, "stranger@example.com")

	w := s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Tents"})
	reqID := decode[models.MessageWithID](t, w).ID
	w = s.do(t, http.MethodPost, "/api/funds", volToken, models.FundCreate{Name: "Tents", RequirementID: &reqID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	fundID := decode[models.MessageWithID](t, w).ID

	w = s.do(t, http.MethodPost, "/api/funds/"+fundID+"/report", strangerToken, models.ReportCreate{Rating: 1, FinalConclusion: "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelledFundReturnsRequirementToRun(t *testing.T) {
	s := newTestServer(t)
	volID, volToken := s.register(t, database.RoleVolunteer, "vol@example.com")
	_, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	admin := s.adminToken(t)

	w := s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Stoves"})
	reqID := decode[models.MessageWithID](t, w).ID
	w = s.do(t, http.MethodPost, "/api/funds", volToken, models.FundCreate{Name: "Stoves", RequirementID: &reqID})
	fundID := decode[models.MessageWithID](t, w).ID

	w = s.do(t, http.MethodPost, "/admin/assign/run", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decode[models.RunResponse](t, w).Stats.Requested)

	// Admins may close any fund
	w = s.do(t, http.MethodPut, "/api/funds/"+fundID, admin, gin.H{"status": "Cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/admin/assign/run", admin, gin.H{"dry_run": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[models.RunResponse](t, w)
	assert.Equal(t, 1, run.Stats.Requested)
	assert.Equal(t, []string{reqID}, run.Assignment[volID])
	assert.Zero(t, run.Persisted)
}

func TestRunAssignment_CountsCurrentLoad(t *testing.T) {
	s := newTestServer(t)
	busyID, busyToken := s.register(t, database.RoleVolunteer, "busy@example.com")
	freeID, _ := s.register(t, database.RoleVolunteer, "free@example.com")
	_, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	admin := s.adminToken(t)

	// busy takes one requirement through a fund
	w := s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Held"})
	heldID := decode[models.MessageWithID](t, w).ID
	w = s.do(t, http.MethodPost, "/api/funds", busyToken, models.FundCreate{Name: "Held", RequirementID: &heldID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Urgent", Priority: optimizer.PriorityHigh})
	urgentID := decode[models.MessageWithID](t, w).ID

	w = s.do(t, http.MethodPost, "/admin/assign/run", admin, gin.H{"max_capacity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[models.RunResponse](t, w)
	assert.Equal(t, []string{urgentID}, run.Assignment[freeID])
	assert.Empty(t, run.Assignment[busyID])
	assert.Equal(t, 1, run.Persisted)
}

func TestRequirementUpdateAndItems(t *testing.T) {
	s := newTestServer(t)
	_, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	_, otherToken := s.register(t, database.RoleRecipient, "other@example.com")

	w := s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Food"})
	reqID := decode[models.MessageWithID](t, w).ID

	w = s.do(t, http.MethodPatch, "/api/requirements/"+reqID, recToken, models.RequirementUpdate{
		Description: "For 40 people", Priority: optimizer.PriorityHigh,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPatch, "/api/requirements/"+reqID, recToken, gin.H{"priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/requirements/"+reqID, otherToken, models.RequirementUpdate{Name: "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/requirements/"+reqID+"/items", recToken, []models.ItemCreate{
		{Name: "Canned meat", Count: 40, Category: "Food"},
		{Name: "Water", Count: 80, Category: "Food"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/requirements/"+reqID+"/items", recToken, []models.ItemCreate{
		{Name: "Rocket", Count: 1, Category: "Space"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/requirements/missing/items", recToken, []models.ItemCreate{
		{Name: "Water", Count: 1, Category: "Food"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/requirements/"+reqID, "", nil)
	got := decode[database.RequirementRecord](t, w)
	assert.Equal(t, "Food", got.Name)
	assert.Equal(t, "For 40 people", got.Description)
	assert.Equal(t, optimizer.PriorityHigh, got.Priority)
	assert.Len(t, got.Items, 2)
}

func TestUpdateVolunteer(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, database.RoleVolunteer, "vol@example.com")
	s.register(t, database.RoleVolunteer, "taken@example.com")

	w := s.do(t, http.MethodPatch, "/api/volunteers", token, gin.H{"email": "taken@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/api/volunteers", token, gin.H{
		"email": "new@example.com", "phone": "+380501112233", "available": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The profile is looked up by ID, so the old token keeps working
	w = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decode[database.User](t, w)
	require.NotNil(t, user.Volunteer)
	assert.Equal(t, "new@example.com", user.Volunteer.Email)
	assert.Equal(t, "+380501112233", user.Volunteer.Phone)
	assert.False(t, user.Volunteer.Available)

	// Unavailable volunteers are left out of runs
	_, recToken := s.register(t, database.RoleRecipient, "rec@example.com")
	s.do(t, http.MethodPost, "/api/requirements", recToken, models.RequirementCreate{Name: "Boots"})
	w = s.do(t, http.MethodPost, "/admin/assign/run", s.adminToken(t), gin.H{"dry_run": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.RunResponse](t, w).Stats.Volunteers)
}
