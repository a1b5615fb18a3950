package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestGormStore_Volunteers(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	r := 4.5
	active := &VolunteerRecord{Email: "a@example.com", PasswordHash: "x", Name: "Ann", Available: true, Rating: &r}
	require.NoError(t, s.CreateVolunteer(ctx, active))
	assert.NotEmpty(t, active.ID)

	away := &VolunteerRecord{Email: "b@example.com", PasswordHash: "x", Name: "Ben", Available: true}
	require.NoError(t, s.CreateVolunteer(ctx, away))
	require.NoError(t, s.db.Model(away).Update("available", false).Error)

	got, err := s.GetVolunteer(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)

	all, err := s.ListVolunteers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := s.ListVolunteers(ctx, true)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, active.ID, available[0].ID)

	_, err = s.GetVolunteer(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	require.NoError(t, s.CreateVolunteer(ctx, &VolunteerRecord{Email: "vol@example.com", PasswordHash: "h1"}))
	require.NoError(t, s.CreateRecipient(ctx, &RecipientRecord{Email: "rec@example.com", PasswordHash: "h2"}))

	vol, err := s.GetUserByEmail(ctx, "vol@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleVolunteer, vol.Role)
	assert.Nil(t, vol.Recipient)
	assert.Equal(t, "h1", vol.PasswordHash())

	rec, err := s.GetUserByEmail(ctx, "rec@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleRecipient, rec.Role)
	assert.Equal(t, "rec@example.com", rec.Email())
	assert.Equal(t, rec.Recipient.ID, rec.ID())

	_, err = s.GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_Requirements(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	req := &RequirementRecord{
		Name:        "Winter kit",
		Description: "Boots and jackets",
		RecipientID: "rec-1",
		Items: []ItemRecord{
			{Name: "Boots", Count: 10, Category: "Clothing"},
			{Name: "Jacket", Count: 5, Category: "Winter Equipment"},
		},
	}
	require.NoError(t, s.CreateRequirement(ctx, req))
	assert.Equal(t, optimizer.PriorityDefault, req.Priority)
	assert.Equal(t, StatusOpen, req.Status)

	got, err := s.GetRequirement(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	require.NoError(t, s.CreateRequirement(ctx, &RequirementRecord{Name: "Generator", Priority: optimizer.PriorityHigh}))

	found, err := s.ListRequirements(ctx, "jacket")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, req.ID, found[0].ID)

	all, err := s.ListRequirements(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteRequirement(ctx, req.ID))
	_, err = s.GetRequirement(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRequirement(ctx, req.ID), ErrNotFound)

	var items int64
	require.NoError(t, s.db.Model(&ItemRecord{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestGormStore_ApplyAssignment(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	for _, id := range []string{"r1", "r2", "r3", "done"} {
		require.NoError(t, s.CreateRequirement(ctx, &RequirementRecord{ID: id, Name: id}))
	}
	require.NoError(t, s.db.Model(&RequirementRecord{ID: "done"}).Update("status", StatusCompleted).Error)

	run := &AssignmentRun{Capacity: 2, Requested: 4, Volunteers: 2}
	err := s.ApplyAssignment(ctx, run, optimizer.Assignment{
		"v1": {"r1", "r3"},
		"v2": {"r2", "done"},
		"v3": {},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	// "done" was no longer open, so only three rows were written
	assert.Equal(t, 3, run.Assigned)

	open, err := s.OpenRequirements(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	assignees, err := s.ActiveAssignees(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"r1": "v1", "r2": "v2", "r3": "v1"}, assignees)

	r1, err := s.GetRequirement(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, r1.VolunteerID)
	assert.Equal(t, "v1", *r1.VolunteerID)
	assert.Equal(t, StatusAssigned, r1.Status)

	done, err := s.GetRequirement(ctx, "done")
	require.NoError(t, err)
	assert.Nil(t, done.VolunteerID)
	assert.Equal(t, StatusCompleted, done.Status)

	var stored AssignmentRun
	require.NoError(t, s.db.First(&stored, "id = ?", run.ID).Error)
	assert.Equal(t, 3, stored.Assigned)
}

func TestGormStore_UpdateRequirementAndItems(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	req := &RequirementRecord{Name: "Fuel", RecipientID: "rec-1"}
	require.NoError(t, s.CreateRequirement(ctx, req))

	req.Name = "Diesel"
	req.Priority = optimizer.PriorityHigh
	req.Status = StatusCompleted
	require.NoError(t, s.UpdateRequirement(ctx, req))

	require.NoError(t, s.AddItems(ctx, req.ID, []ItemRecord{{Name: "Jerrycan", Count: 4, Category: "Fuel"}}))
	assert.ErrorIs(t, s.AddItems(ctx, "missing", []ItemRecord{{Name: "x", Count: 1}}), ErrNotFound)

	got, err := s.GetRequirement(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Diesel", got.Name)
	assert.Equal(t, optimizer.PriorityHigh, got.Priority)
	assert.Equal(t, StatusOpen, got.Status, "status is not editable")
	require.Len(t, got.Items, 1)
	assert.Equal(t, req.ID, got.Items[0].RequirementID)

	byRecipient, err := s.RequirementsByRecipient(ctx, "rec-1")
	require.NoError(t, err)
	assert.Len(t, byRecipient, 1)

	assert.ErrorIs(t, s.UpdateRequirement(ctx, &RequirementRecord{ID: "missing", Name: "x"}), ErrNotFound)
}

func TestGormStore_UpdateVolunteer(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t))

	r := 3.0
	v := &VolunteerRecord{Email: "v@example.com", PasswordHash: "x", Name: "Vera", Available: true, Rating: &r}
	require.NoError(t, s.CreateVolunteer(ctx, v))

	v.Phone = "+380000000"
	v.Available = false
	other := 5.0
	v.Rating = &other
	require.NoError(t, s.UpdateVolunteer(ctx, v))

	got, err := s.GetVolunteer(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "+380000000", got.Phone)
	assert.False(t, got.Available)
	assert.Equal(t, 3.0, *got.Rating, "rating only changes through reports")

	available, err := s.ListVolunteers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, available)
}
