package database

import (
	"context"
	"fmt"

	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateRequirement inserts the requirement together with its items
func (s *GormStore) CreateRequirement(ctx context.Context, r *RequirementRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Priority == "" {
		r.Priority = optimizer.PriorityDefault
	}
	if r.Status == "" {
		r.Status = StatusOpen
	}
	for i := range r.Items {
		if r.Items[i].ID == "" {
			r.Items[i].ID = uuid.NewString()
		}
		r.Items[i].RequirementID = r.ID
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create requirement: %w", err)
	}
	return nil
}

func (s *GormStore) GetRequirement(ctx context.Context, id string) (*RequirementRecord, error) {
	var r RequirementRecord
	if err := s.db.WithContext(ctx).Preload("Items").First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "requirement", id)
	}
	return &r, nil
}

// UpdateRequirement writes the descriptive fields of r. Status and assignee
// belong to assignment runs and funds and are left alone.
func (s *GormStore) UpdateRequirement(ctx context.Context, r *RequirementRecord) error {
	res := s.db.WithContext(ctx).Model(r).
		Select("name", "description", "priority", "deadline").
		Updates(r)
	if res.Error != nil {
		return fmt.Errorf("failed to update requirement %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("requirement %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// AddItems appends items to an existing requirement
func (s *GormStore) AddItems(ctx context.Context, requirementID string, items []ItemRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&RequirementRecord{}).Where("id = ?", requirementID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to load requirement %s: %w", requirementID, err)
		}
		if n == 0 {
			return fmt.Errorf("requirement %s: %w", requirementID, ErrNotFound)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = uuid.NewString()
			}
			items[i].RequirementID = requirementID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to add items to requirement %s: %w", requirementID, err)
		}
		return nil
	})
}

// ListRequirements returns requirements whose name or description contains query
func (s *GormStore) ListRequirements(ctx context.Context, query string) ([]RequirementRecord, error) {
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at, id")
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	var reqs []RequirementRecord
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	return reqs, nil
}

func (s *GormStore) RequirementsByRecipient(ctx context.Context, recipientID string) ([]RequirementRecord, error) {
	var reqs []RequirementRecord
	err := s.db.WithContext(ctx).Preload("Items").
		Where("recipient_id = ?", recipientID).
		Order("created_at, id").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements of recipient %s: %w", recipientID, err)
	}
	return reqs, nil
}

func (s *GormStore) RequirementsByVolunteer(ctx context.Context, volunteerID string) ([]RequirementRecord, error) {
	var reqs []RequirementRecord
	err := s.db.WithContext(ctx).Preload("Items").
		Where("volunteer_id = ?", volunteerID).
		Order("created_at, id").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements of volunteer %s: %w", volunteerID, err)
	}
	return reqs, nil
}

// DeleteRequirement removes a requirement with its items and detaches any fund raised for it
func (s *GormStore) DeleteRequirement(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requirement_id = ?", id).Delete(&ItemRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete items of requirement %s: %w", id, err)
		}
		err := tx.Model(&FundRecord{}).Where("requirement_id = ?", id).Update("requirement_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to detach funds of requirement %s: %w", id, err)
		}
		res := tx.Delete(&RequirementRecord{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete requirement %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("requirement %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// OpenRequirements returns unassigned requirements in creation order
func (s *GormStore) OpenRequirements(ctx context.Context) ([]RequirementRecord, error) {
	var reqs []RequirementRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusOpen).
		Order("created_at, id").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open requirements: %w", err)
	}
	return reqs, nil
}

// ActiveAssignees maps every requirement still in progress to its volunteer.
// Completed requirements no longer count towards anyone's load.
func (s *GormStore) ActiveAssignees(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID          string
		VolunteerID string
	}
	err := s.db.WithContext(ctx).
		Model(&RequirementRecord{}).
		Select("id, volunteer_id").
		Where("volunteer_id IS NOT NULL AND status = ?", StatusAssigned).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignees: %w", err)
	}

	assignees := make(map[string]string, len(rows))
	for _, r := range rows {
		assignees[r.ID] = r.VolunteerID
	}
	return assignees, nil
}

// ApplyAssignment marks every assigned requirement with its volunteer and
// records the run, all in one transaction. Requirements that are no longer
// open are left untouched and not counted in run.Assigned.
func (s *GormStore) ApplyAssignment(ctx context.Context, run *AssignmentRun, a optimizer.Assignment) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		written := 0
		for volID, reqIDs := range a {
			if len(reqIDs) == 0 {
				continue
			}
			res := tx.Model(&RequirementRecord{}).
				Where("id IN ? AND status = ?", reqIDs, StatusOpen).
				Updates(map[string]interface{}{
					"volunteer_id": volID,
					"status":       StatusAssigned,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to assign requirements to %s: %w", volID, res.Error)
			}
			written += int(res.RowsAffected)
		}
		run.Assigned = written
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to record assignment run: %w", err)
		}
		return nil
	})
}
