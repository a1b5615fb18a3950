package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FundPatch lists the fund fields to change. Nil fields are kept.
type FundPatch struct {
	Name        *string
	Description *string
	MonoJarURL  *string
	LongJarID   *string
	Picture     *string
	Status      *FundStatus
}

func (p FundPatch) apply(f *FundRecord) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.MonoJarURL != nil {
		f.MonoJarURL = *p.MonoJarURL
	}
	if p.LongJarID != nil {
		f.LongJarID = *p.LongJarID
	}
	if p.Picture != nil {
		f.Picture = *p.Picture
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
}

// CreateFund opens a fund. When the fund names a requirement, the requirement
// is taken by the fund's volunteer if it is still open. itemIDs are reserved
// for the fund; every one of them must belong to that requirement and be free.
func (s *GormStore) CreateFund(ctx context.Context, f *FundRecord, itemIDs []string) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FundNone
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if f.RequirementID != nil {
			if err := takeRequirement(tx, *f.RequirementID, f.VolunteerID); err != nil {
				return err
			}
		}
		if err := tx.Omit("Items", "Report").Create(f).Error; err != nil {
			return fmt.Errorf("failed to create fund: %w", err)
		}
		return reserveItems(tx, f, itemIDs)
	})
}

func takeRequirement(tx *gorm.DB, requirementID, volunteerID string) error {
	var req RequirementRecord
	if err := tx.First(&req, "id = ?", requirementID).Error; err != nil {
		return notFound(err, "requirement", requirementID)
	}

	switch {
	case req.Status == StatusOpen:
		err := tx.Model(&req).Updates(map[string]interface{}{
			"volunteer_id": volunteerID,
			"status":       StatusAssigned,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to assign requirement %s: %w", requirementID, err)
		}
		return nil
	case req.Status == StatusAssigned && req.VolunteerID != nil && *req.VolunteerID == volunteerID:
		return nil
	}
	return fmt.Errorf("requirement %s is %s: %w", requirementID, req.Status, ErrConflict)
}

func reserveItems(tx *gorm.DB, f *FundRecord, itemIDs []string) error {
	ids := unique(itemIDs)
	if len(ids) == 0 {
		return nil
	}
	if f.RequirementID == nil {
		return fmt.Errorf("items can only be reserved for a requirement: %w", ErrConflict)
	}

	res := tx.Model(&ItemRecord{}).
		Where("id IN ? AND requirement_id = ? AND fund_id IS NULL", ids, *f.RequirementID).
		Update("fund_id", f.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to reserve items: %w", res.Error)
	}
	if int(res.RowsAffected) != len(ids) {
		return fmt.Errorf("%d of %d items are unavailable: %w", len(ids)-int(res.RowsAffected), len(ids), ErrConflict)
	}
	return nil
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *GormStore) GetFund(ctx context.Context, id string) (*FundRecord, error) {
	return getFund(s.db.WithContext(ctx), id)
}

func getFund(db *gorm.DB, id string) (*FundRecord, error) {
	var f FundRecord
	if err := db.Preload("Items").Preload("Report").First(&f, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "fund", id)
	}
	return &f, nil
}

// ListFunds returns funds whose name or description contains query
func (s *GormStore) ListFunds(ctx context.Context, query string) ([]FundRecord, error) {
	q := s.db.WithContext(ctx).Preload("Items").Preload("Report").Order("created_at, id")
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	var funds []FundRecord
	if err := q.Find(&funds).Error; err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	return funds, nil
}

// UpdateFund applies patch to a fund. Completing a fund completes its
// requirement; cancelling it reopens the requirement and frees its items.
// Either way the volunteer's load drops. A completed or cancelled fund cannot
// change status again.
func (s *GormStore) UpdateFund(ctx context.Context, id string, patch FundPatch) (*FundRecord, error) {
	var out *FundRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := getFund(tx, id)
		if err != nil {
			return err
		}
		prev := f.Status
		if patch.Status != nil && *patch.Status != prev && prev.Closed() {
			return fmt.Errorf("fund %s is %s: %w", id, prev, ErrConflict)
		}

		patch.apply(f)
		err = tx.Model(f).
			Select("name", "description", "mono_jar_url", "long_jar_id", "picture", "status", "updated_at").
			Updates(f).Error
		if err != nil {
			return fmt.Errorf("failed to update fund %s: %w", id, err)
		}

		if f.Status != prev && f.RequirementID != nil {
			if err := closeRequirement(tx, f); err != nil {
				return err
			}
		}

		out, err = getFund(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func closeRequirement(tx *gorm.DB, f *FundRecord) error {
	held := tx.Model(&RequirementRecord{}).
		Where("id = ? AND status = ? AND volunteer_id = ?", *f.RequirementID, StatusAssigned, f.VolunteerID)

	switch f.Status {
	case FundCompleted:
		if err := held.Update("status", StatusCompleted).Error; err != nil {
			return fmt.Errorf("failed to complete requirement %s: %w", *f.RequirementID, err)
		}
	case FundCancelled:
		err := held.Updates(map[string]interface{}{
			"status":       StatusOpen,
			"volunteer_id": nil,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to reopen requirement %s: %w", *f.RequirementID, err)
		}
		if err := tx.Model(&ItemRecord{}).Where("fund_id = ?", f.ID).Update("fund_id", nil).Error; err != nil {
			return fmt.Errorf("failed to release items of fund %s: %w", f.ID, err)
		}
	}
	return nil
}

func (s *GormStore) FundsByVolunteer(ctx context.Context, volunteerID string) ([]FundRecord, error) {
	var funds []FundRecord
	err := s.db.WithContext(ctx).Preload("Items").Preload("Report").
		Where("volunteer_id = ?", volunteerID).
		Order("created_at, id").
		Find(&funds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list funds of volunteer %s: %w", volunteerID, err)
	}
	return funds, nil
}

// FundsByRecipient returns the funds raised for any of the recipient's requirements
func (s *GormStore) FundsByRecipient(ctx context.Context, recipientID string) ([]FundRecord, error) {
	db := s.db.WithContext(ctx)
	owned := db.Model(&RequirementRecord{}).Select("id").Where("recipient_id = ?", recipientID)

	var funds []FundRecord
	err := db.Preload("Items").Preload("Report").
		Where("requirement_id IN (?)", owned).
		Order("created_at, id").
		Find(&funds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list funds of recipient %s: %w", recipientID, err)
	}
	return funds, nil
}

// AddReport attaches the closing report to a fund and folds its rating into
// the running average of the fund's volunteer.
func (s *GormStore) AddReport(ctx context.Context, r *ReportRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f FundRecord
		if err := tx.First(&f, "id = ?", r.FundID).Error; err != nil {
			return notFound(err, "fund", r.FundID)
		}

		var n int64
		if err := tx.Model(&ReportRecord{}).Where("fund_id = ?", f.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count reports of fund %s: %w", f.ID, err)
		}
		if n > 0 {
			return fmt.Errorf("fund %s already has a report: %w", f.ID, ErrConflict)
		}
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}

		var v VolunteerRecord
		if err := tx.First(&v, "id = ?", f.VolunteerID).Error; err != nil {
			return notFound(err, "volunteer", f.VolunteerID)
		}
		rating := float64(r.Rating)
		if v.Rating != nil && v.TotalReports > 0 {
			rating = (*v.Rating*float64(v.TotalReports) + rating) / float64(v.TotalReports+1)
		}
		err := tx.Model(&v).Updates(map[string]interface{}{
			"rating":        rating,
			"total_reports": v.TotalReports + 1,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update rating of volunteer %s: %w", v.ID, err)
		}
		return nil
	})
}
