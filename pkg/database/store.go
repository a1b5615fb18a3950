package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountStore covers volunteer and recipient accounts
type AccountStore interface {
	CreateVolunteer(ctx context.Context, v *VolunteerRecord) error
	GetVolunteer(ctx context.Context, id string) (*VolunteerRecord, error)
	UpdateVolunteer(ctx context.Context, v *VolunteerRecord) error
	ListVolunteers(ctx context.Context, availableOnly bool) ([]VolunteerRecord, error)
	CreateRecipient(ctx context.Context, r *RecipientRecord) error
	GetRecipient(ctx context.Context, id string) (*RecipientRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// RequirementStore covers requirements, their items and assignment runs
type RequirementStore interface {
	CreateRequirement(ctx context.Context, r *RequirementRecord) error
	GetRequirement(ctx context.Context, id string) (*RequirementRecord, error)
	UpdateRequirement(ctx context.Context, r *RequirementRecord) error
	AddItems(ctx context.Context, requirementID string, items []ItemRecord) error
	ListRequirements(ctx context.Context, query string) ([]RequirementRecord, error)
	RequirementsByRecipient(ctx context.Context, recipientID string) ([]RequirementRecord, error)
	RequirementsByVolunteer(ctx context.Context, volunteerID string) ([]RequirementRecord, error)
	DeleteRequirement(ctx context.Context, id string) error

	OpenRequirements(ctx context.Context) ([]RequirementRecord, error)
	ActiveAssignees(ctx context.Context) (map[string]string, error)
	ApplyAssignment(ctx context.Context, run *AssignmentRun, a optimizer.Assignment) error
}

// FundStore covers funds and their reports
type FundStore interface {
	CreateFund(ctx context.Context, f *FundRecord, itemIDs []string) error
	GetFund(ctx context.Context, id string) (*FundRecord, error)
	ListFunds(ctx context.Context, query string) ([]FundRecord, error)
	UpdateFund(ctx context.Context, id string, patch FundPatch) (*FundRecord, error)
	FundsByVolunteer(ctx context.Context, volunteerID string) ([]FundRecord, error)
	FundsByRecipient(ctx context.Context, recipientID string) ([]FundRecord, error)
	AddReport(ctx context.Context, r *ReportRecord) error
}

// KeyStore covers API keys, their daily usage and the master admins
type KeyStore interface {
	RegisterAPIKey(ctx context.Context, k *APIKey) error
	CreateAPIKey(ctx context.Context, k *APIKey) error
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	UpdateAPIKeyLimit(ctx context.Context, id string, limit int) error
	DeleteAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, k *APIKey) error
	RequestsOn(ctx context.Context, keyID uint, date string) (int, error)
	RecordUsage(ctx context.Context, u APIUsage) error
	UsageHistory(ctx context.Context, keyID uint, days int) ([]APIUsage, error)

	CountMasterUsers(ctx context.Context) (int64, error)
	CreateMasterUser(ctx context.Context, u *MasterUser) error
	GetMasterUser(ctx context.Context, username string) (*MasterUser, error)
}

// Store is the data access used by request handlers
type Store interface {
	AccountStore
	RequirementStore
	FundStore
	KeyStore
}

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (VolunteerRecord) TableName() string   { return "volunteers" }
func (RecipientRecord) TableName() string   { return "recipients" }
func (RequirementRecord) TableName() string { return "requirements" }
func (ItemRecord) TableName() string        { return "items" }
func (FundRecord) TableName() string        { return "funds" }
func (ReportRecord) TableName() string      { return "reports" }
func (AssignmentRun) TableName() string     { return "assignment_runs" }

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}

func (s *GormStore) CreateVolunteer(ctx context.Context, v *VolunteerRecord) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create volunteer: %w", err)
	}
	return nil
}

func (s *GormStore) GetVolunteer(ctx context.Context, id string) (*VolunteerRecord, error) {
	var v VolunteerRecord
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "volunteer", id)
	}
	return &v, nil
}

// UpdateVolunteer writes the editable profile fields of v. Rating and report
// counts are only changed through AddReport.
func (s *GormStore) UpdateVolunteer(ctx context.Context, v *VolunteerRecord) error {
	res := s.db.WithContext(ctx).Model(v).
		Select("email", "phone", "name", "surname", "age", "bio", "profile_pic", "available").
		Updates(v)
	if res.Error != nil {
		return fmt.Errorf("failed to update volunteer %s: %w", v.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("volunteer %s: %w", v.ID, ErrNotFound)
	}
	return nil
}

// ListVolunteers returns volunteers in creation order
func (s *GormStore) ListVolunteers(ctx context.Context, availableOnly bool) ([]VolunteerRecord, error) {
	q := s.db.WithContext(ctx).Order("created_at, id")
	if availableOnly {
		q = q.Where("available = ?", true)
	}
	var vols []VolunteerRecord
	if err := q.Find(&vols).Error; err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	return vols, nil
}

func (s *GormStore) CreateRecipient(ctx context.Context, r *RecipientRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

func (s *GormStore) GetRecipient(ctx context.Context, id string) (*RecipientRecord, error) {
	var r RecipientRecord
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "recipient", id)
	}
	return &r, nil
}

// GetUserByEmail looks the email up among volunteers first, then recipients.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := s.db.WithContext(ctx)

	var v VolunteerRecord
	err := db.Where("email = ?", email).First(&v).Error
	if err == nil {
		return &User{Role: RoleVolunteer, Volunteer: &v}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(err, "user", email)
	}

	var r RecipientRecord
	if err := db.Where("email = ?", email).First(&r).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &User{Role: RoleRecipient, Recipient: &r}, nil
}
