package database

import (
	"time"

	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
)

// Requirement status values. Only Assigned requirements count towards a
// volunteer's current load.
const (
	StatusOpen      = "Open"
	StatusAssigned  = "Assigned"
	StatusCompleted = "Completed"
)

// FundStatus is the lifecycle state of a fundraising campaign
type FundStatus string

const (
	FundActive    FundStatus = "Active"
	FundCompleted FundStatus = "Completed"
	FundCancelled FundStatus = "Cancelled"
	FundNone      FundStatus = "None"
)

// FundStatuses lists every fund status in display order
var FundStatuses = []FundStatus{FundActive, FundCompleted, FundCancelled, FundNone}

// Closed reports whether no further status change is allowed
func (s FundStatus) Closed() bool {
	return s == FundCompleted || s == FundCancelled
}

// Item categories accepted on requirements
var Categories = []string{
	"Food", "Medicine", "Military Equipment", "Tactical Gear", "Clothing",
	"Hygiene", "Electronics and Optics", "Power Supply", "Vehicles", "Fuel",
	"Construction", "Communications", "Tools", "Drones", "Winter Equipment",
	"Animal Support", "Other",
}

// VolunteerRecord represents the volunteers table
type VolunteerRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Phone        string    `json:"phone"`
	Age          string    `json:"age,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	ProfilePic   string    `json:"profile_pic,omitempty"`
	Available    bool      `gorm:"default:true" json:"available"`
	Rating       *float64  `json:"rating,omitempty"`
	TotalReports int       `gorm:"default:0" json:"total_reports"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecipientRecord represents the recipients table
type RecipientRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `json:"name"`
	ProfilePic   string    `json:"profile_pic,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RequirementRecord represents the requirements table. VolunteerID is the
// current assignee and is the authoritative source of volunteer load.
type RequirementRecord struct {
	ID          string             `gorm:"primaryKey" json:"id"`
	Name        string             `gorm:"not null" json:"name"`
	Description string             `json:"description,omitempty"`
	Priority    optimizer.Priority `gorm:"default:Default" json:"priority"`
	Deadline    *time.Time         `json:"deadline,omitempty"`
	Status      string             `gorm:"index;default:Open" json:"status"`
	RecipientID string             `gorm:"index" json:"recipient_id"`
	VolunteerID *string            `gorm:"index" json:"volunteer_id,omitempty"`
	Items       []ItemRecord       `gorm:"foreignKey:RequirementID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ItemRecord represents the items table. FundID is set once a fund reserves the item.
type ItemRecord struct {
	ID            string  `gorm:"primaryKey" json:"id"`
	RequirementID string  `gorm:"index;not null" json:"requirement_id"`
	Name          string  `gorm:"not null" json:"name"`
	Count         int     `json:"count"`
	Category      string  `json:"category"`
	FundID        *string `gorm:"index" json:"reserved_by,omitempty"`
}

// FundRecord represents the funds table. A fund is opened by a volunteer,
// usually for one requirement, and carries at most one report.
type FundRecord struct {
	ID            string        `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"not null" json:"name"`
	Description   string        `json:"description,omitempty"`
	MonoJarURL    string        `json:"mono_jar_url,omitempty"`
	LongJarID     string        `json:"long_jar_id,omitempty"`
	Status        FundStatus    `gorm:"index;default:None" json:"status"`
	Picture       string        `json:"picture,omitempty"`
	VolunteerID   string        `gorm:"index;not null" json:"volunteer_id"`
	RequirementID *string       `gorm:"index" json:"requirement_id,omitempty"`
	Items         []ItemRecord  `gorm:"foreignKey:FundID" json:"items"`
	Report        *ReportRecord `gorm:"foreignKey:FundID;constraint:OnDelete:CASCADE" json:"report,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ReportRecord represents the reports table
type ReportRecord struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	FundID          string    `gorm:"uniqueIndex;not null" json:"fund_id"`
	Rating          int       `json:"rating"`
	FinalConclusion string    `json:"final_conclusion"`
	CreatedAt       time.Time `json:"created_at"`
}

// Dashboard groups the funds and requirements an account is involved in
type Dashboard struct {
	Funds        []FundRecord        `json:"funds"`
	Requirements []RequirementRecord `json:"requirements"`
}

// AssignmentRun records one persisted optimizer run. Assigned counts the
// requirements actually written, which can be lower than what the optimizer
// placed when a requirement stopped being open during the run.
type AssignmentRun struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Capacity    int       `json:"capacity"`
	Requested   int       `json:"requested"`
	Assigned    int       `json:"assigned"`
	Volunteers  int       `json:"volunteers"`
	Fairness    float64   `json:"fairness_score"`
	TriggeredBy string    `json:"triggered_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role discriminates the User variant
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleVolunteer Role = "Volunteer"
	RoleRecipient Role = "Recipient"
)

// User is a tagged variant over the two account kinds. Exactly one of
// Volunteer or Recipient is set, matching Role.
type User struct {
	Role      Role             `json:"role"`
	Volunteer *VolunteerRecord `json:"volunteer,omitempty"`
	Recipient *RecipientRecord `json:"recipient,omitempty"`
}

// ID returns the underlying account ID
func (u User) ID() string {
	switch u.Role {
	case RoleVolunteer:
		return u.Volunteer.ID
	case RoleRecipient:
		return u.Recipient.ID
	}
	return ""
}

// Email returns the underlying account email
func (u User) Email() string {
	switch u.Role {
	case RoleVolunteer:
		return u.Volunteer.Email
	case RoleRecipient:
		return u.Recipient.Email
	}
	return ""
}

// PasswordHash returns the stored bcrypt hash
func (u User) PasswordHash() string {
	switch u.Role {
	case RoleVolunteer:
		return u.Volunteer.PasswordHash
	case RoleRecipient:
		return u.Recipient.PasswordHash
	}
	return ""
}
