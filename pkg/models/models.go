package models

import (
	"time"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/arnavshah/aid-coordination-api/pkg/optimizer"
)

// AssignInput is the body of the stateless assignment endpoint. A nil
// MaxCapacity selects the server default.
type AssignInput struct {
	Volunteers   []optimizer.Volunteer   `json:"volunteers"`
	Requirements []optimizer.Requirement `json:"requirements"`
	MaxCapacity  *int                    `json:"max_capacity,omitempty"`
}

// RunRequest is the optional body of a persisted assignment run
type RunRequest struct {
	MaxCapacity *int `json:"max_capacity,omitempty"`
	DryRun      bool `json:"dry_run"`
}

// AssignResponse is the result of an optimization run
type AssignResponse struct {
	Assignment optimizer.Assignment `json:"assignment"`
	Unassigned []string             `json:"unassigned"`
	Stats      optimizer.Stats      `json:"stats"`
}

// RunResponse is returned when a run is persisted. Persisted counts the
// requirements actually written and is zero on a dry run.
type RunResponse struct {
	RunID     string `json:"run_id"`
	Persisted int    `json:"persisted"`
	AssignResponse
}

// LoginRequest is used by both admin and account login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginRequest is the admin login body
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the token plus the account, discriminated by Role
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Role        database.Role `json:"role"`
	User        database.User `json:"user"`
}

// VolunteerCreate registers a volunteer account
type VolunteerCreate struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Name     string   `json:"name" binding:"required"`
	Surname  string   `json:"surname"`
	Phone    string   `json:"phone"`
	Rating   *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
}

// RecipientCreate registers a recipient account
type RecipientCreate struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// VolunteerUpdate changes a volunteer's own profile. Empty fields are kept.
type VolunteerUpdate struct {
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Age        string `json:"age"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profile_pic"`
	Available  *bool  `json:"available"`
}

// ItemCreate is one line of a requirement
type ItemCreate struct {
	Name     string `json:"name" binding:"required"`
	Count    int    `json:"count" binding:"gte=1"`
	Category string `json:"category" binding:"required"`
}

// RequirementCreate is the body for creating a requirement
type RequirementCreate struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Priority    optimizer.Priority `json:"priority" binding:"omitempty,oneof=Default High None"`
	Deadline    *time.Time         `json:"deadline"`
	Items       []ItemCreate       `json:"items" binding:"dive"`
}

// RequirementUpdate changes a requirement's description. Empty fields are kept.
type RequirementUpdate struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Priority    optimizer.Priority `json:"priority" binding:"omitempty,oneof=Default High None"`
	Deadline    *time.Time         `json:"deadline"`
}

// FundCreate opens a fund, optionally for a requirement and some of its items
type FundCreate struct {
	Name          string              `json:"name" binding:"required"`
	Description   string              `json:"description"`
	MonoJarURL    string              `json:"mono_jar_url" binding:"omitempty,url"`
	LongJarID     string              `json:"long_jar_id"`
	Status        database.FundStatus `json:"status" binding:"omitempty,oneof=Active None"`
	Picture       string              `json:"picture"`
	RequirementID *string             `json:"requirement_id"`
	Items         []string            `json:"items"`
}

// FundUpdate changes a fund. Nil fields are kept.
type FundUpdate struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	MonoJarURL  *string              `json:"mono_jar_url" binding:"omitempty,url"`
	LongJarID   *string              `json:"long_jar_id"`
	Picture     *string              `json:"picture"`
	Status      *database.FundStatus `json:"status" binding:"omitempty,oneof=Active Completed Cancelled None"`
}

// ReportCreate closes out a fund with a rating of its volunteer
type ReportCreate struct {
	Rating          int    `json:"rating" binding:"required,gte=1,lte=5"`
	FinalConclusion string `json:"final_conclusion" binding:"required"`
}

// Message is a plain acknowledgement
type Message struct {
	Message string `json:"message"`
}

// MessageWithID acknowledges a create
type MessageWithID struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
