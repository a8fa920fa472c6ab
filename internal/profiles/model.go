// Package profiles persists user profile records.
package profiles

import (
	"strings"
	"time"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
)

// Plan is the subscription plan of a profile.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Profile is one user's record. Nullable columns are pointers or nil maps.
type Profile struct {
	ID                  string              `json:"id"`
	Email               string              `json:"email"`
	ContactEmail        *string             `json:"contact_email"`
	Plan                Plan                `json:"plan"`
	IsActive            bool                `json:"is_active"`
	OnboardingCompleted bool                `json:"onboarding_completed"`
	TelegramChatID      *string             `json:"telegram_chat_id"`
	JobTitle            *string             `json:"job_title"`
	Industry            *string             `json:"industry"`
	Seniority           *string             `json:"seniority"`
	Tone                *string             `json:"tone"`
	Focus               []string            `json:"focus"`
	StackContext        []string            `json:"stack_context"`
	AudienceTarget      []string            `json:"audience_target"`
	DirectiveJSON       map[string]any      `json:"directive_json"`
	OnboardingJSON      map[string]any      `json:"onboarding_json"`
	PersonalJSON        map[string]any      `json:"personal_json"`
	ProfileJSON         profiledoc.Document `json:"profile_json"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// NewDefault returns the record created on first login.
func NewDefault(id, email string) *Profile {
	return &Profile{
		ID:             id,
		Email:          email,
		Plan:           PlanFree,
		DirectiveJSON:  map[string]any{},
		OnboardingJSON: map[string]any{},
		ProfileJSON:    profiledoc.Default(),
	}
}

// IsSubscribed reports whether the profile holds an active paid plan.
func (p *Profile) IsSubscribed() bool {
	return p.Plan == PlanPro && p.IsActive
}

// NeedsOnboarding reports whether the user still has to finish setup:
// no contact email yet, or the onboarding wizard not completed.
func (p *Profile) NeedsOnboarding() bool {
	return p.ContactEmail == nil || strings.TrimSpace(*p.ContactEmail) == "" || !p.OnboardingCompleted
}

// MissingDocuments reports whether any of the JSON documents the editor
// relies on is still null.
func (p *Profile) MissingDocuments() bool {
	return p.DirectiveJSON == nil || p.OnboardingJSON == nil || p.ProfileJSON == nil
}

// Update lists the columns a partial write changes. Nil fields are left
// untouched.
type Update struct {
	ContactEmail        *string
	JobTitle            *string
	Industry            *string
	Seniority           *string
	Tone                *string
	Focus               []string
	StackContext        []string
	AudienceTarget      []string
	DirectiveJSON       map[string]any
	OnboardingJSON      map[string]any
	PersonalJSON        map[string]any
	ProfileJSON         profiledoc.Document
	OnboardingCompleted *bool
}

// IsEmpty reports whether the update changes nothing.
func (u *Update) IsEmpty() bool {
	return u.ContactEmail == nil && u.JobTitle == nil && u.Industry == nil &&
		u.Seniority == nil && u.Tone == nil && u.Focus == nil &&
		u.StackContext == nil && u.AudienceTarget == nil &&
		u.DirectiveJSON == nil && u.OnboardingJSON == nil && u.PersonalJSON == nil &&
		u.ProfileJSON == nil && u.OnboardingCompleted == nil
}

// Apply writes the update's fields onto p.
func (u *Update) Apply(p *Profile) {
	if u.ContactEmail != nil {
		p.ContactEmail = strPtr(*u.ContactEmail)
	}
	if u.JobTitle != nil {
		p.JobTitle = strPtr(*u.JobTitle)
	}
	if u.Industry != nil {
		p.Industry = strPtr(*u.Industry)
	}
	if u.Seniority != nil {
		p.Seniority = strPtr(*u.Seniority)
	}
	if u.Tone != nil {
		p.Tone = strPtr(*u.Tone)
	}
	if u.Focus != nil {
		p.Focus = append([]string{}, u.Focus...)
	}
	if u.StackContext != nil {
		p.StackContext = append([]string{}, u.StackContext...)
	}
	if u.AudienceTarget != nil {
		p.AudienceTarget = append([]string{}, u.AudienceTarget...)
	}
	if u.DirectiveJSON != nil {
		p.DirectiveJSON = cloneObject(u.DirectiveJSON)
	}
	if u.OnboardingJSON != nil {
		p.OnboardingJSON = cloneObject(u.OnboardingJSON)
	}
	if u.PersonalJSON != nil {
		p.PersonalJSON = cloneObject(u.PersonalJSON)
	}
	if u.ProfileJSON != nil {
		p.ProfileJSON = u.ProfileJSON.Clone()
	}
	if u.OnboardingCompleted != nil {
		p.OnboardingCompleted = *u.OnboardingCompleted
	}
}

func strPtr(s string) *string { return &s }
