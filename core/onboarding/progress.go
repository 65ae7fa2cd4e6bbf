package onboarding

import (
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
)

// Key identifies the progress of one person. Email is always set; UserID is only known
// once the person has an account.
type Key struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type Progress struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id,omitempty"`
	Email           string       `json:"email"`
	CurrentStep     Step         `json:"current_step"`
	CompletedSteps  []Step       `json:"completed_steps"`
	FormData        FormData     `json:"form_data"`
	InvitationBased bool         `json:"invitation_based"`
	InvitationID    string       `json:"invitation_id,omitempty"`
	ProfileID       string       `json:"profile_id,omitempty"`
	Result          *edfi.Result `json:"result,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}

func (p Progress) Key() Key { return Key{UserID: p.UserID, Email: p.Email} }

// Summary returns the progress without the collected form data and provisioning result.
func (p Progress) Summary() Progress {
	p.FormData = FormData{}
	p.Result = nil
	return p
}

// IsComplete reports whether the records of this progress were provisioned.
func (p Progress) IsComplete() bool { return p.CompletedAt != nil }

// HasCompleted reports whether `step` was saved at least once.
func (p Progress) HasCompleted(step Step) bool {
	for _, s := range p.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// markCompleted appends `step` to CompletedSteps unless already present and moves
// CurrentStep forward when `step` is the current one. Re-entering a past step never moves
// CurrentStep backwards.
func (p *Progress) markCompleted(step Step) {
	if !p.HasCompleted(step) {
		p.CompletedSteps = append(p.CompletedSteps, step)
	}
	if !step.Before(p.CurrentStep) {
		p.CurrentStep = step.Next()
	}
}
