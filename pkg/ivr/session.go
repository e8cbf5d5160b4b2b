package ivr

import (
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
)

// Session is one caller's in-flight phone interaction. It lives in a
// SessionStore between keypresses; the JSON tags cover the Redis
// backend's serialized form.
type Session struct {
	ID         string                      `json:"sessionId"`
	State      State                       `json:"state"`
	Prompt     string                      `json:"prompt"`
	DTMF       []string                    `json:"dtmf"`
	MemberID   string                      `json:"memberId"`
	DOB        string                      `json:"dob"`
	Benefits   *models.BenefitsSummary     `json:"benefits"`
	AuthResult *models.AuthorizationResult `json:"authResult"`
	StartedAt  time.Time                   `json:"startedAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`
}

// NewSession opens a session at the main menu.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     StateMainMenu,
		Prompt:    promptMainMenu,
		DTMF:      []string{},
		StartedAt: now,
		UpdatedAt: now,
	}
}
