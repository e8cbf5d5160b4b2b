package rules

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Engine answers eligibility and prior-authorization questions for one
// benefit plan. It is deterministic apart from the clock and the auth
// number source, both injectable for tests.
type Engine struct {
	plan     Plan
	nowFunc  func() time.Time
	newToken func() string
}

func NewEngine(plan Plan) *Engine {
	return &Engine{
		plan:     plan,
		nowFunc:  time.Now,
		newToken: newAuthToken,
	}
}

func newAuthToken() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:4]))
}

func (e *Engine) Plan() Plan { return e.plan }

// Benefits returns the plan snapshot a payer would read back on an
// eligibility call.
func (e *Engine) Benefits() models.BenefitsSummary {
	return models.BenefitsSummary{
		CoverageStart: e.plan.CoverageStart,
		CoverageEnd:   e.plan.CoverageEnd,
		CopayOrCoins:  e.plan.CopayOrCoins,
		PTVisitLimit:  e.plan.PTVisitLimit,
		PTVisitsUsed:  e.plan.PTVisitsUsed,
	}
}

// Authorize decides whether the requested visits need prior auth and,
// when they do, how many are approved. Approved visits never exceed the
// per-auth threshold, the visits remaining on the plan, or the request
// itself, and never go below zero. An auth number is issued only when
// authorization is required.
func (e *Engine) Authorize(visitsRequested int) models.AuthorizationResult {
	now := e.nowFunc().UTC()
	result := models.AuthorizationResult{
		AuthRequired: visitsRequested > e.plan.AuthVisitThreshold,
		ValidFrom:    now.Format(dateLayout),
		ValidTo:      now.AddDate(0, 0, e.plan.ValidityDays).Format(dateLayout),
	}
	if !result.AuthRequired {
		return result
	}

	remaining := e.plan.PTVisitLimit - e.plan.PTVisitsUsed
	approved := e.plan.AuthVisitThreshold
	if remaining < approved {
		approved = remaining
	}
	if visitsRequested < approved {
		approved = visitsRequested
	}
	if approved < 0 {
		approved = 0
	}
	result.VisitsApproved = approved

	authNumber := fmt.Sprintf("PT-%s", e.newToken())
	result.AuthNumber = &authNumber
	return result
}
