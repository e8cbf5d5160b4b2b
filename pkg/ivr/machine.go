package ivr

import (
	"time"

	"github.com/clearintake-ai/platform/pkg/rules"
)

// State identifies where a session sits in the menu tree. The names are
// wire-visible; callers drive their call UIs off them.
type State string

const (
	StateMainMenu             State = "mainMenu"
	StateCollectMemberIDElig  State = "collectMemberIdElig"
	StateCollectMemberIDAuth  State = "collectMemberIdAuth"
	StateCollectDOBElig       State = "collectDobElig"
	StateCollectDOBAuth       State = "collectDobAuth"
	StateBenefitsSummary      State = "benefitsSummary"
	StateCheckAuthRequirement State = "checkAuthRequirement"
	StateEnded                State = "ended"
)

// Keys with menu meaning. 0 always hangs up, so it can never be used
// inside member-id or DOB input.
const (
	digitEligibility = "1"
	digitPriorAuth   = "2"
	digitRepeat      = "9"
	digitEnd         = "0"
	digitTerminator  = "#"
)

const (
	promptMainMenu         = "Press 1 for Eligibility and benefits, 2 for Prior authorization (PT), 0 to end"
	promptInvalidMenu      = "Invalid. Press 1 for Eligibility, 2 for Prior auth, 0 to end"
	promptEnterMemberID    = "Enter member ID followed by #"
	promptContinueMemberID = "Continue entering member ID, then #"
	promptEnterDOB         = "Enter DOB as YYYYMMDD followed by #"
	promptContinueDOB      = "Continue entering DOB, then #"
	promptBenefitsProvided = "Benefits provided. Press 9 to repeat, 0 to end"
	promptBenefitsRepeated = "Benefits repeated. Press 9 to repeat, 0 to end"
	promptCheckingAuth     = "Checking if prior auth is required... Press 9 to repeat, 0 to end"
	promptAuthEvaluated    = "Auth requirement evaluated. Press 9 to repeat, 0 to end"
	promptGoodbye          = "Goodbye"
)

// Machine applies DTMF input to sessions. It owns no storage: callers
// load a session, apply a digit, and write it back.
type Machine struct {
	engine *rules.Engine
}

func NewMachine(engine *rules.Engine) *Machine {
	return &Machine{engine: engine}
}

// Apply advances the session by one keypress. The current state's rule
// runs first; if the digit is 0, the call then ends regardless of what
// that rule decided.
func (m *Machine) Apply(s *Session, digit string) {
	s.DTMF = append(s.DTMF, digit)

	switch s.State {
	case StateMainMenu:
		switch digit {
		case digitEligibility:
			s.State = StateCollectMemberIDElig
			s.Prompt = promptEnterMemberID
		case digitPriorAuth:
			s.State = StateCollectMemberIDAuth
			s.Prompt = promptEnterMemberID
		case digitEnd:
			s.State = StateEnded
			s.Prompt = promptGoodbye
		default:
			s.Prompt = promptInvalidMenu
		}

	case StateCollectMemberIDElig, StateCollectMemberIDAuth:
		if digit == digitTerminator {
			if s.State == StateCollectMemberIDElig {
				s.State = StateCollectDOBElig
			} else {
				s.State = StateCollectDOBAuth
			}
			s.Prompt = promptEnterDOB
		} else {
			s.MemberID += digit
			s.Prompt = promptContinueMemberID
		}

	case StateCollectDOBElig, StateCollectDOBAuth:
		if digit == digitTerminator {
			benefits := m.engine.Benefits()
			s.Benefits = &benefits
			if s.State == StateCollectDOBElig {
				s.State = StateBenefitsSummary
				s.Prompt = promptBenefitsProvided
			} else {
				// The phone flow never issues an authorization; the
				// result endpoint reads back whatever the session
				// holds, and only the intake pipeline fills that in.
				s.State = StateCheckAuthRequirement
				s.Prompt = promptCheckingAuth
			}
		} else {
			s.DOB += digit
			s.Prompt = promptContinueDOB
		}

	case StateCheckAuthRequirement:
		s.Prompt = promptAuthEvaluated

	case StateBenefitsSummary:
		switch digit {
		case digitRepeat:
			s.Prompt = promptBenefitsRepeated
		case digitEnd:
			s.State = StateEnded
			s.Prompt = promptGoodbye
		}
	}

	if digit == digitEnd {
		s.State = StateEnded
		s.Prompt = promptGoodbye
	}

	s.UpdatedAt = time.Now().UTC()
}
