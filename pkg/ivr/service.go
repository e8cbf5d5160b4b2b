package ivr

import (
	"context"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

// Service drives IVR sessions: one keypress in, the updated state and
// prompt out. Every press loads the session, applies the machine, and
// writes it back, so any SessionStore backend behaves the same.
type Service struct {
	machine *Machine
	store   SessionStore
}

func NewService(machine *Machine, store SessionStore) *Service {
	return &Service{machine: machine, store: store}
}

// Start opens a new session at the main menu.
func (s *Service) Start(ctx context.Context) (models.IVRSessionState, error) {
	session := NewSession(uuid.New().String())
	if err := s.store.Put(ctx, session); err != nil {
		return models.IVRSessionState{}, err
	}

	metrics.IncIVRSessionStarted()
	logger.Log.WithField("session_id", session.ID).Info("IVR session started")
	return stateView(session), nil
}

// Dtmf applies one keypress and reports the resulting state and prompt.
func (s *Service) Dtmf(ctx context.Context, id, digit string) (models.IVRSessionState, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return models.IVRSessionState{}, err
	}

	wasEnded := session.State == StateEnded
	s.machine.Apply(session, digit)
	if err := s.store.Put(ctx, session); err != nil {
		return models.IVRSessionState{}, err
	}

	metrics.IncIVRKeypress()
	if session.State == StateEnded && !wasEnded {
		metrics.DecIVRSessionActive()
		logger.Log.WithFields(map[string]interface{}{
			"session_id": session.ID,
			"keypresses": len(session.DTMF),
		}).Info("IVR session ended")
	}
	return stateView(session), nil
}

// Result reports what the session has computed so far. Both fields stay
// nil until the matching menu branch has run; an ended session still
// answers, so a caller can hang up and fetch the outcome afterwards.
func (s *Service) Result(ctx context.Context, id string) (models.IVRResult, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return models.IVRResult{}, err
	}
	return models.IVRResult{
		SessionID:  session.ID,
		Benefits:   session.Benefits,
		AuthResult: session.AuthResult,
	}, nil
}

func stateView(session *Session) models.IVRSessionState {
	return models.IVRSessionState{
		SessionID: session.ID,
		State:     string(session.State),
		Prompt:    session.Prompt,
	}
}
