package audit

import (
	"context"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
)

// SystemActor is recorded when no explicit actor accompanies a change.
const SystemActor = "system"

type Store interface {
	Append(ctx context.Context, event models.AuditEvent) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEvent, error)
	ListByEntityID(ctx context.Context, entityID string) ([]models.AuditEvent, error)
}

// Entry is an emission before the service stamps actor and timestamp.
type Entry struct {
	EntityType string
	EntityID   string
	Action     string
	ActorRole  string
	Before     map[string]interface{}
	After      map[string]interface{}
	RunID      string
}

type Service struct {
	store   Store
	nowFunc func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, nowFunc: time.Now}
}

// Emit durably appends one event. The error is always surfaced: a state
// change whose audit write failed must not proceed as if it had been
// recorded.
func (s *Service) Emit(ctx context.Context, entry Entry) error {
	if entry.ActorRole == "" {
		entry.ActorRole = SystemActor
	}
	event := models.AuditEvent{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActorRole:  entry.ActorRole,
		Timestamp:  s.nowFunc().UTC(),
		Before:     entry.Before,
		After:      entry.After,
		RunID:      entry.RunID,
	}

	if err := s.store.Append(ctx, event); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"action":      entry.Action,
		}).Error("Failed to append audit event")
		return err
	}

	metrics.IncAuditEvent()
	return nil
}

// Events lists an entity's history oldest first. An entity with no
// history yields an empty slice, never an error.
func (s *Service) Events(ctx context.Context, entityType, entityID string) ([]models.AuditEvent, error) {
	events, err := s.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	return events, nil
}

// EventsByEntityID lists history across entity types sharing an id.
func (s *Service) EventsByEntityID(ctx context.Context, entityID string) ([]models.AuditEvent, error) {
	events, err := s.store.ListByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	return events, nil
}
