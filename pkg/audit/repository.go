package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type eventModel struct {
	ID         int64          `gorm:"primaryKey;column:id"`
	EntityType string         `gorm:"column:entity_type;index:idx_audit_entity"`
	EntityID   string         `gorm:"column:entity_id;index:idx_audit_entity"`
	Action     string         `gorm:"column:action"`
	ActorRole  string         `gorm:"column:actor_role"`
	Timestamp  time.Time      `gorm:"column:timestamp;index"`
	Before     datatypes.JSON `gorm:"column:before_json"`
	After      datatypes.JSON `gorm:"column:after_json"`
	RunID      string         `gorm:"column:run_id;index"`
}

func (eventModel) TableName() string { return "audit_events" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&eventModel{})
}

// Append inserts one event. The table is append-only; nothing in the
// repository updates or deletes rows.
func (r *Repository) Append(ctx context.Context, event models.AuditEvent) error {
	before, _ := json.Marshal(event.Before)
	after, _ := json.Marshal(event.After)
	row := &eventModel{
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Action:     event.Action,
		ActorRole:  event.ActorRole,
		Timestamp:  event.Timestamp,
		Before:     datatypes.JSON(before),
		After:      datatypes.JSON(after),
		RunID:      event.RunID,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEvent, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

func (r *Repository) ListByEntityID(ctx context.Context, entityID string) ([]models.AuditEvent, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

func toEvents(rows []eventModel) []models.AuditEvent {
	events := make([]models.AuditEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.AuditEvent{
			ID:         row.ID,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Action:     row.Action,
			ActorRole:  row.ActorRole,
			Timestamp:  row.Timestamp,
			Before:     jsonMap(row.Before),
			After:      jsonMap(row.After),
			RunID:      row.RunID,
		})
	}
	return events
}

func jsonMap(data datatypes.JSON) map[string]interface{} {
	if len(data) == 0 {
		return nil
	}
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}
