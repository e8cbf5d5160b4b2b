package pipeline

import (
	"context"

	"github.com/clearintake-ai/platform/pkg/common/kafka"
	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
)

// EventRunRequested is the event type carried on the run-request topic.
const EventRunRequested = "runRequested"

// RunRequest identifies one queued pipeline execution. Actor is who
// triggered the run; it is attributed on the runStarted audit event.
type RunRequest struct {
	IntakeID string `json:"intakeId"`
	RunID    string `json:"runId"`
	Actor    string `json:"actor,omitempty"`
}

// Dispatcher accepts a run request and returns once it is queued. The
// run itself executes later; callers poll the intake for the outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, req RunRequest) error
}

// InlineDispatcher executes runs in goroutines within this process. A
// semaphore caps how many pipelines run at once without holding up the
// trigger call.
type InlineDispatcher struct {
	orch *Orchestrator
	sem  chan struct{}
}

func NewInlineDispatcher(orch *Orchestrator, maxWorkers int) *InlineDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &InlineDispatcher{
		orch: orch,
		sem:  make(chan struct{}, maxWorkers),
	}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, req RunRequest) error {
	go d.run(req)
	return nil
}

func (d *InlineDispatcher) run(req RunRequest) {
	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	// The trigger request has long since returned; the run gets its
	// own lifetime.
	if err := d.orch.Execute(context.Background(), req); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"intake_id": req.IntakeID,
			"run_id":    req.RunID,
		}).Error("Inline pipeline run failed")
	}
}

// EventPublisher is the producer surface the Kafka dispatcher needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// KafkaDispatcher queues run requests on the run topic so a consumer,
// here or on another node, picks them up. Requests for the same intake
// share a partition key, keeping reruns ordered.
type KafkaDispatcher struct {
	producer EventPublisher
	source   string
}

func NewKafkaDispatcher(producer EventPublisher) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, source: "intake-service"}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, req RunRequest) error {
	return d.producer.PublishEvent(ctx, EventRunRequested, d.source, map[string]interface{}{
		"intakeId": req.IntakeID,
		"runId":    req.RunID,
		"actor":    req.Actor,
	})
}

// RunConsumer drains the run topic and executes each request in turn.
type RunConsumer struct {
	consumer *kafka.Consumer
	orch     *Orchestrator
}

func NewRunConsumer(consumer *kafka.Consumer, orch *Orchestrator) *RunConsumer {
	return &RunConsumer{consumer: consumer, orch: orch}
}

// Run blocks consuming run requests until the context is canceled.
func (c *RunConsumer) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handle)
}

func (c *RunConsumer) handle(ctx context.Context, event models.Event) error {
	if event.Type != EventRunRequested {
		logger.Log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warn("Ignoring unexpected event on run topic")
		return nil
	}

	req := RunRequest{
		IntakeID: stringField(event.Data, "intakeId"),
		RunID:    stringField(event.Data, "runId"),
		Actor:    stringField(event.Data, "actor"),
	}
	if req.IntakeID == "" {
		logger.Log.WithField("event_id", event.ID).Warn("Run request without intake id")
		return nil
	}
	if req.RunID == "" {
		req.RunID = event.ID
	}

	// A failed run is still a consumed request: the failure lives on
	// the intake record and its audit trail, and redelivery would just
	// rerun a pipeline that already recorded its outcome.
	if err := c.orch.Execute(ctx, req); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"intake_id": req.IntakeID,
			"run_id":    req.RunID,
		}).Error("Queued pipeline run failed")
	}
	return nil
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
