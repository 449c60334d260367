// Package worker provides the async audit-trail recorder.
//
// It subscribes to the case workflow topics and persists one audit event per
// published message, keeping the investigation trail out of the request path.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// auditTopics are the workflow topics recorded into the audit trail.
var auditTopics = []string{
	domain.TopicCaseAnalyzed,
	domain.TopicCaseReset,
	domain.TopicCaseSampleLoaded,
	domain.TopicInterventionApplied,
	domain.TopicAnalysisFailed,
}

// Worker consumes workflow events and writes audit records.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new audit worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to all workflow topics.
func (w *Worker) Start() error {
	for _, topic := range auditTopics {
		sub, err := w.bus.Subscribe(w.ctx, topic, w.handleMessage)
		if err != nil {
			slog.Error("failed to subscribe audit worker",
				"topic", topic,
				"error", err,
			)
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("audit worker started",
		"topic_count", len(w.subscriptions),
	)

	return nil
}

// handleMessage records one workflow event in the audit trail.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	var event domain.CaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse case event",
			"message_id", msg.ID,
			"topic", msg.Topic,
			"error", err,
		)
		return err
	}

	detail := event.Error
	if detail == "" && event.FileName != "" {
		detail = event.FileName
	}

	audit := &domain.AuditEvent{
		ID:        uuid.New().String(),
		CaseID:    event.CaseID,
		Topic:     msg.Topic,
		Detail:    detail,
		Timestamp: time.Unix(0, msg.Timestamp).UTC(),
	}

	if w.repo != nil {
		if err := w.repo.SaveAuditEvent(ctx, audit); err != nil {
			slog.Error("failed to save audit event",
				"case_id", event.CaseID,
				"topic", msg.Topic,
				"error", err,
			)
			return err
		}
	}

	slog.Debug("audit event recorded",
		"case_id", event.CaseID,
		"topic", msg.Topic,
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("audit worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
