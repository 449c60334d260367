package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (single process) or NATS (distributed).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the case workflow.
const (
	TopicCaseAnalyzed        = "mulecatcher.case.analyzed"
	TopicCaseReset           = "mulecatcher.case.reset"
	TopicCaseSampleLoaded    = "mulecatcher.case.sample_loaded"
	TopicInterventionApplied = "mulecatcher.intervention.applied"
	TopicAnalysisFailed      = "mulecatcher.analysis.failed"
)

// CaseEvent is the payload published on case workflow topics.
type CaseEvent struct {
	CaseID          string  `json:"caseId,omitempty"`
	FileName        string  `json:"fileName,omitempty"`
	SuspiciousCount int     `json:"suspiciousCount,omitempty"`
	RingCount       int     `json:"ringCount,omitempty"`
	RiskExposure    float64 `json:"riskExposure,omitempty"`
	Interventions   int     `json:"interventions,omitempty"`
	Error           string  `json:"error,omitempty"`
}
