package domain

import (
	"context"
	"time"
)

// IngestEvent announces that a collector finished writing an artifact.
type IngestEvent struct {
	Source      string    `json:"source"`
	ObjectKey   string    `json:"object_key"`
	Rows        int       `json:"rows"`
	Day         string    `json:"day"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventPublisher broadcasts ingest events. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, events ...IngestEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...IngestEvent) error { return nil }
