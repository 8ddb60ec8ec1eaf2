// Package audit provides a structured security audit trail for
// authentication outcomes. A Recorder subscribes to the authentication
// topics on the event bus and persists one record per notification through
// a pluggable Store.
package audit

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"
)

// JSON is a custom type for handling JSON data in various storages.
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return errors.New("invalid type for JSON")
	}
	return nil
}

// RiskLevel categorizes the severity of audit events for compliance.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Event represents a structured security event record.
type Event struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"index"`
	ActorID   string    `json:"actor_id" gorm:"index"`
	Status    string    `json:"status"` // "success", "failure", "blocked", "progress"
	Message   string    `json:"message"`
	Metadata  JSON      `json:"metadata"`
	Risk      RiskLevel `json:"risk,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Event) TableName() string { return "audit_events" }

// Filter for querying audit events.
type Filter struct {
	ActorID  string
	Types    []string
	Statuses []string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// Store defines the interface for persisting and querying audit events.
type Store interface {
	// SaveEvent persists an audit event.
	SaveEvent(ctx context.Context, event *Event) error

	// Query returns events matching the filter, oldest first.
	Query(ctx context.Context, filter Filter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter Filter) (int64, error)

	// Purge deletes events older than the specified time.
	// Returns the number of events deleted.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
