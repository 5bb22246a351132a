package pubsub

import (
	"context"
	"encoding/json"

	"github.com/vcanio/Terio-sub000/pkg/model"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "board", "export")
	Type    string          `json:"type"`    // Event type (e.g., "node_added", "succeeded")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Topics carried by the board service
const (
	TopicBoard       = "board"       // every Graph Store mutation
	TopicInteraction = "interaction" // connect mode and pending source changes
	TopicExport      = "export"      // export progress and outcome
)

// BoardChanged is published after every applied board mutation
type BoardChanged struct {
	PatientID string      `json:"patientId"`
	Op        string      `json:"op"`      // node_added, node_moved, edge_toggled, cleared, loaded...
	Version   int         `json:"version"` // store version after the mutation
	Board     model.Board `json:"board"`
}

// ExportStatus reports the lifecycle of one export request
type ExportStatus struct {
	Kind     string `json:"kind"`               // map, table, report, csv
	State    string `json:"state"`              // started, succeeded, failed, empty
	Filename string `json:"filename,omitempty"` // set on success
	Message  string `json:"message,omitempty"`  // user-facing notification text
}
