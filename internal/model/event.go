package model

import (
	"time"
)

// EventType represents the type of domain event published to the stream.
type EventType string

const (
	EventTypeRecommendation EventType = "chat.recommendation"
	EventTypeCompletion     EventType = "completion"
)

// DomainEvent is a fact published for downstream consumers.
type DomainEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Subject   string         `json:"subject"`
	AccountID int64          `json:"account_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CompletionKind names what was completed.
type CompletionKind string

const (
	CompletionFiveMinFun      CompletionKind = "five_min_fun"
	CompletionEvent           CompletionKind = "event"
	CompletionRoutineInstance CompletionKind = "routine_instance"
)

// MarkFiveMinFunRequest marks a five-minute fun completed for kids today.
type MarkFiveMinFunRequest struct {
	ActivityID int64   `json:"activity_id"`
	KidIDs     []int64 `json:"kid_ids"`
}

// MarkEventRequest marks an event completed for kids on a date.
type MarkEventRequest struct {
	EventID int64   `json:"event_id"`
	KidIDs  []int64 `json:"kid_ids"`
	Date    string  `json:"date,omitempty"`
}

// MarkRoutineInstanceRequest marks a routine instance completed.
type MarkRoutineInstanceRequest struct {
	RoutineInstanceID int64 `json:"routine_instance_id"`
}

// CompletionResult reports what a completion request changed.
type CompletionResult struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
	Created          int      `json:"created"`
	AlreadyCompleted []string `json:"already_completed,omitempty"`
	NotRegistered    []string `json:"not_registered,omitempty"`
}
