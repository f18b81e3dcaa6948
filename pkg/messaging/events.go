package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// User events
	EventUserRegistered  = "user.registered"
	EventUserDeactivated = "user.deactivated"
	EventUserReactivated = "user.reactivated"

	// Item events
	EventItemCreated = "item.created"
	EventItemUpdated = "item.updated"
	EventItemDeleted = "item.deleted"
)

// ExchangeEvents is the topic exchange all domain events are published to
const ExchangeEvents = "stockroom.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserRegisteredEvent is published when a new account is registered
type UserRegisteredEvent struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

// UserDeactivatedEvent is published when an account is deactivated
type UserDeactivatedEvent struct {
	UserID        int64 `json:"user_id"`
	DeactivatedBy int64 `json:"deactivated_by"`
}

// UserReactivatedEvent is published when a deactivated account is restored
type UserReactivatedEvent struct {
	UserID        int64 `json:"user_id"`
	ReactivatedBy int64 `json:"reactivated_by"`
}

// Item Events

// ItemCreatedEvent is published when an inventory item is created
type ItemCreatedEvent struct {
	ItemID       int64  `json:"item_id"`
	Name         string `json:"name"`
	OwnerID      int64  `json:"owner_id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	AssignedToID *int64 `json:"assigned_to_id,omitempty"`
}

// ItemUpdatedEvent is published when an inventory item is updated
type ItemUpdatedEvent struct {
	ItemID    int64          `json:"item_id"`
	UpdatedBy int64          `json:"updated_by"`
	Fields    map[string]any `json:"fields"`
}

// ItemDeletedEvent is published when an inventory item is deleted
type ItemDeletedEvent struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	DeletedBy int64  `json:"deleted_by"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
