package models

// EventType identifies the kind of change a webhook delivery describes.
type EventType string

const (
	EventItemAdded     EventType = "item:added"
	EventItemUpdated   EventType = "item:updated"
	EventItemCompleted EventType = "item:completed"
	EventItemDeleted   EventType = "item:deleted"
	EventSlotEnded     EventType = "calendar:event_end"
)

// Event is a normalized inbound notification. Task is the current snapshot
// as delivered by the webhook; OldTask is the prior snapshot, unwrapped by
// the transport from the delivery's old_item envelope, and is only present
// on item:updated deliveries. For calendar:event_end only Task.ID is
// meaningful and the router refetches the live task.
type Event struct {
	Name    EventType `json:"event_name"`
	Task    Task      `json:"event_data"`
	OldTask *Task     `json:"old_task,omitempty"`
}
