// Package events defines the messages exchanged with orchestrated services and their wire codec.
package events

// Default broker topics.
const (
	StatusTopic   = "tomanager"      // Status reports from services, consumed with a group
	EditsTopic    = "tomanageredits" // Workflow definitions, consumed by every manager instance
	TriggersTopic = "frommanager"    // Forward and compensation triggers
)

// Message metadata keys.
const (
	EventTypeMetadataKey = "event_type"
	InstanceMetadataKey  = "uuid"     // Partition key for status reports and triggers
	WorkflowMetadataKey  = "workflow" // Partition key for edits
)

type EventType string

const (
	TriggerEvent EventType = "frommanager"
	EditEvent    EventType = "tomanageredits"
)

// TriggerKind tells forward triggers apart from compensation triggers in logs
// and metrics. It is not part of the wire format.
type TriggerKind string

const (
	TriggerKindForward  TriggerKind = "forward"
	TriggerKindRollback TriggerKind = "rollback"
)
