package pubsub

import "fmt"

// Channel naming conventions. Channels have four colon-separated parts,
// {prefix}:{entity}:{id}:{suffix}; the Kafka driver maps them to topic
// {prefix}-{entity}-{suffix} keyed by {id}.
const (
	ChannelRecordChanged = "shelter:record:%s:changed"
	PatternRecordChanged = "shelter:record:*:changed"
)

// Event types for record changes.
const (
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

// RecordChangedChannel returns the channel name for changes to one record.
func RecordChangedChannel(recordID string) string {
	return fmt.Sprintf(ChannelRecordChanged, recordID)
}

// RecordChangedPayload carries the full record after a create or update.
// Deletions publish no payload.
type RecordChangedPayload struct {
	Record map[string]interface{} `json:"record"`
}
