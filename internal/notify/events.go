package notify

import "strings"

const (
	EventNotificationRequested = "NotificationRequested"

	TopicNotificationRequested = "notification.requested"
	// Messages that exhausted their delivery attempts.
	TopicNotificationDead = "notification.dead"
)

// PartitionKey keeps every message for one recipient on one partition.
func PartitionKey(to string) []byte { return []byte(strings.ToLower(strings.TrimSpace(to))) }
