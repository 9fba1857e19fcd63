package eventbus

import (
	"fmt"
	"strings"

	"github.com/amirasaad/studentaid/pkg/domain/events"
)

// streamNameFor returns the redis stream carrying one event type, for
// example "studentaid:events:donation:recorded".
func streamNameFor(prefix string, eventType events.EventType) string {
	return nameFor(prefix, eventType)
}

// dlqStreamName returns the dead letter stream for the given event type.
func dlqStreamName(prefix string, eventType events.EventType) string {
	return nameFor(prefix+":dlq", eventType)
}

// groupNameFor returns the consumer group name for the event type.
func groupNameFor(group string, eventType events.EventType) string {
	return nameFor(group, eventType)
}

func nameFor(prefix string, eventType events.EventType) string {
	parts := strings.Split(eventType.String(), ".")
	if len(parts) == 2 {
		return fmt.Sprintf(
			"%s:%s:%s",
			prefix,
			strings.ToLower(parts[0]),
			strings.ToLower(parts[1]))
	}
	return fmt.Sprintf("%s:%s", prefix, strings.ToLower(eventType.String()))
}

// topicNameFor returns the kafka topic for the event type, for example
// "studentaid.donation.recorded".
func topicNameFor(prefix string, eventType events.EventType) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "studentaid"
	}
	return fmt.Sprintf("%s.%s", prefix, strings.ToLower(eventType.String()))
}

func dlqTopicNameFor(prefix string, eventType events.EventType) string {
	return topicNameFor(strings.TrimSpace(prefix)+".dlq", eventType)
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
