package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// HeaderEventType names the event type header set on every published message.
const HeaderEventType = "event_type"

// EventType prefers the event_type header and falls back to the topic.
func EventType(msg kafka.Message) string {
	if v := HeaderValue(msg.Headers, HeaderEventType); v != "" {
		return v
	}
	return msg.Topic
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
