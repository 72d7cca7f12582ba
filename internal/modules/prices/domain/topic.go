package domain

import "strings"

// Topic identifies one of the replayable price streams this service ingests.
type Topic string

const (
	// TopicCables carries cable-auction price documents.
	TopicCables Topic = "cables"
	// TopicExchanges carries day-ahead exchange price documents.
	TopicExchanges Topic = "exchanges"
)

// Topics returns every topic the service knows about, in stable order.
func Topics() []Topic {
	return []Topic{TopicCables, TopicExchanges}
}

// ParseTopic maps a raw topic name onto a known Topic.
func ParseTopic(raw string) (Topic, bool) {
	switch Topic(strings.TrimSpace(strings.ToLower(raw))) {
	case TopicCables:
		return TopicCables, true
	case TopicExchanges:
		return TopicExchanges, true
	}
	return "", false
}

func (t Topic) String() string { return string(t) }
