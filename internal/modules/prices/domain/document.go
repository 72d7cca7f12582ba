package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Message is a raw broker record before any decoding. Value is the opaque
// payload exactly as produced upstream.
type Message struct {
	Topic     Topic
	Partition int
	Offset    int64
	Value     []byte
	Time      time.Time
}

// Document is one decoded price payload keyed by (Topic, Day). Payload keeps
// the producer's JSON untouched so reads can return it verbatim; cable
// documents are expected to carry an "hours" object keyed by the 1-based
// delivery hour ("1".."24").
type Document struct {
	Topic      Topic
	Day        string
	Payload    []byte
	ReceivedAt time.Time
}

var ErrNoDate = errors.New("payload carries no date field")

// DecodeDocument turns a raw broker message into a Document. The payload must
// be a JSON object with a "date" field holding a YYYY-MM-DD value; anything
// else is a decode failure the caller is expected to skip, never a reason to
// stop consuming.
func DecodeDocument(msg Message, receivedAt time.Time) (Document, error) {
	var fields map[string]any
	if err := json.Unmarshal(msg.Value, &fields); err != nil {
		return Document{}, fmt.Errorf("parse payload: %w", err)
	}
	raw, _ := fields["date"].(string)
	if strings.TrimSpace(raw) == "" {
		return Document{}, ErrNoDate
	}
	day, err := ParseDay(raw)
	if err != nil {
		return Document{}, fmt.Errorf("payload date %q: %w", raw, err)
	}
	return Document{
		Topic:      msg.Topic,
		Day:        day,
		Payload:    msg.Value,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}
