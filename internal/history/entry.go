package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout matches the ISO-8601 form written by JavaScript's
// Date.prototype.toISOString, so persisted history stays interchangeable
// with the browser front end.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is one generated QR payload. Entries are immutable once created.
type Entry struct {
	Text      string
	CreatedAt time.Time
}

type entryRecord struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryRecord{
		Text:      e.Text,
		Timestamp: e.CreatedAt.UTC().Format(TimestampLayout),
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var rec entryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", rec.Timestamp, err)
	}

	e.Text = rec.Text
	e.CreatedAt = createdAt
	return nil
}
