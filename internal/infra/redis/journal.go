package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// journalTTL bounds how long a resource's journal survives without new
// failures.
const journalTTL = 24 * time.Hour

// Entry is one terminal failure recorded for operator inspection.
type Entry struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Resource  string    `json:"resource"`
	Code      string    `json:"code,omitempty"`
	Transient bool      `json:"transient"`
	Attempts  int       `json:"attempts"`
	Message   string    `json:"message"`
	FailedAt  time.Time `json:"failed_at"`
}

// Journal keeps a capped per-resource list of recent terminal failures.
type Journal struct {
	client *Client
	keep   int64
}

// NewJournal creates a journal keeping at most keep entries per resource.
func NewJournal(client *Client, keep int) *Journal {
	if keep <= 0 {
		keep = 100
	}
	return &Journal{client: client, keep: int64(keep)}
}

func journalKey(resource string) string {
	return fmt.Sprintf("failed_ops:%s", resource)
}

// Record prepends an entry to the resource's journal and trims it to the cap.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	key := journalKey(e.Resource)
	pipe := j.client.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, j.keep-1)
	pipe.Expire(ctx, key, journalTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest entries for a resource, newest first.
func (j *Journal) Recent(ctx context.Context, resource string, n int) ([]Entry, error) {
	if n <= 0 {
		n = int(j.keep)
	}

	raw, err := j.client.rdb.LRange(ctx, journalKey(resource), 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue // skip corrupt entries
		}
		entries = append(entries, e)
	}
	return entries, nil
}
