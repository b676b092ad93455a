package schema

// SyncOutboxTable represents the 'sync_outbox' table
type SyncOutboxTable struct {
	Table         string
	ID            string
	Kind          string
	AggregateID   string
	Payload       string
	Status        string
	Attempts      string
	NextAttemptAt string
	LastError     string
	Result        string
	RequestID     string
	CreatedAt     string
	UpdatedAt     string
}

// SyncOutbox is the schema definition for sync_outbox
var SyncOutbox = SyncOutboxTable{
	Table:         "sync_outbox",
	ID:            "id",
	Kind:          "kind",
	AggregateID:   "aggregate_id",
	Payload:       "payload",
	Status:        "status",
	Attempts:      "attempts",
	NextAttemptAt: "next_attempt_at",
	LastError:     "last_error",
	Result:        "result",
	RequestID:     "request_id",
	CreatedAt:     "created_at",
	UpdatedAt:     "updated_at",
}

// Columns returns all standard column names
func (t SyncOutboxTable) Columns() []string {
	return []string{
		t.ID, t.Kind, t.AggregateID, t.Payload, t.Status, t.Attempts, t.NextAttemptAt,
		t.LastError, t.Result, t.RequestID, t.CreatedAt, t.UpdatedAt,
	}
}
