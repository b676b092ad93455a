package schema

// SessionTable represents the 'sessions' table
type SessionTable struct {
	Table        string
	AccountID    string
	Token        string
	LastActivity string
	CreatedAt    string
}

// Session is the schema definition for sessions
var Session = SessionTable{
	Table:        "sessions",
	AccountID:    "account_id",
	Token:        "token",
	LastActivity: "last_activity",
	CreatedAt:    "created_at",
}

// Columns returns all standard column names
func (t SessionTable) Columns() []string {
	return []string{t.AccountID, t.Token, t.LastActivity, t.CreatedAt}
}
